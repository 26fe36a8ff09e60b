package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attendance records whether a student attended a class.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Attended  bool      `db:"attended" json:"attended"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Grade is a 0-100 score for a student in a class.
type Grade struct {
	ID        string          `db:"id" json:"id"`
	ClassID   string          `db:"class_id" json:"class_id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Value     decimal.Decimal `db:"value" json:"value"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// AttendanceRow is the roster view of a class: every current group member with
// the attendance and grade recorded so far.
type AttendanceRow struct {
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	Attended    *bool            `db:"attended" json:"attended,omitempty"`
	Grade       *decimal.Decimal `db:"grade" json:"grade,omitempty"`
}

// Absence documents a missed class, optionally justified.
type Absence struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	Justified  bool      `db:"justified" json:"justified"`
	RecordedBy *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
