package models

import (
	"fmt"
	"time"
)

// ClassStatus tracks the lifecycle of a class session.
type ClassStatus string

const (
	ClassScheduled ClassStatus = "scheduled"
	ClassTaught    ClassStatus = "taught"
	ClassCancelled ClassStatus = "cancelled"
)

// TimeSlot is an "HH:MM-HH:MM" range within a day.
type TimeSlot string

// Bounds returns the start and end instants of the slot on the given date.
func (t TimeSlot) Bounds(date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var sh, sm, eh, em int
	if _, err := fmt.Sscanf(string(t), "%d:%d-%d:%d", &sh, &sm, &eh, &em); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time slot %q", t)
	}
	if sh < 0 || sh > 23 || eh < 0 || eh > 23 || sm < 0 || sm > 59 || em < 0 || em > 59 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time slot %q", t)
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, sh, sm, 0, 0, loc)
	end := time.Date(y, m, d, eh, em, 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("time slot %q ends before it starts", t)
	}
	return start, end, nil
}

// ClassSession is one scheduled meeting of a group.
type ClassSession struct {
	ID          string      `db:"id" json:"id"`
	Date        time.Time   `db:"date" json:"date"`
	TimeSlot    TimeSlot    `db:"time_slot" json:"time_slot"`
	RoomID      string      `db:"room_id" json:"room_id"`
	GroupID     string      `db:"group_id" json:"group_id"`
	Subject     string      `db:"subject" json:"subject"`
	ProfessorID *string     `db:"professor_id" json:"professor_id,omitempty"`
	Status      ClassStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassDetail joins the session with its group, room and professor names.
type ClassDetail struct {
	ClassSession
	GroupCode      string  `db:"group_code" json:"group_code"`
	RoomNumber     int     `db:"room_number" json:"room_number"`
	SiteName       string  `db:"site_name" json:"site_name"`
	MunicipalityID string  `db:"municipality_id" json:"municipality_id"`
	DepartmentID   string  `db:"department_id" json:"department_id"`
	ProfessorName  *string `db:"professor_name" json:"professor_name,omitempty"`
}

// ClassFilter captures list filters.
type ClassFilter struct {
	ProfessorID string
	GroupID     string
	DateFrom    *time.Time
	DateTo      *time.Time
	Status      *ClassStatus
	Scope       Scope
	Page        int
	PageSize    int
}
