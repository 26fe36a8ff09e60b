package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// AttendanceRepository stores attendance marks, grades and absences per class.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Roster lists the active members of a group with their marks for the class.
func (r *AttendanceRepository) Roster(ctx context.Context, classID, groupID string) ([]models.AttendanceRow, error) {
	query := fmt.Sprintf(`SELECT s.id AS student_id, %s AS student_name, a.attended, g.value AS grade
FROM students s
LEFT JOIN attendance a ON a.student_id = s.id AND a.class_id = $1
LEFT JOIN grades g ON g.student_id = s.id AND g.class_id = $1
WHERE s.group_id = $2 AND s.status = $3
ORDER BY s.first_surname ASC, s.first_names ASC`, studentNameSQL)
	var rows []models.AttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, groupID, models.StudentActive); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return rows, nil
}

// UpsertAttendance records or overwrites a student's attendance for a class.
func (r *AttendanceRepository) UpsertAttendance(ctx context.Context, exec sqlx.ExtContext, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO attendance (id, class_id, student_id, attended, updated_at)
VALUES (:id, :class_id, :student_id, :attended, :updated_at)
ON CONFLICT (class_id, student_id) DO UPDATE SET attended = EXCLUDED.attended, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// UpsertGrade records or overwrites a student's grade for a class.
func (r *AttendanceRepository) UpsertGrade(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	grade.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO grades (id, class_id, student_id, value, updated_at)
VALUES (:id, :class_id, :student_id, :value, :updated_at)
ON CONFLICT (class_id, student_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// AbsenceExists reports whether an absence was already recorded.
func (r *AttendanceRepository) AbsenceExists(ctx context.Context, classID, studentID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM absences WHERE class_id = $1 AND student_id = $2 LIMIT 1", classID, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check absence: %w", err)
	}
	return true, nil
}

// CreateAbsence inserts an absence record.
func (r *AttendanceRepository) CreateAbsence(ctx context.Context, absence *models.Absence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	absence.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO absences (id, class_id, student_id, reason, justified, recorded_by, created_at)
VALUES (:id, :class_id, :student_id, :reason, :justified, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}
