package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

const classDetailSelect = `SELECT c.id, c.date, c.time_slot, c.room_id, c.group_id, c.subject, c.professor_id, c.status, c.created_at, c.updated_at,
	g.code AS group_code, r.number AS room_number, s.name AS site_name,
	s.municipality_id, m.department_id, u.full_name AS professor_name
FROM class_sessions c
JOIN student_groups g ON g.id = c.group_id
JOIN rooms r ON r.id = c.room_id
JOIN sites s ON s.id = r.site_id
JOIN municipalities m ON m.id = s.municipality_id
LEFT JOIN users u ON u.id = c.professor_id`

// ClassRepository handles class session persistence.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

func (r *ClassRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns class sessions matching filters, newest first.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var args []interface{}
	var conditions []string
	if cond, scoped := scopeCondition(filter.Scope, "s.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		conditions = append(conditions, fmt.Sprintf("c.professor_id = $%d", len(args)))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("c.group_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("c.date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("c.date <= $%d", len(args)))
	}
	where := whereClause(conditions)
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s WHERE %s ORDER BY c.date DESC, c.time_slot ASC LIMIT %d OFFSET %d", classDetailSelect, where, size, offset)
	var items []models.ClassDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM class_sessions c
JOIN rooms r ON r.id = c.room_id
JOIN sites s ON s.id = r.site_id
JOIN municipalities m ON m.id = s.municipality_id
WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return items, total, nil
}

// FindByID returns a class session with joined names.
func (r *ClassRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassDetail, error) {
	var item models.ClassDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &item, classDetailSelect+" WHERE c.id = $1", id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a class session.
func (r *ClassRepository) Create(ctx context.Context, class *models.ClassSession) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	if class.Status == "" {
		class.Status = models.ClassScheduled
	}
	const query = `INSERT INTO class_sessions (id, date, time_slot, room_id, group_id, subject, professor_id, status, created_at, updated_at)
VALUES (:id, :date, :time_slot, :room_id, :group_id, :subject, :professor_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies a class session.
func (r *ClassRepository) Update(ctx context.Context, class *models.ClassSession) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions SET date = :date, time_slot = :time_slot, room_id = :room_id, group_id = :group_id,
	subject = :subject, professor_id = :professor_id, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of a class session.
func (r *ClassRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ClassStatus) error {
	const query = `UPDATE class_sessions SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update class status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RoomBusy reports whether the room already holds a class at date and slot.
func (r *ClassRepository) RoomBusy(ctx context.Context, roomID string, date time.Time, slot models.TimeSlot, excludeID string) (bool, error) {
	return r.slotTaken(ctx, "room_id", roomID, date, slot, excludeID)
}

// ProfessorBusy reports whether the professor already teaches at date and slot.
func (r *ClassRepository) ProfessorBusy(ctx context.Context, professorID string, date time.Time, slot models.TimeSlot, excludeID string) (bool, error) {
	return r.slotTaken(ctx, "professor_id", professorID, date, slot, excludeID)
}

func (r *ClassRepository) slotTaken(ctx context.Context, column, value string, date time.Time, slot models.TimeSlot, excludeID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM class_sessions WHERE %s = $1 AND date = $2 AND time_slot = $3 AND status <> $4`, column)
	args := []interface{}{value, date, slot, models.ClassCancelled}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query+")", args...); err != nil {
		return false, fmt.Errorf("check %s availability: %w", column, err)
	}
	return taken, nil
}
