package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

const studentColumns = `s.id, s.first_names, s.first_surname, s.second_surname, s.identification_type, s.identification,
	s.birth_date, s.phone, s.email, s.guardian_name, s.guardian_phone, s.program, s.scholarship,
	s.enrollment_date, s.completion_date, s.status, s.withdrawal_date, s.municipality_id, s.group_id,
	s.created_at, s.updated_at`

const studentDetailFrom = `FROM students s
JOIN municipalities m ON m.id = s.municipality_id
JOIN departments d ON d.id = m.department_id
LEFT JOIN student_groups g ON g.id = s.group_id
LEFT JOIN debts db ON db.student_id = s.id`

const studentDetailColumns = studentColumns + `,
	m.name AS municipality_name, m.department_id, d.name AS department_name, g.code AS group_code,
	db.id AS debt_id, db.total AS debt_total, db.remaining AS debt_remaining, db.status AS debt_status`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var args []interface{}
	var conditions []string

	if cond, scoped := scopeCondition(filter.Scope, "s.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if filter.Program != nil {
		args = append(args, *filter.Program)
		conditions = append(conditions, fmt.Sprintf("s.program = $%d", len(args)))
	}
	if filter.Scholarship != nil {
		args = append(args, *filter.Scholarship)
		conditions = append(conditions, fmt.Sprintf("s.scholarship = $%d", len(args)))
	}
	if filter.MunicipalityID != "" {
		args = append(args, filter.MunicipalityID)
		conditions = append(conditions, fmt.Sprintf("s.municipality_id = $%d", len(args)))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("s.group_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_names || ' ' || s.first_surname || ' ' || COALESCE(s.second_surname, '')) LIKE $%d OR LOWER(COALESCE(s.identification, '')) LIKE $%d)", n, n))
	}

	base := fmt.Sprintf("%s WHERE %s", studentDetailFrom, whereClause(conditions))

	allowedSorts := map[string]string{
		"surname":         "s.first_surname",
		"enrollment_date": "s.enrollment_date",
		"created_at":      "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentDetailColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", studentDetailColumns, studentDetailFrom)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByGroup returns the active students currently assigned to a group.
func (r *StudentRepository) ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.group_id = $1 AND s.status = $2 ORDER BY s.first_surname ASC, s.first_names ASC", studentColumns)
	var students []models.Student
	if err := sqlx.SelectContext(ctx, r.exec(exec), &students, query, groupID, models.StudentActive); err != nil {
		return nil, fmt.Errorf("list students by group: %w", err)
	}
	return students, nil
}

// ExistsByIdentification checks if a student with the document exists, optionally excluding an ID.
func (r *StudentRepository) ExistsByIdentification(ctx context.Context, identification string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE identification = $1"
	args := []interface{}{identification}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check identification: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Status == "" {
		student.Status = models.StudentActive
	}
	const query = `INSERT INTO students (id, first_names, first_surname, second_surname, identification_type, identification,
	birth_date, phone, email, guardian_name, guardian_phone, program, scholarship, enrollment_date, completion_date,
	status, withdrawal_date, municipality_id, group_id, created_at, updated_at)
VALUES (:id, :first_names, :first_surname, :second_surname, :identification_type, :identification,
	:birth_date, :phone, :email, :guardian_name, :guardian_phone, :program, :scholarship, :enrollment_date, :completion_date,
	:status, :withdrawal_date, :municipality_id, :group_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_names = :first_names, first_surname = :first_surname, second_surname = :second_surname,
	identification_type = :identification_type, identification = :identification, birth_date = :birth_date, phone = :phone,
	email = :email, guardian_name = :guardian_name, guardian_phone = :guardian_phone, program = :program,
	scholarship = :scholarship, enrollment_date = :enrollment_date, completion_date = :completion_date,
	municipality_id = :municipality_id, group_id = :group_id, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Withdraw marks a student withdrawn and moves them to the given group.
func (r *StudentRepository) Withdraw(ctx context.Context, id string, date time.Time, groupID string) error {
	const query = `UPDATE students SET status = $2, withdrawal_date = $3, group_id = $4, updated_at = $5 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, models.StudentWithdrawn, date, groupID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("withdraw student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("withdraw student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
