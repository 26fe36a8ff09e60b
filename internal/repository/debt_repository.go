package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

const debtColumns = `id, student_id, total, remaining, status, edit_enabled, created_at, updated_at`

// DebtRepository persists tuition debts and their modification history.
type DebtRepository struct {
	db *sqlx.DB
}

// NewDebtRepository constructs a DebtRepository.
func NewDebtRepository(db *sqlx.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

func (r *DebtRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new debt.
func (r *DebtRepository) Create(ctx context.Context, exec sqlx.ExtContext, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = now
	}
	debt.UpdatedAt = now
	if debt.Status == "" {
		debt.Status = models.DebtIssued
	}
	const query = `INSERT INTO debts (id, student_id, total, remaining, status, edit_enabled, created_at, updated_at)
VALUES (:id, :student_id, :total, :remaining, :status, :edit_enabled, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, debt); err != nil {
		return fmt.Errorf("create debt: %w", err)
	}
	return nil
}

// FindByID returns a debt without locking it.
func (r *DebtRepository) FindByID(ctx context.Context, id string) (*models.Debt, error) {
	var debt models.Debt
	query := fmt.Sprintf("SELECT %s FROM debts WHERE id = $1", debtColumns)
	if err := r.db.GetContext(ctx, &debt, query, id); err != nil {
		return nil, err
	}
	return &debt, nil
}

// FindByStudent returns the debt owned by a student.
func (r *DebtRepository) FindByStudent(ctx context.Context, studentID string) (*models.Debt, error) {
	var debt models.Debt
	query := fmt.Sprintf("SELECT %s FROM debts WHERE student_id = $1", debtColumns)
	if err := r.db.GetContext(ctx, &debt, query, studentID); err != nil {
		return nil, err
	}
	return &debt, nil
}

// LockByID reads a debt with a row lock held until exec's transaction ends.
func (r *DebtRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Debt, error) {
	var debt models.Debt
	query := fmt.Sprintf("SELECT %s FROM debts WHERE id = $1 FOR UPDATE", debtColumns)
	if err := sqlx.GetContext(ctx, r.exec(exec), &debt, query, id); err != nil {
		return nil, err
	}
	return &debt, nil
}

// UpdateBalance persists total, remaining, status and the edit flag.
func (r *DebtRepository) UpdateBalance(ctx context.Context, exec sqlx.ExtContext, debt *models.Debt) error {
	debt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE debts SET total = :total, remaining = :remaining, status = :status, edit_enabled = :edit_enabled, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, debt); err != nil {
		return fmt.Errorf("update debt balance: %w", err)
	}
	return nil
}

// FindOwner resolves the student and location behind a debt.
func (r *DebtRepository) FindOwner(ctx context.Context, debtID string) (*models.DebtOwner, error) {
	query := fmt.Sprintf(`SELECT db.id AS debt_id, s.id AS student_id, %s AS student_name, s.identification,
	s.enrollment_date, s.completion_date, s.municipality_id, m.department_id
FROM debts db
JOIN students s ON s.id = db.student_id
JOIN municipalities m ON m.id = s.municipality_id
WHERE db.id = $1`, studentNameSQL)
	var owner models.DebtOwner
	if err := r.db.GetContext(ctx, &owner, query, debtID); err != nil {
		return nil, err
	}
	return &owner, nil
}

// CreateModification appends a history row.
func (r *DebtRepository) CreateModification(ctx context.Context, exec sqlx.ExtContext, mod *models.DebtModification) error {
	if mod.ID == "" {
		mod.ID = uuid.NewString()
	}
	if mod.CreatedAt.IsZero() {
		mod.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO debt_modifications (id, debt_id, user_id, description, created_at)
VALUES (:id, :debt_id, :user_id, :description, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, mod); err != nil {
		return fmt.Errorf("create debt modification: %w", err)
	}
	return nil
}

// ListModifications returns the history of a debt, newest first.
func (r *DebtRepository) ListModifications(ctx context.Context, debtID string) ([]models.DebtModification, error) {
	const query = `SELECT dm.id, dm.debt_id, dm.user_id, u.username, dm.description, dm.created_at
FROM debt_modifications dm
LEFT JOIN users u ON u.id = dm.user_id
WHERE dm.debt_id = $1
ORDER BY dm.created_at DESC`
	var mods []models.DebtModification
	if err := r.db.SelectContext(ctx, &mods, query, debtID); err != nil {
		return nil, fmt.Errorf("list debt modifications: %w", err)
	}
	return mods, nil
}
