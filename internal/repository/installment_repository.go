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

const installmentColumns = `id, debt_id, amount, amount_paid, due_date, payment_date, status, payment_method, created_at, updated_at`

const installmentInsert = `INSERT INTO installments (id, debt_id, amount, amount_paid, due_date, payment_date, status, payment_method, created_at, updated_at)
VALUES (:id, :debt_id, :amount, :amount_paid, :due_date, :payment_date, :status, :payment_method, :created_at, :updated_at)`

// InstallmentRepository persists the installments of a debt.
type InstallmentRepository struct {
	db *sqlx.DB
}

// NewInstallmentRepository constructs an InstallmentRepository.
func NewInstallmentRepository(db *sqlx.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

func (r *InstallmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByDebt returns the installments of a debt ordered by due date.
func (r *InstallmentRepository) ListByDebt(ctx context.Context, exec sqlx.ExtContext, debtID string) ([]models.Installment, error) {
	query := fmt.Sprintf("SELECT %s FROM installments WHERE debt_id = $1 ORDER BY due_date ASC, created_at ASC", installmentColumns)
	var items []models.Installment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &items, query, debtID); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return items, nil
}

// FindByID fetches a single installment.
func (r *InstallmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Installment, error) {
	query := fmt.Sprintf("SELECT %s FROM installments WHERE id = $1", installmentColumns)
	var item models.Installment
	if err := sqlx.GetContext(ctx, r.exec(exec), &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts one installment.
func (r *InstallmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error {
	stampInstallment(item)
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), installmentInsert, item); err != nil {
		return fmt.Errorf("create installment: %w", err)
	}
	return nil
}

// BulkCreate inserts every installment in a single statement.
func (r *InstallmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, items []models.Installment) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		stampInstallment(&items[i])
	}
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), installmentInsert, items); err != nil {
		return fmt.Errorf("bulk create installments: %w", err)
	}
	return nil
}

// Update persists every mutable column of an installment.
func (r *InstallmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE installments SET amount = :amount, amount_paid = :amount_paid, due_date = :due_date,
	payment_date = :payment_date, status = :status, payment_method = :payment_method, updated_at = :updated_at
WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, item); err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	return nil
}

// Delete removes an installment.
func (r *InstallmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := r.exec(exec).ExecContext(ctx, "DELETE FROM installments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete installment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete installment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func stampInstallment(item *models.Installment) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = models.InstallmentIssued
	}
}
