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

var agreementDetailSelect = fmt.Sprintf(`SELECT a.id, a.installment_id, a.agreement_date, a.promised_date, a.note, a.status, a.created_by, a.created_at,
	i.status AS installment_status, i.due_date AS installment_due,
	s.id AS student_id, %s AS student_name, s.phone, s.municipality_id, m.department_id
FROM payment_agreements a
JOIN installments i ON i.id = a.installment_id
JOIN debts db ON db.id = i.debt_id
JOIN students s ON s.id = db.student_id
JOIN municipalities m ON m.id = s.municipality_id`, studentNameSQL)

// AgreementRepository persists payment agreements.
type AgreementRepository struct {
	db *sqlx.DB
}

// NewAgreementRepository constructs an AgreementRepository.
func NewAgreementRepository(db *sqlx.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// Create inserts a new agreement.
func (r *AgreementRepository) Create(ctx context.Context, agreement *models.PaymentAgreement) error {
	if agreement.ID == "" {
		agreement.ID = uuid.NewString()
	}
	agreement.CreatedAt = time.Now().UTC()
	if agreement.Status == "" {
		agreement.Status = models.AgreementIssued
	}
	const query = `INSERT INTO payment_agreements (id, installment_id, agreement_date, promised_date, note, status, created_by, created_at)
VALUES (:id, :installment_id, :agreement_date, :promised_date, :note, :status, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, agreement); err != nil {
		return fmt.Errorf("create agreement: %w", err)
	}
	return nil
}

// ListIssued returns every agreement still awaiting resolution.
func (r *AgreementRepository) ListIssued(ctx context.Context) ([]models.AgreementDetail, error) {
	var items []models.AgreementDetail
	if err := r.db.SelectContext(ctx, &items, agreementDetailSelect+" WHERE a.status = $1", models.AgreementIssued); err != nil {
		return nil, fmt.Errorf("list issued agreements: %w", err)
	}
	return items, nil
}

// UpdateStatus moves an agreement to a new status.
func (r *AgreementRepository) UpdateStatus(ctx context.Context, id string, status models.AgreementStatus) error {
	result, err := r.db.ExecContext(ctx, "UPDATE payment_agreements SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("update agreement status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns agreements visible within the filter scope ordered by promised date.
func (r *AgreementRepository) List(ctx context.Context, filter models.AgreementFilter) ([]models.AgreementDetail, error) {
	var args []interface{}
	var conditions []string
	if cond, scoped := scopeCondition(filter.Scope, "s.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if filter.MunicipalityID != "" {
		args = append(args, filter.MunicipalityID)
		conditions = append(conditions, fmt.Sprintf("s.municipality_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("m.department_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY a.promised_date ASC, a.created_at ASC", agreementDetailSelect, whereClause(conditions))
	var items []models.AgreementDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	return items, nil
}
