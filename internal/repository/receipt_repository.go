package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// ReceiptRepository issues numbered payment receipts.
type ReceiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository constructs a ReceiptRepository.
func NewReceiptRepository(db *sqlx.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a receipt, drawing its number from receipt_number_seq.
func (r *ReceiptRepository) Create(ctx context.Context, exec sqlx.ExtContext, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.IssuedAt.IsZero() {
		receipt.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO receipts (id, installment_id, number, issued_at, amount, method, issued_by)
VALUES ($1, $2, nextval('receipt_number_seq'), $3, $4, $5, $6)
RETURNING number`
	row := r.exec(exec).QueryRowxContext(ctx, query,
		receipt.ID, receipt.InstallmentID, receipt.IssuedAt, receipt.Amount, receipt.Method, receipt.IssuedBy)
	if err := row.Scan(&receipt.Number); err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

// FindLatestByInstallment returns the most recent receipt of an installment
// with everything needed to print it.
func (r *ReceiptRepository) FindLatestByInstallment(ctx context.Context, installmentID string) (*models.ReceiptDetail, error) {
	query := fmt.Sprintf(`SELECT rc.id, rc.installment_id, rc.number, rc.issued_at, rc.amount, rc.method, rc.issued_by,
	%s AS student_name, s.identification, s.municipality_id, m.department_id,
	i.due_date, i.amount AS installment_amount, i.amount_paid, i.status AS installment_status,
	db.remaining AS debt_remaining
FROM receipts rc
JOIN installments i ON i.id = rc.installment_id
JOIN debts db ON db.id = i.debt_id
JOIN students s ON s.id = db.student_id
JOIN municipalities m ON m.id = s.municipality_id
WHERE rc.installment_id = $1
ORDER BY rc.number DESC
LIMIT 1`, studentNameSQL)
	var detail models.ReceiptDetail
	if err := r.db.GetContext(ctx, &detail, query, installmentID); err != nil {
		return nil, err
	}
	return &detail, nil
}
