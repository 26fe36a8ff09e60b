package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is issued for every recorded payment.
type Receipt struct {
	ID            string          `db:"id" json:"id"`
	InstallmentID string          `db:"installment_id" json:"installment_id"`
	Number        int64           `db:"number" json:"number"`
	IssuedAt      time.Time       `db:"issued_at" json:"issued_at"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Method        PaymentMethod   `db:"method" json:"method"`
	IssuedBy      *string         `db:"issued_by" json:"issued_by,omitempty"`
}

// Code renders the receipt number zero padded.
func (r Receipt) Code() string {
	return fmt.Sprintf("%06d", r.Number)
}

// ReceiptDetail carries everything printed on a receipt.
type ReceiptDetail struct {
	Receipt
	StudentName    string            `db:"student_name" json:"student_name"`
	Identification *string           `db:"identification" json:"identification,omitempty"`
	MunicipalityID string            `db:"municipality_id" json:"municipality_id"`
	DepartmentID   string            `db:"department_id" json:"department_id"`
	DueDate        time.Time         `db:"due_date" json:"due_date"`
	InstallmentAmt decimal.Decimal   `db:"installment_amount" json:"installment_amount"`
	AmountPaid     decimal.Decimal   `db:"amount_paid" json:"amount_paid"`
	Status         InstallmentStatus `db:"installment_status" json:"installment_status"`
	DebtRemaining  decimal.Decimal   `db:"debt_remaining" json:"debt_remaining"`
}
