package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is a pure function of amounts and dates.
type InstallmentStatus string

const (
	InstallmentIssued        InstallmentStatus = "issued"
	InstallmentPartiallyPaid InstallmentStatus = "partially_paid"
	InstallmentPaid          InstallmentStatus = "paid"
	InstallmentOverdue       InstallmentStatus = "overdue"
)

// Open reports whether the installment still expects money.
func (s InstallmentStatus) Open() bool {
	return s != InstallmentPaid
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
)

// Valid reports whether the method is supported.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentCard:
		return true
	}
	return false
}

// Installment is one scheduled portion of a debt.
type Installment struct {
	ID            string            `db:"id" json:"id"`
	DebtID        string            `db:"debt_id" json:"debt_id"`
	Amount        decimal.Decimal   `db:"amount" json:"amount"`
	AmountPaid    decimal.Decimal   `db:"amount_paid" json:"amount_paid"`
	DueDate       time.Time         `db:"due_date" json:"due_date"`
	PaymentDate   *time.Time        `db:"payment_date" json:"payment_date,omitempty"`
	Status        InstallmentStatus `db:"status" json:"status"`
	PaymentMethod *PaymentMethod    `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// HasPayments is true once any money has been applied.
func (i Installment) HasPayments() bool {
	return i.AmountPaid.IsPositive()
}

// Balance is what is still owed on the installment, never negative.
func (i Installment) Balance() decimal.Decimal {
	balance := i.Amount.Sub(i.AmountPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}
