package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// InstallmentStatus derives the status of an installment:
//
//	paid >= amount          -> paid
//	0 < paid < amount       -> partially_paid
//	paid = 0, due < today   -> overdue
//	otherwise               -> issued
func InstallmentStatus(amount, paid decimal.Decimal, due, today time.Time) models.InstallmentStatus {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return models.InstallmentPaid
	case paid.IsPositive():
		return models.InstallmentPartiallyPaid
	case Date(due).Before(Date(today)):
		return models.InstallmentOverdue
	default:
		return models.InstallmentIssued
	}
}

// ApplyInstallment runs before every installment write: it stamps the payment
// date the first time money arrives and refreshes the status.
func ApplyInstallment(inst *models.Installment, today time.Time) {
	if inst == nil {
		return
	}
	if inst.AmountPaid.IsPositive() && inst.PaymentDate == nil {
		d := Date(today)
		inst.PaymentDate = &d
	}
	inst.Status = InstallmentStatus(inst.Amount, inst.AmountPaid, inst.DueDate, today)
}
