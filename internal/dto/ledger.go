package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// CreateDebtRequest opens the tuition debt of a student.
type CreateDebtRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	Total     decimal.Decimal `json:"total"`
}

// UpdateDebtRequest changes the agreed total of a debt.
type UpdateDebtRequest struct {
	Total decimal.Decimal `json:"total"`
}

// InstallmentRequest creates or edits an installment by hand.
type InstallmentRequest struct {
	Amount        decimal.Decimal       `json:"amount"`
	DueDate       string                `json:"due_date" validate:"required,datetime=2006-01-02"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
	PaymentMethod *models.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=cash transfer card"`
	PaymentDate   *string               `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

// PaymentRequest records money received against an installment.
type PaymentRequest struct {
	Amount    decimal.Decimal      `json:"amount"`
	Method    models.PaymentMethod `json:"method" validate:"required,oneof=cash transfer card"`
	Date      *string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	CarryOver bool                 `json:"carry_over"`
}

// GenerateInstallmentsRequest asks the scheduler to fill a debt.
type GenerateInstallmentsRequest struct {
	Frequency         string                `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	StartDate         *string               `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate           *string               `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	DownPayment       decimal.Decimal       `json:"down_payment"`
	DownPaymentMethod *models.PaymentMethod `json:"down_payment_method" validate:"omitempty,oneof=cash transfer card"`
}

// PaymentResult is returned after a payment is recorded.
type PaymentResult struct {
	Installment models.Installment  `json:"installment"`
	CarriedTo   *models.Installment `json:"carried_to,omitempty"`
	Receipt     models.Receipt      `json:"receipt"`
	Debt        models.Debt         `json:"debt"`
}

// AgreementRequest creates a payment agreement on an installment.
type AgreementRequest struct {
	PromisedDate string  `json:"promised_date" validate:"required,datetime=2006-01-02"`
	Note         *string `json:"note" validate:"omitempty,max=500"`
}
