package billing

import (
	"time"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// ReconcileAgreement moves an issued agreement to fulfilled once its
// installment received money, or to broken once the promised date passed.
// Fulfilled and broken are terminal. It reports whether the status changed.
func ReconcileAgreement(agreement *models.PaymentAgreement, installment models.InstallmentStatus, today time.Time) bool {
	if agreement == nil || agreement.Status != models.AgreementIssued {
		return false
	}
	switch {
	case installment == models.InstallmentPaid || installment == models.InstallmentPartiallyPaid:
		agreement.Status = models.AgreementFulfilled
	case Date(agreement.PromisedDate).Before(Date(today)):
		agreement.Status = models.AgreementBroken
	default:
		return false
	}
	return true
}

// DaysRemaining counts days until the promised date; negative once it passed.
func DaysRemaining(agreement models.PaymentAgreement, today time.Time) int {
	return DaysBetween(today, agreement.PromisedDate)
}
