package billing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// Balance is the derived state of a debt.
type Balance struct {
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Status    models.DebtStatus
	Count     int
}

// RecomputeDebt derives remaining and status from the installments.
// remaining = max(0, total - sum(paid)). A debt is paid only when nothing
// remains, at least one installment exists and the payments cover the total;
// a zero total debt without installments stays issued.
func RecomputeDebt(total decimal.Decimal, installments []models.Installment) Balance {
	paid := decimal.Zero
	for _, inst := range installments {
		paid = paid.Add(inst.AmountPaid)
	}

	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	status := models.DebtIssued
	if remaining.IsZero() && len(installments) > 0 && paid.GreaterThanOrEqual(total) {
		status = models.DebtPaid
	}

	return Balance{Paid: paid, Remaining: remaining, Status: status, Count: len(installments)}
}

// ApplyDebt writes the recomputed balance onto the debt.
func ApplyDebt(debt *models.Debt, installments []models.Installment) Balance {
	balance := RecomputeDebt(debt.Total, installments)
	debt.Remaining = balance.Remaining
	debt.Status = balance.Status
	return balance
}
