package billing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// CarryOver moves the difference between what was paid on current and its
// amount onto the next open installment of the same debt.
//
// Shortfall: current shrinks to what was paid and the gap is added to next.
// Excess: next shrinks by the excess (never below what it already received)
// and current grows by the part that was actually credited.
//
// The sum of amounts is preserved. The touched installment is returned, or
// nil when nothing moved. Callers apply ApplyInstallment to both afterwards.
func CarryOver(current *models.Installment, siblings []models.Installment) *models.Installment {
	if current == nil {
		return nil
	}
	diff := current.Amount.Sub(current.AmountPaid)
	if diff.IsZero() || !current.AmountPaid.IsPositive() {
		return nil
	}

	next := nextOpen(current, siblings)
	if next == nil {
		return nil
	}

	if diff.IsPositive() {
		current.Amount = current.AmountPaid
		next.Amount = next.Amount.Add(diff)
		return next
	}

	excess := diff.Neg()
	room := next.Amount.Sub(next.AmountPaid)
	credited := decimal.Min(excess, room)
	if !credited.IsPositive() {
		return nil
	}
	next.Amount = next.Amount.Sub(credited)
	current.Amount = current.Amount.Add(credited)
	return next
}

func nextOpen(current *models.Installment, siblings []models.Installment) *models.Installment {
	candidates := make([]models.Installment, 0, len(siblings))
	for _, s := range siblings {
		if s.ID == current.ID || s.DebtID != current.DebtID {
			continue
		}
		if !s.Status.Open() || !s.DueDate.After(current.DueDate) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].DueDate.Before(candidates[j].DueDate) })
	next := candidates[0]
	return &next
}
