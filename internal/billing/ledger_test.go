package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/models"
)

func TestInstallmentStatus(t *testing.T) {
	today := day(2025, 3, 10)
	cases := []struct {
		name   string
		amount int64
		paid   int64
		due    time.Time
		want   models.InstallmentStatus
	}{
		{"fully paid", 100000, 100000, day(2025, 3, 1), models.InstallmentPaid},
		{"overpaid", 100000, 120000, day(2025, 4, 1), models.InstallmentPaid},
		{"partial past due stays partial", 100000, 40000, day(2025, 3, 1), models.InstallmentPartiallyPaid},
		{"unpaid past due", 100000, 0, day(2025, 3, 9), models.InstallmentOverdue},
		{"unpaid due today", 100000, 0, today, models.InstallmentIssued},
		{"unpaid future", 100000, 0, day(2025, 4, 1), models.InstallmentIssued},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InstallmentStatus(dec(tc.amount), dec(tc.paid), tc.due, today)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyInstallmentStampsPaymentDateOnce(t *testing.T) {
	inst := &models.Installment{Amount: dec(100000), AmountPaid: dec(50000), DueDate: day(2025, 3, 1)}

	ApplyInstallment(inst, day(2025, 3, 5))
	require.NotNil(t, inst.PaymentDate)
	assert.Equal(t, day(2025, 3, 5), *inst.PaymentDate)
	assert.Equal(t, models.InstallmentPartiallyPaid, inst.Status)

	inst.AmountPaid = dec(100000)
	ApplyInstallment(inst, day(2025, 3, 20))
	assert.Equal(t, day(2025, 3, 5), *inst.PaymentDate)
	assert.Equal(t, models.InstallmentPaid, inst.Status)
}

func TestApplyInstallmentWithoutPayment(t *testing.T) {
	inst := &models.Installment{Amount: dec(100000), AmountPaid: decimal.Zero, DueDate: day(2025, 3, 1)}
	ApplyInstallment(inst, day(2025, 3, 5))

	assert.Nil(t, inst.PaymentDate)
	assert.Equal(t, models.InstallmentOverdue, inst.Status)
}

func TestRecomputeDebtTwoPayments(t *testing.T) {
	installments := []models.Installment{
		{Amount: dec(250000), AmountPaid: dec(200000)},
		{Amount: dec(250000), AmountPaid: decimal.Zero},
	}
	balance := RecomputeDebt(dec(500000), installments)
	assert.True(t, balance.Remaining.Equal(dec(300000)))
	assert.Equal(t, models.DebtIssued, balance.Status)

	installments[1].AmountPaid = dec(300000)
	balance = RecomputeDebt(dec(500000), installments)
	assert.True(t, balance.Remaining.IsZero())
	assert.Equal(t, models.DebtPaid, balance.Status)
}

func TestRecomputeDebtNeverNegative(t *testing.T) {
	balance := RecomputeDebt(dec(100000), []models.Installment{{Amount: dec(100000), AmountPaid: dec(150000)}})
	assert.True(t, balance.Remaining.IsZero())
	assert.Equal(t, models.DebtPaid, balance.Status)
	assert.True(t, balance.Paid.Equal(dec(150000)))
}

func TestRecomputeDebtRequiresInstallments(t *testing.T) {
	balance := RecomputeDebt(decimal.Zero, nil)
	assert.True(t, balance.Remaining.IsZero())
	assert.Equal(t, models.DebtIssued, balance.Status)
}

func TestApplyDebt(t *testing.T) {
	debt := &models.Debt{Total: dec(300000), Status: models.DebtPaid}
	ApplyDebt(debt, []models.Installment{{Amount: dec(300000), AmountPaid: dec(100000)}})

	assert.True(t, debt.Remaining.Equal(dec(200000)))
	assert.Equal(t, models.DebtIssued, debt.Status)
}

func TestReconcileAgreement(t *testing.T) {
	today := day(2025, 3, 10)
	issued := func(promised time.Time) *models.PaymentAgreement {
		return &models.PaymentAgreement{Status: models.AgreementIssued, PromisedDate: promised}
	}

	a := issued(day(2025, 3, 20))
	assert.True(t, ReconcileAgreement(a, models.InstallmentPartiallyPaid, today))
	assert.Equal(t, models.AgreementFulfilled, a.Status)

	a = issued(day(2025, 3, 9))
	assert.True(t, ReconcileAgreement(a, models.InstallmentOverdue, today))
	assert.Equal(t, models.AgreementBroken, a.Status)

	a = issued(today)
	assert.False(t, ReconcileAgreement(a, models.InstallmentOverdue, today))
	assert.Equal(t, models.AgreementIssued, a.Status)

	a = &models.PaymentAgreement{Status: models.AgreementBroken, PromisedDate: day(2025, 3, 1)}
	assert.False(t, ReconcileAgreement(a, models.InstallmentPaid, today))
	assert.Equal(t, models.AgreementBroken, a.Status)
}

func TestDaysRemaining(t *testing.T) {
	a := models.PaymentAgreement{PromisedDate: day(2025, 3, 15)}
	assert.Equal(t, 5, DaysRemaining(a, day(2025, 3, 10)))
}

func TestCarryOverShortfall(t *testing.T) {
	current := &models.Installment{ID: "i1", DebtID: "d1", Amount: dec(100000), AmountPaid: dec(60000), DueDate: day(2025, 1, 1)}
	siblings := []models.Installment{
		{ID: "i3", DebtID: "d1", Amount: dec(100000), DueDate: day(2025, 3, 1), Status: models.InstallmentIssued},
		{ID: "i2", DebtID: "d1", Amount: dec(100000), DueDate: day(2025, 2, 1), Status: models.InstallmentIssued},
	}

	next := CarryOver(current, siblings)
	require.NotNil(t, next)
	assert.Equal(t, "i2", next.ID)
	assert.True(t, current.Amount.Equal(dec(60000)))
	assert.True(t, next.Amount.Equal(dec(140000)))
}

func TestCarryOverExcess(t *testing.T) {
	current := &models.Installment{ID: "i1", DebtID: "d1", Amount: dec(100000), AmountPaid: dec(130000), DueDate: day(2025, 1, 1)}
	siblings := []models.Installment{
		{ID: "i2", DebtID: "d1", Amount: dec(100000), AmountPaid: dec(80000), DueDate: day(2025, 2, 1), Status: models.InstallmentPartiallyPaid},
	}

	next := CarryOver(current, siblings)
	require.NotNil(t, next)
	// only 20000 fits in the next installment
	assert.True(t, next.Amount.Equal(dec(80000)))
	assert.True(t, current.Amount.Equal(dec(120000)))
}

func TestCarryOverWithoutNextOpen(t *testing.T) {
	current := &models.Installment{ID: "i1", DebtID: "d1", Amount: dec(100000), AmountPaid: dec(60000), DueDate: day(2025, 2, 1)}
	siblings := []models.Installment{
		{ID: "i0", DebtID: "d1", Amount: dec(100000), DueDate: day(2025, 1, 1), Status: models.InstallmentOverdue},
		{ID: "i2", DebtID: "d1", Amount: dec(100000), AmountPaid: dec(100000), DueDate: day(2025, 3, 1), Status: models.InstallmentPaid},
	}

	assert.Nil(t, CarryOver(current, siblings))
	assert.True(t, current.Amount.Equal(dec(100000)))
}

func TestCarryOverKeepsDebtInvariant(t *testing.T) {
	installments := []models.Installment{
		{ID: "i1", DebtID: "d1", Amount: dec(250000), AmountPaid: dec(200000), DueDate: day(2025, 1, 1)},
		{ID: "i2", DebtID: "d1", Amount: dec(250000), DueDate: day(2025, 2, 1), Status: models.InstallmentIssued},
	}
	next := CarryOver(&installments[0], installments)
	require.NotNil(t, next)
	installments[1] = *next

	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(inst.Amount)
	}
	assert.True(t, total.Equal(dec(500000)))
	balance := RecomputeDebt(dec(500000), installments)
	assert.True(t, balance.Remaining.Equal(dec(300000)))
}
