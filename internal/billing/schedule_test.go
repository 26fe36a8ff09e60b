package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func sum(items []ScheduledInstallment) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

func TestGenerateScheduleMonthlyEvenSplit(t *testing.T) {
	items := GenerateSchedule(day(2025, 1, 1), day(2025, 3, 31), FrequencyMonthly, dec(300000))

	require.Len(t, items, 3)
	assert.Equal(t, day(2025, 1, 1), items[0].DueDate)
	assert.Equal(t, day(2025, 2, 1), items[1].DueDate)
	assert.Equal(t, day(2025, 3, 1), items[2].DueDate)
	for _, item := range items {
		assert.True(t, item.Amount.Equal(dec(100000)), "amount %s", item.Amount)
	}
}

func TestGenerateScheduleMonthlyClampsToMonthEnd(t *testing.T) {
	items := GenerateSchedule(day(2025, 1, 31), day(2025, 4, 30), FrequencyMonthly, dec(400000))

	require.Len(t, items, 4)
	assert.Equal(t, day(2025, 1, 31), items[0].DueDate)
	assert.Equal(t, day(2025, 2, 28), items[1].DueDate)
	assert.Equal(t, day(2025, 3, 31), items[2].DueDate)
	assert.Equal(t, day(2025, 4, 30), items[3].DueDate)
}

func TestGenerateScheduleMonthlyLeapYear(t *testing.T) {
	items := GenerateSchedule(day(2024, 1, 30), day(2024, 3, 30), FrequencyMonthly, dec(90000))

	require.Len(t, items, 3)
	assert.Equal(t, day(2024, 2, 29), items[1].DueDate)
	assert.Equal(t, day(2024, 3, 30), items[2].DueDate)
}

func TestGenerateScheduleRemainderGoesToLast(t *testing.T) {
	items := GenerateSchedule(day(2025, 1, 1), day(2025, 3, 31), FrequencyMonthly, dec(1000000))

	require.Len(t, items, 3)
	assert.True(t, items[0].Amount.Equal(dec(333000)))
	assert.True(t, items[1].Amount.Equal(dec(333000)))
	assert.True(t, items[2].Amount.Equal(dec(334000)))
	assert.True(t, sum(items).Equal(dec(1000000)))
}

func TestGenerateScheduleWeeklyFridays(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	items := GenerateSchedule(day(2025, 1, 1), day(2025, 1, 31), FrequencyWeekly, dec(500000))

	require.Len(t, items, 5)
	for _, item := range items {
		assert.Equal(t, time.Friday, item.DueDate.Weekday())
	}
	assert.Equal(t, day(2025, 1, 3), items[0].DueDate)
	assert.Equal(t, day(2025, 1, 31), items[4].DueDate)
	assert.True(t, sum(items).Equal(dec(500000)))
}

func TestGenerateScheduleBiweekly(t *testing.T) {
	items := GenerateSchedule(day(2025, 1, 10), day(2025, 2, 28), FrequencyBiweekly, dec(400000))

	require.Len(t, items, 4)
	assert.Equal(t, day(2025, 1, 15), items[0].DueDate)
	assert.Equal(t, day(2025, 1, 31), items[1].DueDate)
	assert.Equal(t, day(2025, 2, 15), items[2].DueDate)
	assert.Equal(t, day(2025, 2, 28), items[3].DueDate)
}

func TestGenerateScheduleEmptyRange(t *testing.T) {
	assert.Empty(t, GenerateSchedule(day(2025, 3, 1), day(2025, 1, 1), FrequencyMonthly, dec(100000)))
	// Saturday to Thursday holds no Friday.
	assert.Empty(t, GenerateSchedule(day(2025, 1, 4), day(2025, 1, 9), FrequencyWeekly, dec(100000)))
	assert.Empty(t, GenerateSchedule(day(2025, 1, 1), day(2025, 3, 1), Frequency("daily"), dec(100000)))
}

func TestGenerateScheduleSumProperty(t *testing.T) {
	totals := []int64{1, 999, 1000, 123457, 2500000, 7777777}
	frequencies := []Frequency{FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly}
	for _, total := range totals {
		for _, f := range frequencies {
			items := GenerateSchedule(day(2025, 2, 3), day(2025, 11, 20), f, dec(total))
			require.NotEmpty(t, items)
			assert.True(t, sum(items).Equal(dec(total)), "total %d frequency %s", total, f)
			for i := 1; i < len(items); i++ {
				assert.True(t, items[i].DueDate.After(items[i-1].DueDate))
			}
		}
	}
}

func TestSchedulerWithoutRoundingUnit(t *testing.T) {
	s := NewScheduler(decimal.Zero, 0)
	items := s.Generate(day(2025, 1, 1), day(2025, 3, 31), FrequencyMonthly, dec(100))

	require.Len(t, items, 3)
	assert.Equal(t, "33.33", items[0].Amount.String())
	assert.Equal(t, "33.34", items[2].Amount.String())
}

func TestNextDueDate(t *testing.T) {
	s := DefaultScheduler()

	// 2025-01-01 + 10 days = Saturday 2025-01-11; next Friday is the 17th.
	assert.Equal(t, day(2025, 1, 17), s.NextDueDate(day(2025, 1, 1), FrequencyWeekly, 0))
	assert.Equal(t, day(2025, 1, 15), s.NextDueDate(day(2025, 1, 1), FrequencyBiweekly, 0))
	assert.Equal(t, day(2025, 1, 31), s.NextDueDate(day(2025, 1, 10), FrequencyBiweekly, 0))
	assert.Equal(t, day(2025, 2, 15), s.NextDueDate(day(2025, 1, 25), FrequencyBiweekly, 0))
	assert.Equal(t, day(2025, 2, 5), s.NextDueDate(day(2025, 1, 5), FrequencyMonthly, 0))
	assert.Equal(t, day(2025, 2, 28), s.NextDueDate(day(2025, 1, 31), FrequencyMonthly, 31))
	assert.Equal(t, day(2025, 1, 25), s.NextDueDate(day(2025, 1, 5), FrequencyMonthly, 25))
}

func TestPlanWithDownPayment(t *testing.T) {
	s := DefaultScheduler()
	plan := s.PlanWithDownPayment(day(2025, 1, 5), day(2025, 4, 30), FrequencyMonthly, dec(1000000), dec(100000))

	require.NotNil(t, plan.DownPayment)
	assert.Equal(t, day(2025, 1, 5), plan.DownPayment.DueDate)
	assert.True(t, plan.DownPayment.Amount.Equal(dec(100000)))
	require.Len(t, plan.Installments, 3)
	assert.Equal(t, day(2025, 2, 5), plan.Installments[0].DueDate)
	assert.True(t, sum(plan.Installments).Equal(dec(900000)))
}

func TestPlanWithDownPaymentCoversTotal(t *testing.T) {
	plan := DefaultScheduler().PlanWithDownPayment(day(2025, 1, 5), day(2025, 4, 30), FrequencyMonthly, dec(500000), dec(600000))

	require.NotNil(t, plan.DownPayment)
	assert.True(t, plan.DownPayment.Amount.Equal(dec(500000)))
	assert.Empty(t, plan.Installments)
}

func TestPlanWithoutDownPayment(t *testing.T) {
	plan := DefaultScheduler().PlanWithDownPayment(day(2025, 1, 1), day(2025, 3, 31), FrequencyMonthly, dec(300000), decimal.Zero)

	assert.Nil(t, plan.DownPayment)
	assert.Len(t, plan.Installments, 3)
}

func TestTodayUsesLocation(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	now := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, day(2025, 2, 28), Today(now, bogota))
	assert.Equal(t, day(2025, 3, 1), Today(now, nil))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 31, DaysBetween(day(2025, 1, 1), day(2025, 2, 1)))
	assert.Equal(t, -1, DaysBetween(day(2025, 1, 2), day(2025, 1, 1)))
}

func TestPlanHasZeroInstallmentWhenShareRoundsAway(t *testing.T) {
	plan := DefaultScheduler().PlanWithDownPayment(day(2025, 1, 1), day(2025, 12, 31), FrequencyWeekly, dec(30000), decimal.Zero)

	require.Len(t, plan.Installments, 52)
	assert.True(t, plan.Installments[0].Amount.IsZero())
	assert.True(t, plan.Installments[51].Amount.Equal(dec(30000)))
	assert.True(t, plan.HasZeroInstallment())

	monthly := DefaultScheduler().PlanWithDownPayment(day(2025, 1, 1), day(2025, 3, 31), FrequencyMonthly, dec(300000), decimal.Zero)
	assert.False(t, monthly.HasZeroInstallment())
	assert.False(t, Plan{}.HasZeroInstallment())
}
