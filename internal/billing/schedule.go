// Package billing holds the pure ledger rules: installment scheduling, the
// installment state machine, debt recompute and agreement reconciliation.
// Nothing here touches storage; services feed it rows and persist the result.
package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the cadence used to spread a debt into installments.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether the frequency is supported.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// DefaultMinGapDays separates a down payment from the first regular due date.
const DefaultMinGapDays = 10

// DefaultRoundingUnit is the currency step installment amounts are floored to.
var DefaultRoundingUnit = decimal.NewFromInt(1000)

// ScheduledInstallment is one row of a generated plan.
type ScheduledInstallment struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// Plan is a schedule with an optional down payment that is already settled.
type Plan struct {
	DownPayment  *ScheduledInstallment  `json:"down_payment,omitempty"`
	Installments []ScheduledInstallment `json:"installments"`
}

// HasZeroInstallment reports whether rounding left any scheduled installment
// without an amount, which happens when total/n is below the rounding unit.
func (p Plan) HasZeroInstallment() bool {
	for _, item := range p.Installments {
		if !item.Amount.IsPositive() {
			return true
		}
	}
	return false
}

// Scheduler spreads debts over calendar dates.
type Scheduler struct {
	unit   decimal.Decimal
	minGap int
}

// NewScheduler builds a scheduler. A non-positive unit disables rounding to
// currency steps (amounts are then truncated to cents); a non-positive gap
// falls back to DefaultMinGapDays.
func NewScheduler(unit decimal.Decimal, minGapDays int) *Scheduler {
	if minGapDays <= 0 {
		minGapDays = DefaultMinGapDays
	}
	return &Scheduler{unit: unit, minGap: minGapDays}
}

// DefaultScheduler uses a 1000 unit and a 10 day gap.
func DefaultScheduler() *Scheduler {
	return NewScheduler(DefaultRoundingUnit, DefaultMinGapDays)
}

// GenerateSchedule spreads total over [start, end] using the default scheduler.
func GenerateSchedule(start, end time.Time, frequency Frequency, total decimal.Decimal) []ScheduledInstallment {
	return DefaultScheduler().Generate(start, end, frequency, total)
}

// Generate returns installments whose amounts sum exactly to total. Every
// installment but the last carries floor(total/n) rounded down to the unit;
// the last absorbs the remainder. The result is empty when no date falls in
// the range.
func (s *Scheduler) Generate(start, end time.Time, frequency Frequency, total decimal.Decimal) []ScheduledInstallment {
	start, end = Date(start), Date(end)
	return s.spread(DueDates(start, end, frequency, start.Day()), total)
}

// PlanWithDownPayment schedules total minus the down payment starting at the
// first regular date at least minGap days after start. The down payment is
// due on start. A down payment covering the whole total yields a plan with
// no further installments.
func (s *Scheduler) PlanWithDownPayment(start, end time.Time, frequency Frequency, total, downPayment decimal.Decimal) Plan {
	start, end = Date(start), Date(end)
	if !downPayment.IsPositive() {
		return Plan{Installments: s.Generate(start, end, frequency, total)}
	}
	if downPayment.GreaterThanOrEqual(total) {
		return Plan{DownPayment: &ScheduledInstallment{DueDate: start, Amount: total}}
	}

	first := s.NextDueDate(start, frequency, start.Day())
	dates := DueDates(first, end, frequency, start.Day())
	return Plan{
		DownPayment:  &ScheduledInstallment{DueDate: start, Amount: downPayment},
		Installments: s.spread(dates, total.Sub(downPayment)),
	}
}

// NextDueDate returns the first date of the frequency's calendar that falls at
// least minGap days after base. anchorDay is the monthly day of month; zero
// means base's day.
func (s *Scheduler) NextDueDate(base time.Time, frequency Frequency, anchorDay int) time.Time {
	base = Date(base)
	threshold := base.AddDate(0, 0, s.minGap)

	switch frequency {
	case FrequencyWeekly:
		return nextFriday(threshold)
	case FrequencyBiweekly:
		month := firstOfMonth(threshold)
		for {
			mid := time.Date(month.Year(), month.Month(), 15, 0, 0, 0, 0, time.UTC)
			if !mid.Before(threshold) {
				return mid
			}
			last := lastOfMonth(month)
			if !last.Before(threshold) {
				return last
			}
			month = month.AddDate(0, 1, 0)
		}
	default:
		if anchorDay <= 0 {
			anchorDay = base.Day()
		}
		for i := 0; ; i++ {
			candidate := monthDay(base.Year(), base.Month()+time.Month(i), anchorDay)
			if !candidate.Before(threshold) {
				return candidate
			}
		}
	}
}

func (s *Scheduler) spread(dates []time.Time, total decimal.Decimal) []ScheduledInstallment {
	n := len(dates)
	if n == 0 {
		return nil
	}

	share := total.Div(decimal.NewFromInt(int64(n)))
	if s.unit.IsPositive() {
		share = share.Div(s.unit).Floor().Mul(s.unit)
	} else {
		share = share.Truncate(2)
	}

	out := make([]ScheduledInstallment, n)
	for i, due := range dates {
		out[i] = ScheduledInstallment{DueDate: due, Amount: share}
	}
	out[n-1].Amount = total.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))
	return out
}

// DueDates lists the calendar dates of a frequency within [start, end],
// ascending and without duplicates. Monthly dates use anchorDay clamped to
// each month's last day.
func DueDates(start, end time.Time, frequency Frequency, anchorDay int) []time.Time {
	start, end = Date(start), Date(end)
	if end.Before(start) {
		return nil
	}

	var dates []time.Time
	switch frequency {
	case FrequencyWeekly:
		for d := nextFriday(start); !d.After(end); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	case FrequencyBiweekly:
		for month := firstOfMonth(start); !month.After(end); month = month.AddDate(0, 1, 0) {
			for _, d := range []time.Time{
				time.Date(month.Year(), month.Month(), 15, 0, 0, 0, 0, time.UTC),
				lastOfMonth(month),
			} {
				if !d.Before(start) && !d.After(end) {
					dates = append(dates, d)
				}
			}
		}
	case FrequencyMonthly:
		if anchorDay <= 0 {
			anchorDay = start.Day()
		}
		for i := 0; ; i++ {
			d := monthDay(start.Year(), start.Month()+time.Month(i), anchorDay)
			if d.After(end) {
				break
			}
			if !d.Before(start) {
				dates = append(dates, d)
			}
		}
	default:
		return nil
	}

	return dedupe(dates)
}

// Date truncates t to its calendar day at UTC midnight. Ledger dates are
// civil dates; the clock's zone is applied once by Today.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Date(now.In(loc))
}

// DaysBetween counts whole days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

func nextFriday(d time.Time) time.Time {
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

func firstOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func lastOfMonth(d time.Time) time.Time {
	return firstOfMonth(d).AddDate(0, 1, -1)
}

// monthDay builds day-of-month in the given (possibly overflowing) month,
// clamped to the month's last day.
func monthDay(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	if last := lastOfMonth(first).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func dedupe(dates []time.Time) []time.Time {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:0]
	for i, d := range dates {
		if i > 0 && d.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, d)
	}
	return out
}
