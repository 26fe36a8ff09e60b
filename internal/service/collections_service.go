package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/billing"
	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type collectionsRepository interface {
	Overdue(ctx context.Context, filter models.CollectionFilter, today time.Time) ([]models.CollectionRow, error)
	Upcoming(ctx context.Context, filter models.CollectionFilter, today time.Time) ([]models.CollectionRow, error)
	Clearances(ctx context.Context, filter models.CollectionFilter) ([]models.StudentBalance, error)
	Scholarships(ctx context.Context, filter models.CollectionFilter) ([]models.StudentBalance, error)
	MarkOverdue(ctx context.Context, scope models.Scope, today time.Time) (int64, error)
	CountPendingOverdue(ctx context.Context, scope models.Scope, today time.Time) (int, error)
	CollectedByMethod(ctx context.Context, filter models.ReportFilter, from, to time.Time) ([]models.MethodTotal, error)
	DueInPeriod(ctx context.Context, filter models.ReportFilter, from, to time.Time) (decimal.Decimal, error)
	CollectedUpTo(ctx context.Context, filter models.ReportFilter, before time.Time) (decimal.Decimal, error)
	PortfolioValue(ctx context.Context, filter models.ReportFilter, upTo time.Time) (decimal.Decimal, error)
	IncomeByMonth(ctx context.Context, scope models.Scope, municipalityID string, year int, loc *time.Location) ([]models.MonthAmount, error)
	ExpensesByMonth(ctx context.Context, scope models.Scope, municipalityID string, year int) ([]models.MonthAmount, error)
}

type collectionTargetReader interface {
	FindTarget(ctx context.Context, year, month int) (*models.CollectionTarget, error)
}

// dayRange is an inclusive range of days; max < 0 means unbounded.
type dayRange struct {
	min, max int
}

func (r dayRange) contains(days int) bool {
	return days >= r.min && (r.max < 0 || days <= r.max)
}

var overdueBuckets = map[string]dayRange{
	"0-30":  {min: 0, max: 30},
	"31-60": {min: 31, max: 60},
	"61-90": {min: 61, max: 90},
	"90+":   {min: 91, max: -1},
}

var upcomingWindows = map[string]dayRange{
	"0-7":   {min: 0, max: 7},
	"8-15":  {min: 8, max: 15},
	"16-30": {min: 16, max: 30},
	"30+":   {min: 31, max: -1},
}

// CollectionsService answers the collections desk: overdue and upcoming
// installments, clearances, maintenance and the daily report.
type CollectionsService struct {
	repo     collectionsRepository
	targets  collectionTargetReader
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	loc      *time.Location
	cacheTTL time.Duration
	now      func() time.Time
}

// CollectionsConfig tunes report caching and the clock.
type CollectionsConfig struct {
	Location *time.Location
	CacheTTL time.Duration
}

// NewCollectionsService constructs a CollectionsService.
func NewCollectionsService(repo collectionsRepository, targets collectionTargetReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg CollectionsConfig) *CollectionsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CollectionsService{
		repo:     repo,
		targets:  targets,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		loc:      cfg.Location,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
	}
}

func (s *CollectionsService) today() time.Time {
	return billing.Today(s.now(), s.loc)
}

// startOf returns the instant the civil date begins in the billing timezone.
func (s *CollectionsService) startOf(date time.Time) time.Time {
	loc := s.loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// Overdue lists unpaid installments past due, latest first.
func (s *CollectionsService) Overdue(ctx context.Context, filter models.CollectionFilter, actor Capabilities) ([]models.CollectionRow, error) {
	bucket, err := parseRange(filter.Bucket, overdueBuckets)
	if err != nil {
		return nil, err
	}
	filter.Scope = actor.Scope
	today := s.today()
	rows, err := s.repo.Overdue(ctx, filter, today)
	if err != nil {
		return nil, internalError(err, "failed to list overdue installments")
	}

	out := make([]models.CollectionRow, 0, len(rows))
	for _, row := range rows {
		row.Days = billing.DaysBetween(row.DueDate, today)
		if bucket != nil && !bucket.contains(row.Days) {
			continue
		}
		row.ReminderMessage = overdueReminder(row)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Days > out[j].Days })
	return out, nil
}

// Upcoming lists issued installments not yet due, soonest first.
func (s *CollectionsService) Upcoming(ctx context.Context, filter models.CollectionFilter, actor Capabilities) ([]models.CollectionRow, error) {
	window, err := parseRange(filter.Bucket, upcomingWindows)
	if err != nil {
		return nil, err
	}
	filter.Scope = actor.Scope
	today := s.today()
	rows, err := s.repo.Upcoming(ctx, filter, today)
	if err != nil {
		return nil, internalError(err, "failed to list upcoming installments")
	}

	out := make([]models.CollectionRow, 0, len(rows))
	for _, row := range rows {
		row.Days = billing.DaysBetween(today, row.DueDate)
		if window != nil && !window.contains(row.Days) {
			continue
		}
		row.ReminderMessage = upcomingReminder(row)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out, nil
}

// Clearances lists students whose debt is fully paid.
func (s *CollectionsService) Clearances(ctx context.Context, filter models.CollectionFilter, actor Capabilities) ([]models.StudentBalance, error) {
	filter.Scope = actor.Scope
	rows, err := s.repo.Clearances(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list clearances")
	}
	return rows, nil
}

// Scholarships lists scholarship students.
func (s *CollectionsService) Scholarships(ctx context.Context, filter models.CollectionFilter, actor Capabilities) ([]models.StudentBalance, error) {
	filter.Scope = actor.Scope
	rows, err := s.repo.Scholarships(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list scholarships")
	}
	return rows, nil
}

// PendingSweep counts issued installments that a sweep would mark overdue.
func (s *CollectionsService) PendingSweep(ctx context.Context, actor Capabilities) (int, error) {
	count, err := s.repo.CountPendingOverdue(ctx, actor.Scope, s.today())
	if err != nil {
		return 0, internalError(err, "failed to count pending overdue installments")
	}
	return count, nil
}

// SweepOverdue marks past due issued installments as overdue.
func (s *CollectionsService) SweepOverdue(ctx context.Context, actor Capabilities) (int64, error) {
	changed, err := s.repo.MarkOverdue(ctx, actor.Scope, s.today())
	if err != nil {
		return 0, internalError(err, "failed to mark overdue installments")
	}
	s.metrics.RecordSweep(changed)
	if changed > 0 {
		s.cache.Invalidate(ctx, "report:*")
	}
	s.logger.Info("overdue sweep finished", zap.Int64("changed", changed), zap.String("scope", string(actor.Scope.Kind)))
	return changed, nil
}

// DailyReport summarises collection on a date against its month.
func (s *CollectionsService) DailyReport(ctx context.Context, query dto.DailyReportQuery, actor Capabilities) (*models.DailyReport, error) {
	date := s.today()
	if query.Date != "" {
		parsed, err := dto.ParseDate(query.Date)
		if err != nil {
			return nil, validationError(err, "invalid report date")
		}
		date = parsed
	}
	var program *models.Program
	if query.Program != "" {
		p := models.Program(query.Program)
		program = &p
	}
	filter := models.ReportFilter{Date: date, MunicipalityID: query.MunicipalityID, Program: program, Scope: actor.Scope}

	key := s.cache.Key("report", "daily", date.Format(dto.DateLayout), scopeKey(actor.Scope), query.MunicipalityID, query.Program)
	var cached models.DailyReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	started := time.Now()
	report, err := s.buildDailyReport(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReport("daily", time.Since(started))
	s.cache.Set(ctx, key, report, s.cacheTTL)
	return report, nil
}

func (s *CollectionsService) buildDailyReport(ctx context.Context, filter models.ReportFilter) (*models.DailyReport, error) {
	date := filter.Date
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	dayStart := s.startOf(date)
	dayEnd := s.startOf(date.AddDate(0, 0, 1))

	byMethod, err := s.repo.CollectedByMethod(ctx, filter, dayStart, dayEnd)
	if err != nil {
		return nil, internalError(err, "failed to sum collections of the day")
	}
	inMonth, err := s.repo.CollectedByMethod(ctx, filter, s.startOf(monthStart), dayEnd)
	if err != nil {
		return nil, internalError(err, "failed to sum collections of the month")
	}
	target, err := s.monthTarget(ctx, filter, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	portfolio, err := s.repo.PortfolioValue(ctx, filter, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, internalError(err, "failed to compute portfolio value")
	}
	collectedToDate, err := s.repo.CollectedUpTo(ctx, filter, dayEnd)
	if err != nil {
		return nil, internalError(err, "failed to sum collections to date")
	}

	if byMethod == nil {
		byMethod = []models.MethodTotal{}
	}
	collectedInMonth := sumMethods(inMonth)
	compliance := decimal.Zero
	if target.IsPositive() {
		compliance = collectedInMonth.Div(target).Mul(decimal.NewFromInt(100)).Round(2)
	}
	outstanding := portfolio.Sub(collectedToDate)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &models.DailyReport{
		Date:              date,
		CollectedOnDate:   sumMethods(byMethod),
		ByMethod:          byMethod,
		MonthTarget:       target,
		CollectedInMonth:  collectedInMonth,
		CompliancePercent: compliance,
		PortfolioValue:    portfolio,
		CollectedToDate:   collectedToDate,
		Outstanding:       outstanding,
		GeneratedAt:       s.now().UTC(),
	}, nil
}

// monthTarget prefers the configured collection target and falls back to
// what active students owe in the month.
func (s *CollectionsService) monthTarget(ctx context.Context, filter models.ReportFilter, from, to time.Time) (decimal.Decimal, error) {
	if s.targets != nil {
		target, err := s.targets.FindTarget(ctx, from.Year(), int(from.Month()))
		switch {
		case err == nil:
			return target.Amount, nil
		case !errors.Is(err, sql.ErrNoRows):
			return decimal.Zero, internalError(err, "failed to load collection target")
		}
	}
	due, err := s.repo.DueInPeriod(ctx, filter, from, to)
	if err != nil {
		return decimal.Zero, internalError(err, "failed to sum amounts due in month")
	}
	return due, nil
}

// IncomeExpenses compares money collected with expenses for every month of year.
func (s *CollectionsService) IncomeExpenses(ctx context.Context, year int, municipalityID string, actor Capabilities) ([]models.MonthlyFlow, error) {
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}
	started := time.Now()
	income, err := s.repo.IncomeByMonth(ctx, actor.Scope, municipalityID, year, s.loc)
	if err != nil {
		return nil, internalError(err, "failed to sum income")
	}
	expenses, err := s.repo.ExpensesByMonth(ctx, actor.Scope, municipalityID, year)
	if err != nil {
		return nil, internalError(err, "failed to sum expenses")
	}

	flows := make([]models.MonthlyFlow, 12)
	for i := range flows {
		flows[i] = models.MonthlyFlow{Month: i + 1, Income: decimal.Zero, Expenses: decimal.Zero}
	}
	for _, row := range income {
		if row.Month >= 1 && row.Month <= 12 {
			flows[row.Month-1].Income = row.Amount
		}
	}
	for _, row := range expenses {
		if row.Month >= 1 && row.Month <= 12 {
			flows[row.Month-1].Expenses = row.Amount
		}
	}
	for i := range flows {
		flows[i].Net = flows[i].Income.Sub(flows[i].Expenses)
	}
	s.metrics.ObserveReport("income_expenses", time.Since(started))
	return flows, nil
}

func parseRange(raw string, ranges map[string]dayRange) (*dayRange, error) {
	if raw == "" || raw == "all" {
		return nil, nil
	}
	r, ok := ranges[raw]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown range %q", raw))
	}
	return &r, nil
}

func sumMethods(totals []models.MethodTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Amount)
	}
	return sum
}

func scopeKey(scope models.Scope) string {
	switch scope.Kind {
	case models.ScopeDepartment:
		return "dep-" + scope.DepartmentID
	case models.ScopeMunicipality:
		return "mun-" + scope.MunicipalityID
	default:
		return string(scope.Kind)
	}
}

func overdueReminder(row models.CollectionRow) string {
	lines := []string{
		fmt.Sprintf("Hola %s,", row.StudentName),
		fmt.Sprintf("Le recordamos que su cuota con vencimiento %s tiene %d días de atraso.", row.DueDate.Format(dto.DateLayout), row.Days),
		fmt.Sprintf("Valor cuota: $%s. Abonado: $%s.", row.Amount.StringFixed(0), row.AmountPaid.StringFixed(0)),
		fmt.Sprintf("Saldo pendiente de la deuda: $%s.", row.DebtRemaining.StringFixed(0)),
	}
	return url.PathEscape(strings.Join(lines, "\n"))
}

func upcomingReminder(row models.CollectionRow) string {
	lines := []string{
		fmt.Sprintf("Hola %s,", row.StudentName),
		fmt.Sprintf("Su próxima cuota de $%s vence el %s (en %d días).", row.Amount.StringFixed(0), row.DueDate.Format(dto.DateLayout), row.Days),
	}
	return url.PathEscape(strings.Join(lines, "\n"))
}
