package service

import (
	"context"
	"database/sql"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
)

type collectionsRepoStub struct {
	overdue        []models.CollectionRow
	upcoming       []models.CollectionRow
	marked         int64
	pending        int
	byMethod       []models.MethodTotal
	inMonth        []models.MethodTotal
	dueInMonth     decimal.Decimal
	portfolio      decimal.Decimal
	collectedUpTo  decimal.Decimal
	income         []models.MonthAmount
	expenses       []models.MonthAmount
	lastScope      models.Scope
	portfolioUpTo  time.Time
	collectedCalls int

	collectedRanges [][2]time.Time
	collectedBefore time.Time
}

func (s *collectionsRepoStub) Overdue(ctx context.Context, filter models.CollectionFilter, today time.Time) ([]models.CollectionRow, error) {
	s.lastScope = filter.Scope
	return s.overdue, nil
}

func (s *collectionsRepoStub) Upcoming(ctx context.Context, filter models.CollectionFilter, today time.Time) ([]models.CollectionRow, error) {
	return s.upcoming, nil
}

func (s *collectionsRepoStub) Clearances(ctx context.Context, filter models.CollectionFilter) ([]models.StudentBalance, error) {
	return nil, nil
}

func (s *collectionsRepoStub) Scholarships(ctx context.Context, filter models.CollectionFilter) ([]models.StudentBalance, error) {
	return nil, nil
}

func (s *collectionsRepoStub) MarkOverdue(ctx context.Context, scope models.Scope, today time.Time) (int64, error) {
	s.lastScope = scope
	return s.marked, nil
}

func (s *collectionsRepoStub) CountPendingOverdue(ctx context.Context, scope models.Scope, today time.Time) (int, error) {
	return s.pending, nil
}

func (s *collectionsRepoStub) CollectedByMethod(ctx context.Context, filter models.ReportFilter, from, to time.Time) ([]models.MethodTotal, error) {
	s.collectedCalls++
	s.collectedRanges = append(s.collectedRanges, [2]time.Time{from, to})
	if s.collectedCalls == 1 {
		return s.byMethod, nil
	}
	return s.inMonth, nil
}

func (s *collectionsRepoStub) DueInPeriod(ctx context.Context, filter models.ReportFilter, from, to time.Time) (decimal.Decimal, error) {
	return s.dueInMonth, nil
}

func (s *collectionsRepoStub) CollectedUpTo(ctx context.Context, filter models.ReportFilter, before time.Time) (decimal.Decimal, error) {
	s.collectedBefore = before
	return s.collectedUpTo, nil
}

func (s *collectionsRepoStub) PortfolioValue(ctx context.Context, filter models.ReportFilter, upTo time.Time) (decimal.Decimal, error) {
	s.portfolioUpTo = upTo
	return s.portfolio, nil
}

func (s *collectionsRepoStub) IncomeByMonth(ctx context.Context, scope models.Scope, municipalityID string, year int, loc *time.Location) ([]models.MonthAmount, error) {
	return s.income, nil
}

func (s *collectionsRepoStub) ExpensesByMonth(ctx context.Context, scope models.Scope, municipalityID string, year int) ([]models.MonthAmount, error) {
	return s.expenses, nil
}

type targetStub struct {
	target *models.CollectionTarget
}

func (s targetStub) FindTarget(ctx context.Context, year, month int) (*models.CollectionTarget, error) {
	if s.target == nil {
		return nil, sql.ErrNoRows
	}
	return s.target, nil
}

func newCollectionsFixture(repo *collectionsRepoStub, targets collectionTargetReader) *CollectionsService {
	svc := NewCollectionsService(repo, targets, nil, NewMetricsService(), nil, CollectionsConfig{})
	svc.now = fixedClock(2024, time.March, 20)
	return svc
}

func overdueRow(id string, due time.Time) models.CollectionRow {
	return models.CollectionRow{
		InstallmentID: id,
		DueDate:       due,
		StudentName:   "Ana Gomez",
		Amount:        dec(100000),
		AmountPaid:    dec(0),
		DebtRemaining: dec(300000),
	}
}

func TestCollectionsServiceOverdueBucketsAndOrder(t *testing.T) {
	repo := &collectionsRepoStub{overdue: []models.CollectionRow{
		overdueRow("recent", day(2024, time.March, 10)),
		overdueRow("old", day(2023, time.December, 1)),
		overdueRow("mid", day(2024, time.February, 1)),
	}}
	svc := newCollectionsFixture(repo, nil)
	actor := capsFor(models.RoleCollections, "mun-1", "dep-1")

	all, err := svc.Overdue(context.Background(), models.CollectionFilter{}, actor)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "old", all[0].InstallmentID)
	assert.Equal(t, 110, all[0].Days)
	assert.Equal(t, "recent", all[2].InstallmentID)
	assert.Equal(t, 10, all[2].Days)
	assert.Equal(t, "mun-1", repo.lastScope.MunicipalityID)

	recent, err := svc.Overdue(context.Background(), models.CollectionFilter{Bucket: "0-30"}, actor)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "recent", recent[0].InstallmentID)

	message, err := url.PathUnescape(recent[0].ReminderMessage)
	require.NoError(t, err)
	assert.Contains(t, message, "10 días de atraso")
	assert.NotContains(t, recent[0].ReminderMessage, " ")

	late, err := svc.Overdue(context.Background(), models.CollectionFilter{Bucket: "90+"}, actor)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "old", late[0].InstallmentID)
}

func TestCollectionsServiceOverdueUnknownBucket(t *testing.T) {
	svc := newCollectionsFixture(&collectionsRepoStub{}, nil)
	_, err := svc.Overdue(context.Background(), models.CollectionFilter{Bucket: "5-9"}, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")
}

func TestCollectionsServiceUpcomingWindow(t *testing.T) {
	repo := &collectionsRepoStub{upcoming: []models.CollectionRow{
		overdueRow("far", day(2024, time.May, 1)),
		overdueRow("today", day(2024, time.March, 20)),
		overdueRow("week", day(2024, time.March, 27)),
	}}
	svc := newCollectionsFixture(repo, nil)

	rows, err := svc.Upcoming(context.Background(), models.CollectionFilter{Bucket: "0-7"}, superuser())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "today", rows[0].InstallmentID)
	assert.Equal(t, 0, rows[0].Days)
	assert.Equal(t, 7, rows[1].Days)
}

func TestCollectionsServiceSweepOverdue(t *testing.T) {
	repo := &collectionsRepoStub{marked: 4, pending: 4}
	svc := newCollectionsFixture(repo, nil)
	actor := capsFor(models.RoleDepartmentCoordinator, "", "dep-9")

	pending, err := svc.PendingSweep(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, 4, pending)

	marked, err := svc.SweepOverdue(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, int64(4), marked)
	assert.Equal(t, models.ScopeDepartment, repo.lastScope.Kind)
}

func TestCollectionsServiceDailyReportUsesDueAmountsWithoutTarget(t *testing.T) {
	repo := &collectionsRepoStub{
		byMethod:      []models.MethodTotal{{Method: models.PaymentCash, Amount: dec(50000)}, {Method: models.PaymentTransfer, Amount: dec(25000)}},
		inMonth:       []models.MethodTotal{{Method: models.PaymentCash, Amount: dec(300000)}},
		dueInMonth:    dec(1200000),
		portfolio:     dec(5000000),
		collectedUpTo: dec(2000000),
	}
	svc := newCollectionsFixture(repo, targetStub{})

	report, err := svc.DailyReport(context.Background(), dto.DailyReportQuery{Date: "2024-03-15"}, superuser())
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.March, 15), report.Date)
	assert.True(t, report.CollectedOnDate.Equal(dec(75000)))
	assert.True(t, report.MonthTarget.Equal(dec(1200000)))
	assert.True(t, report.CollectedInMonth.Equal(dec(300000)))
	assert.True(t, report.CompliancePercent.Equal(dec(25)))
	assert.True(t, report.Outstanding.Equal(dec(3000000)))
	assert.Equal(t, day(2024, time.March, 16), repo.portfolioUpTo)
}

func TestCollectionsServiceDailyReportPrefersTarget(t *testing.T) {
	repo := &collectionsRepoStub{inMonth: []models.MethodTotal{{Method: models.PaymentCash, Amount: dec(400000)}}, dueInMonth: dec(1)}
	svc := newCollectionsFixture(repo, targetStub{target: &models.CollectionTarget{Year: 2024, Month: 3, Amount: dec(800000)}})

	report, err := svc.DailyReport(context.Background(), dto.DailyReportQuery{}, superuser())
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.March, 20), report.Date)
	assert.True(t, report.MonthTarget.Equal(dec(800000)))
	assert.True(t, report.CompliancePercent.Equal(dec(50)))
	assert.NotNil(t, report.ByMethod)
}

func TestCollectionsServiceDailyReportCountsReceiptsByLocalDay(t *testing.T) {
	repo := &collectionsRepoStub{}
	svc := newCollectionsFixture(repo, targetStub{})
	bogota := time.FixedZone("COT", -5*60*60)
	svc.loc = bogota

	_, err := svc.DailyReport(context.Background(), dto.DailyReportQuery{Date: "2024-03-15"}, superuser())
	require.NoError(t, err)

	dayStart := time.Date(2024, time.March, 15, 0, 0, 0, 0, bogota)
	dayEnd := time.Date(2024, time.March, 16, 0, 0, 0, 0, bogota)
	require.Len(t, repo.collectedRanges, 2)
	assert.True(t, repo.collectedRanges[0][0].Equal(dayStart))
	assert.True(t, repo.collectedRanges[0][1].Equal(dayEnd))
	assert.True(t, repo.collectedRanges[1][0].Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, bogota)))
	assert.True(t, repo.collectedRanges[1][1].Equal(dayEnd))
	assert.True(t, repo.collectedBefore.Equal(dayEnd))
}

func TestCollectionsServiceIncomeExpenses(t *testing.T) {
	repo := &collectionsRepoStub{
		income:   []models.MonthAmount{{Month: 1, Amount: dec(900000)}, {Month: 3, Amount: dec(100000)}},
		expenses: []models.MonthAmount{{Month: 1, Amount: dec(400000)}},
	}
	svc := newCollectionsFixture(repo, nil)

	flows, err := svc.IncomeExpenses(context.Background(), 2024, "", superuser())
	require.NoError(t, err)
	require.Len(t, flows, 12)
	assert.True(t, flows[0].Net.Equal(dec(500000)))
	assert.True(t, flows[1].Net.IsZero())
	assert.True(t, flows[2].Income.Equal(dec(100000)))

	_, err = svc.IncomeExpenses(context.Background(), 1990, "", superuser())
	assertAppError(t, err, "VALIDATION_ERROR")
}
