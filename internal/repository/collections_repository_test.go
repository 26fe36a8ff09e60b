package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/models"
)

func TestCollectionsOverdueAppliesScopeAndSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionsRepository(db)

	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.due_date < $1 AND s.status = $2 AND i.status IN ($3, $4, $5) AND s.municipality_id = $6 AND (LOWER(COALESCE(s.identification, '')) LIKE $7")).
		WithArgs(today, models.StudentActive, models.InstallmentIssued, models.InstallmentPartiallyPaid, models.InstallmentOverdue, "mun-1", "%gomez%").
		WillReturnRows(sqlmock.NewRows([]string{"installment_id", "debt_id", "amount", "amount_paid", "due_date", "status", "student_id", "student_name"}).
			AddRow("i1", "d1", "100000", "0", today.AddDate(0, 0, -40), "overdue", "st-1", "Laura Gomez"))

	rows, err := repo.Overdue(context.Background(), models.CollectionFilter{
		Search: " Gomez ",
		Scope:  models.Scope{Kind: models.ScopeMunicipality, MunicipalityID: "mun-1"},
	}, today)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.InstallmentOverdue, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionsMarkOverdueReturnsAffected(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionsRepository(db)

	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments i SET status = $1")).
		WithArgs(models.InstallmentOverdue, sqlmock.AnyArg(), models.InstallmentIssued, today).
		WillReturnResult(sqlmock.NewResult(0, 7))

	count, err := repo.MarkOverdue(context.Background(), models.Scope{Kind: models.ScopeAll}, today)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionsSumsWithProgramFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionsRepository(db)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	program := models.ProgramPreICFES
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(i.amount), 0)")).
		WithArgs(from, to, models.StudentActive, program).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("1250000"))

	total, err := repo.DueInPeriod(context.Background(), models.ReportFilter{Program: &program, Scope: models.Scope{Kind: models.ScopeAll}}, from, to)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(1250000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionsCollectedByMethodSumsReceipts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionsRepository(db)

	from := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery(`SUM\(r\.amount\), 0\) AS amount FROM receipts r\s+JOIN installments i .+WHERE r\.issued_at >= \$1 AND r\.issued_at < \$2 AND s\.municipality_id = \$3 GROUP BY r\.method`).
		WithArgs(from, to, "mun-1").
		WillReturnRows(sqlmock.NewRows([]string{"method", "amount"}).
			AddRow("cash", "200000").
			AddRow("transfer", "50000"))

	totals, err := repo.CollectedByMethod(context.Background(), models.ReportFilter{Scope: models.Scope{Kind: models.ScopeMunicipality, MunicipalityID: "mun-1"}}, from, to)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, models.PaymentCash, totals[0].Method)
	assert.True(t, totals[1].Amount.Equal(decimal.NewFromInt(50000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionsCollectedUpToSumsReceipts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionsRepository(db)

	before := time.Date(2025, 3, 11, 5, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(r.amount), 0) FROM receipts r")).
		WithArgs(before).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("750000"))

	total, err := repo.CollectedUpTo(context.Background(), models.ReportFilter{Scope: models.Scope{Kind: models.ScopeAll}}, before)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(750000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectionsIncomeByMonthGroupsReceiptsInZone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollectionsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("EXTRACT(MONTH FROM r.issued_at AT TIME ZONE $1)::int AS month")).
		WithArgs("COT", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"month", "amount"}).AddRow(1, "900000"))

	rows, err := repo.IncomeByMonth(context.Background(), models.Scope{Kind: models.ScopeAll}, "", 2025, time.FixedZone("COT", -5*60*60))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Month)

	assert.Equal(t, "UTC", zoneName(nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositoryActiveClassRateBySlot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	slot := models.TimeSlot("08:00-10:00")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE active AND day_type = $1 AND time_slot = $2")).
		WithArgs(models.DaySaturday, slot).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "day_type", "time_slot", "amount", "active", "created_at"}).
			AddRow("r1", "Sabado mañana", "saturday", "08:00-10:00", "45000", true, time.Now()))

	rate, err := repo.ActiveClassRate(context.Background(), models.DaySaturday, &slot)
	require.NoError(t, err)
	assert.True(t, rate.Amount.Equal(decimal.NewFromInt(45000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceRepositoryUpsertTarget(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFinanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (year, month) DO UPDATE")).
		WithArgs(sqlmock.AnyArg(), 2025, 3, "9000000", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t-existing"))

	target := &models.CollectionTarget{Year: 2025, Month: 3, Amount: decimal.NewFromInt(9000000)}
	require.NoError(t, repo.UpsertTarget(context.Background(), target))
	assert.Equal(t, "t-existing", target.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryRoomBusy(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	date := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sessions WHERE room_id = $1 AND date = $2 AND time_slot = $3")).
		WithArgs("room-1", date, models.TimeSlot("08:00-10:00"), models.ClassCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	busy, err := repo.RoomBusy(context.Background(), "room-1", date, "08:00-10:00", "")
	require.NoError(t, err)
	assert.True(t, busy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
