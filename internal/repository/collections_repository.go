package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/preicfes-api/internal/models"
)

const collectionFrom = `FROM installments i
JOIN debts db ON db.id = i.debt_id
JOIN students s ON s.id = db.student_id
JOIN municipalities m ON m.id = s.municipality_id`

const receiptFrom = `FROM receipts r
JOIN installments i ON i.id = r.installment_id
JOIN debts db ON db.id = i.debt_id
JOIN students s ON s.id = db.student_id
JOIN municipalities m ON m.id = s.municipality_id`

var collectionRowColumns = fmt.Sprintf(`i.id AS installment_id, i.debt_id, i.amount, i.amount_paid, i.due_date, i.status,
	s.id AS student_id, %s AS student_name, s.identification, s.phone,
	s.municipality_id, m.name AS municipality_name, db.remaining AS debt_remaining`, studentNameSQL)

// CollectionsRepository runs the read models of the collections desk.
type CollectionsRepository struct {
	db *sqlx.DB
}

// NewCollectionsRepository constructs a CollectionsRepository.
func NewCollectionsRepository(db *sqlx.DB) *CollectionsRepository {
	return &CollectionsRepository{db: db}
}

// Overdue lists open installments of active students due before today, oldest first.
func (r *CollectionsRepository) Overdue(ctx context.Context, filter models.CollectionFilter, today time.Time) ([]models.CollectionRow, error) {
	args := []interface{}{today, models.StudentActive, models.InstallmentIssued, models.InstallmentPartiallyPaid, models.InstallmentOverdue}
	conditions := []string{"i.due_date < $1", "s.status = $2", "i.status IN ($3, $4, $5)"}
	return r.collectionRows(ctx, filter, conditions, args, "overdue installments")
}

// Upcoming lists issued installments of active students due today or later.
func (r *CollectionsRepository) Upcoming(ctx context.Context, filter models.CollectionFilter, today time.Time) ([]models.CollectionRow, error) {
	args := []interface{}{today, models.StudentActive, models.InstallmentIssued}
	conditions := []string{"i.due_date >= $1", "s.status = $2", "i.status = $3"}
	return r.collectionRows(ctx, filter, conditions, args, "upcoming installments")
}

func (r *CollectionsRepository) collectionRows(ctx context.Context, filter models.CollectionFilter, conditions []string, args []interface{}, label string) ([]models.CollectionRow, error) {
	conditions, args = studentFilterConditions(filter.Scope, filter.MunicipalityID, filter.Search, conditions, args)
	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY i.due_date ASC, s.first_surname ASC", collectionRowColumns, collectionFrom, whereClause(conditions))
	var rows []models.CollectionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", label, err)
	}
	return rows, nil
}

// Clearances lists students whose debt is fully paid.
func (r *CollectionsRepository) Clearances(ctx context.Context, filter models.CollectionFilter) ([]models.StudentBalance, error) {
	args := []interface{}{decimal.Zero}
	conditions := []string{"db.remaining = $1"}
	return r.balances(ctx, "JOIN debts db ON db.student_id = s.id", filter, conditions, args, "clearances")
}

// Scholarships lists scholarship students with their debt, if any.
func (r *CollectionsRepository) Scholarships(ctx context.Context, filter models.CollectionFilter) ([]models.StudentBalance, error) {
	args := []interface{}{true}
	conditions := []string{"s.scholarship = $1"}
	return r.balances(ctx, "LEFT JOIN debts db ON db.student_id = s.id", filter, conditions, args, "scholarships")
}

func (r *CollectionsRepository) balances(ctx context.Context, debtJoin string, filter models.CollectionFilter, conditions []string, args []interface{}, label string) ([]models.StudentBalance, error) {
	conditions, args = studentFilterConditions(filter.Scope, filter.MunicipalityID, filter.Search, conditions, args)
	query := fmt.Sprintf(`SELECT s.id AS student_id, %s AS student_name, s.identification, s.program,
	s.municipality_id, m.name AS municipality_name,
	COALESCE(db.total, 0) AS debt_total, COALESCE(db.remaining, 0) AS debt_remaining
FROM students s
JOIN municipalities m ON m.id = s.municipality_id
%s
WHERE %s
ORDER BY s.first_surname ASC, s.first_names ASC`, studentNameSQL, debtJoin, whereClause(conditions))
	var rows []models.StudentBalance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", label, err)
	}
	return rows, nil
}

// MarkOverdue flags issued installments past due inside scope and returns how many changed.
func (r *CollectionsRepository) MarkOverdue(ctx context.Context, scope models.Scope, today time.Time) (int64, error) {
	args := []interface{}{models.InstallmentOverdue, time.Now().UTC(), models.InstallmentIssued, today}
	conditions := []string{"db.id = i.debt_id", "s.id = db.student_id", "m.id = s.municipality_id", "i.status = $3", "i.due_date < $4"}
	if cond, scoped := scopeCondition(scope, "s.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	query := fmt.Sprintf(`UPDATE installments i SET status = $1, updated_at = $2
FROM debts db, students s, municipalities m
WHERE %s`, whereClause(conditions))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark overdue installments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue rows affected: %w", err)
	}
	return affected, nil
}

// CountPendingOverdue counts issued installments past due inside scope.
func (r *CollectionsRepository) CountPendingOverdue(ctx context.Context, scope models.Scope, today time.Time) (int, error) {
	args := []interface{}{models.InstallmentIssued, today}
	conditions := []string{"i.status = $1", "i.due_date < $2"}
	if cond, scoped := scopeCondition(scope, "s.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", collectionFrom, whereClause(conditions))
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count pending overdue: %w", err)
	}
	return count, nil
}

// CollectedByMethod sums receipts issued in [from, to) per payment method.
func (r *CollectionsRepository) CollectedByMethod(ctx context.Context, filter models.ReportFilter, from, to time.Time) ([]models.MethodTotal, error) {
	args := []interface{}{from, to}
	conditions := []string{"r.issued_at >= $1", "r.issued_at < $2"}
	conditions, args = reportConditions(filter, conditions, args)
	query := fmt.Sprintf(`SELECT r.method AS method, COALESCE(SUM(r.amount), 0) AS amount %s
WHERE %s GROUP BY r.method ORDER BY r.method`, receiptFrom, whereClause(conditions))
	var totals []models.MethodTotal
	if err := r.db.SelectContext(ctx, &totals, query, args...); err != nil {
		return nil, fmt.Errorf("sum collected by method: %w", err)
	}
	return totals, nil
}

// DueInPeriod sums installment amounts of active students due in [from, to].
func (r *CollectionsRepository) DueInPeriod(ctx context.Context, filter models.ReportFilter, from, to time.Time) (decimal.Decimal, error) {
	args := []interface{}{from, to, models.StudentActive}
	conditions := []string{"i.due_date BETWEEN $1 AND $2", "s.status = $3"}
	conditions, args = reportConditions(filter, conditions, args)
	return r.sum(ctx, "COALESCE(SUM(i.amount), 0)", collectionFrom, conditions, args, "due in period")
}

// CollectedUpTo sums receipts issued before the given instant.
func (r *CollectionsRepository) CollectedUpTo(ctx context.Context, filter models.ReportFilter, before time.Time) (decimal.Decimal, error) {
	args := []interface{}{before}
	conditions := []string{"r.issued_at < $1"}
	conditions, args = reportConditions(filter, conditions, args)
	return r.sum(ctx, "COALESCE(SUM(r.amount), 0)", receiptFrom, conditions, args, "collected to date")
}

// PortfolioValue sums the totals of debts created on or before upTo.
func (r *CollectionsRepository) PortfolioValue(ctx context.Context, filter models.ReportFilter, upTo time.Time) (decimal.Decimal, error) {
	args := []interface{}{upTo}
	conditions := []string{"db.created_at < $1"}
	conditions, args = reportConditions(filter, conditions, args)
	from := `FROM debts db
JOIN students s ON s.id = db.student_id
JOIN municipalities m ON m.id = s.municipality_id`
	return r.sum(ctx, "COALESCE(SUM(db.total), 0)", from, conditions, args, "portfolio value")
}

// IncomeByMonth sums receipts per civil month of year in loc.
func (r *CollectionsRepository) IncomeByMonth(ctx context.Context, scope models.Scope, municipalityID string, year int, loc *time.Location) ([]models.MonthAmount, error) {
	args := []interface{}{zoneName(loc), year}
	conditions := []string{"EXTRACT(YEAR FROM r.issued_at AT TIME ZONE $1) = $2"}
	conditions, args = studentFilterConditions(scope, municipalityID, "", conditions, args)
	query := fmt.Sprintf(`SELECT EXTRACT(MONTH FROM r.issued_at AT TIME ZONE $1)::int AS month, COALESCE(SUM(r.amount), 0) AS amount %s
WHERE %s GROUP BY 1 ORDER BY 1`, receiptFrom, whereClause(conditions))
	var rows []models.MonthAmount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sum income by month: %w", err)
	}
	return rows, nil
}

// ExpensesByMonth sums expense amounts per month of year.
func (r *CollectionsRepository) ExpensesByMonth(ctx context.Context, scope models.Scope, municipalityID string, year int) ([]models.MonthAmount, error) {
	args := []interface{}{year}
	conditions := []string{"EXTRACT(YEAR FROM e.date) = $1"}
	if cond, scoped := scopeCondition(scope, "e.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if municipalityID != "" {
		args = append(args, municipalityID)
		conditions = append(conditions, fmt.Sprintf("e.municipality_id = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT EXTRACT(MONTH FROM e.date)::int AS month, COALESCE(SUM(e.amount), 0) AS amount
FROM expenses e
JOIN municipalities m ON m.id = e.municipality_id
WHERE %s GROUP BY 1 ORDER BY 1`, whereClause(conditions))
	var rows []models.MonthAmount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sum expenses by month: %w", err)
	}
	return rows, nil
}

func (r *CollectionsRepository) sum(ctx context.Context, expr, from string, conditions []string, args []interface{}, label string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := fmt.Sprintf("SELECT %s %s WHERE %s", expr, from, whereClause(conditions))
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", label, err)
	}
	return total, nil
}

func studentFilterConditions(scope models.Scope, municipalityID, search string, conditions []string, args []interface{}) ([]string, []interface{}) {
	if cond, scoped := scopeCondition(scope, "s.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if municipalityID != "" {
		args = append(args, municipalityID)
		conditions = append(conditions, fmt.Sprintf("s.municipality_id = $%d", len(args)))
	}
	if search != "" {
		args = append(args, likePattern(search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(COALESCE(s.identification, '')) LIKE $%d OR LOWER(s.first_surname || ' ' || COALESCE(s.second_surname, '')) LIKE $%d)", n, n))
	}
	return conditions, args
}

func zoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local {
		return "UTC"
	}
	return loc.String()
}

func reportConditions(filter models.ReportFilter, conditions []string, args []interface{}) ([]string, []interface{}) {
	conditions, args = studentFilterConditions(filter.Scope, filter.MunicipalityID, "", conditions, args)
	if filter.Program != nil {
		args = append(args, *filter.Program)
		conditions = append(conditions, fmt.Sprintf("s.program = $%d", len(args)))
	}
	return conditions, args
}
