package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/preicfes-api/internal/models"
)

const expenseColumns = `e.id, e.site_id, e.municipality_id, e.date, e.concept, e.contractor, e.amount, e.status, e.created_at`

const classRateColumns = `id, name, day_type, time_slot, amount, active, created_at`

// FinanceRepository persists expenses, collection targets and class rates.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository constructs a FinanceRepository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// CreateExpense inserts an expense.
func (r *FinanceRepository) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	expense.CreatedAt = time.Now().UTC()
	if expense.Status == "" {
		expense.Status = models.ExpensePublished
	}
	const query = `INSERT INTO expenses (id, site_id, municipality_id, date, concept, contractor, amount, status, created_at)
VALUES (:id, :site_id, :municipality_id, :date, :concept, :contractor, :amount, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// FindExpense fetches an expense by id.
func (r *FinanceRepository) FindExpense(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	query := fmt.Sprintf("SELECT %s FROM expenses e WHERE e.id = $1", expenseColumns)
	if err := r.db.GetContext(ctx, &expense, query, id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListExpenses returns expenses matching the filter, newest first.
func (r *FinanceRepository) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	var args []interface{}
	var conditions []string
	if cond, scoped := scopeCondition(filter.Scope, "e.municipality_id", "m.department_id", args); cond != "" {
		conditions = append(conditions, cond)
		args = scoped
	}
	if filter.MunicipalityID != "" {
		args = append(args, filter.MunicipalityID)
		conditions = append(conditions, fmt.Sprintf("e.municipality_id = $%d", len(args)))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		conditions = append(conditions, fmt.Sprintf("e.site_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("e.date <= $%d", len(args)))
	}
	base := fmt.Sprintf("FROM expenses e JOIN municipalities m ON m.id = e.municipality_id WHERE %s", whereClause(conditions))
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY e.date DESC, e.created_at DESC LIMIT %d OFFSET %d", expenseColumns, base, size, offset)
	var items []models.Expense
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	return items, total, nil
}

// MarkExpensePaid settles an expense.
func (r *FinanceRepository) MarkExpensePaid(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE expenses SET status = $2 WHERE id = $1", id, models.ExpensePaid)
	if err != nil {
		return fmt.Errorf("mark expense paid: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertTarget sets the collection target of a month.
func (r *FinanceRepository) UpsertTarget(ctx context.Context, target *models.CollectionTarget) error {
	if target.ID == "" {
		target.ID = uuid.NewString()
	}
	target.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO collection_targets (id, year, month, amount, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (year, month) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at
RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, target.ID, target.Year, target.Month, target.Amount, target.UpdatedAt).Scan(&target.ID); err != nil {
		return fmt.Errorf("upsert collection target: %w", err)
	}
	return nil
}

// ListTargets returns the targets of a year ordered by month.
func (r *FinanceRepository) ListTargets(ctx context.Context, year int) ([]models.CollectionTarget, error) {
	var items []models.CollectionTarget
	const query = `SELECT id, year, month, amount, updated_at FROM collection_targets WHERE year = $1 ORDER BY month`
	if err := r.db.SelectContext(ctx, &items, query, year); err != nil {
		return nil, fmt.Errorf("list collection targets: %w", err)
	}
	return items, nil
}

// FindTarget returns the target of a month; sql.ErrNoRows when unset.
func (r *FinanceRepository) FindTarget(ctx context.Context, year, month int) (*models.CollectionTarget, error) {
	var target models.CollectionTarget
	const query = `SELECT id, year, month, amount, updated_at FROM collection_targets WHERE year = $1 AND month = $2`
	if err := r.db.GetContext(ctx, &target, query, year, month); err != nil {
		return nil, err
	}
	return &target, nil
}

// CreateClassRate inserts a class rate.
func (r *FinanceRepository) CreateClassRate(ctx context.Context, rate *models.ClassRate) error {
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	rate.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO class_rates (id, name, day_type, time_slot, amount, active, created_at)
VALUES (:id, :name, :day_type, :time_slot, :amount, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rate); err != nil {
		return fmt.Errorf("create class rate: %w", err)
	}
	return nil
}

// ListClassRates returns every rate, active first.
func (r *FinanceRepository) ListClassRates(ctx context.Context) ([]models.ClassRate, error) {
	var items []models.ClassRate
	query := fmt.Sprintf("SELECT %s FROM class_rates ORDER BY active DESC, day_type, time_slot NULLS FIRST", classRateColumns)
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list class rates: %w", err)
	}
	return items, nil
}

// ActiveClassRate returns the active rate for a day type and slot. A nil slot
// selects the generic rate of the day.
func (r *FinanceRepository) ActiveClassRate(ctx context.Context, dayType models.DayType, slot *models.TimeSlot) (*models.ClassRate, error) {
	var rate models.ClassRate
	var err error
	if slot == nil {
		query := fmt.Sprintf("SELECT %s FROM class_rates WHERE active AND day_type = $1 AND time_slot IS NULL LIMIT 1", classRateColumns)
		err = r.db.GetContext(ctx, &rate, query, dayType)
	} else {
		query := fmt.Sprintf("SELECT %s FROM class_rates WHERE active AND day_type = $1 AND time_slot = $2 LIMIT 1", classRateColumns)
		err = r.db.GetContext(ctx, &rate, query, dayType, *slot)
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// ActiveClassRateExists reports whether an active rate already covers the day type and slot.
func (r *FinanceRepository) ActiveClassRateExists(ctx context.Context, dayType models.DayType, slot *models.TimeSlot) (bool, error) {
	_, err := r.ActiveClassRate(ctx, dayType, slot)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check active class rate: %w", err)
	}
	return true, nil
}
