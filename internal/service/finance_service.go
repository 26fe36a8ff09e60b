package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type financeRepository interface {
	CreateExpense(ctx context.Context, expense *models.Expense) error
	FindExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
	MarkExpensePaid(ctx context.Context, id string) error
	UpsertTarget(ctx context.Context, target *models.CollectionTarget) error
	ListTargets(ctx context.Context, year int) ([]models.CollectionTarget, error)
	CreateClassRate(ctx context.Context, rate *models.ClassRate) error
	ListClassRates(ctx context.Context) ([]models.ClassRate, error)
	ActiveClassRate(ctx context.Context, dayType models.DayType, slot *models.TimeSlot) (*models.ClassRate, error)
	ActiveClassRateExists(ctx context.Context, dayType models.DayType, slot *models.TimeSlot) (bool, error)
}

type siteReader interface {
	FindSite(ctx context.Context, id string) (*models.Site, error)
	FindMunicipality(ctx context.Context, id string) (*models.Municipality, error)
}

// FinanceService manages expenses, monthly collection targets and class rates.
type FinanceService struct {
	repo      financeRepository
	sites     siteReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFinanceService constructs a FinanceService.
func NewFinanceService(repo financeRepository, sites siteReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *FinanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{repo: repo, sites: sites, cache: cache, validator: validate, logger: logger}
}

// CreateExpense records an expense of a site.
func (s *FinanceService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actor Capabilities) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid expense payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	date, err := dto.ParseDate(req.Date)
	if err != nil {
		return nil, validationError(err, "invalid expense date")
	}
	site, err := s.sites.FindSite(ctx, req.SiteID)
	if err != nil {
		return nil, lookupError(err, "site not found", "failed to load site")
	}
	municipalityID := req.MunicipalityID
	if municipalityID == "" {
		municipalityID = site.MunicipalityID
	}
	if municipalityID != site.MunicipalityID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "site does not belong to the municipality")
	}
	municipality, err := s.sites.FindMunicipality(ctx, municipalityID)
	if err != nil {
		return nil, lookupError(err, "municipality not found", "failed to load municipality")
	}
	if !actor.Scope.Allows(municipality.ID, municipality.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "municipality is outside your scope")
	}

	expense := &models.Expense{
		SiteID:         site.ID,
		MunicipalityID: municipalityID,
		Date:           date,
		Concept:        strings.TrimSpace(req.Concept),
		Contractor:     req.Contractor,
		Amount:         req.Amount,
		Status:         models.ExpensePublished,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, internalError(err, "failed to create expense")
	}
	s.cache.Invalidate(ctx, "report:*")
	return expense, nil
}

// ListExpenses returns the expenses visible to the actor.
func (s *FinanceService) ListExpenses(ctx context.Context, query dto.ExpenseQuery, actor Capabilities) ([]models.Expense, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid expense filter")
	}
	filter := models.ExpenseFilter{
		MunicipalityID: query.MunicipalityID,
		SiteID:         query.SiteID,
		Scope:          actor.Scope,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	if query.Status != "" {
		status := models.ExpenseStatus(query.Status)
		filter.Status = &status
	}
	var err error
	if filter.DateFrom, err = dto.ParseOptionalDate(optionalString(query.DateFrom)); err != nil {
		return nil, nil, validationError(err, "invalid date_from")
	}
	if filter.DateTo, err = dto.ParseOptionalDate(optionalString(query.DateTo)); err != nil {
		return nil, nil, validationError(err, "invalid date_to")
	}

	items, total, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list expenses")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// MarkExpensePaid settles an expense.
func (s *FinanceService) MarkExpensePaid(ctx context.Context, id string, actor Capabilities) (*models.Expense, error) {
	expense, err := s.repo.FindExpense(ctx, id)
	if err != nil {
		return nil, lookupError(err, "expense not found", "failed to load expense")
	}
	municipality, err := s.sites.FindMunicipality(ctx, expense.MunicipalityID)
	if err != nil {
		return nil, lookupError(err, "municipality not found", "failed to load municipality")
	}
	if !actor.Scope.Allows(municipality.ID, municipality.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "expense is outside your scope")
	}
	if expense.Status == models.ExpensePaid {
		return expense, nil
	}
	if err := s.repo.MarkExpensePaid(ctx, id); err != nil {
		return nil, lookupError(err, "expense not found", "failed to mark expense paid")
	}
	expense.Status = models.ExpensePaid
	return expense, nil
}

// SetTarget creates or replaces the collection target of a month.
func (s *FinanceService) SetTarget(ctx context.Context, req dto.CollectionTargetRequest) (*models.CollectionTarget, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid target payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount cannot be negative")
	}
	target := &models.CollectionTarget{Year: req.Year, Month: req.Month, Amount: req.Amount}
	if err := s.repo.UpsertTarget(ctx, target); err != nil {
		return nil, internalError(err, "failed to save collection target")
	}
	s.cache.Invalidate(ctx, "report:*")
	return target, nil
}

// ListTargets returns the targets of a year.
func (s *FinanceService) ListTargets(ctx context.Context, year int) ([]models.CollectionTarget, error) {
	items, err := s.repo.ListTargets(ctx, year)
	if err != nil {
		return nil, internalError(err, "failed to list collection targets")
	}
	return items, nil
}

// CreateClassRate adds a rate. Only one active rate may cover a day type and slot.
func (s *FinanceService) CreateClassRate(ctx context.Context, req dto.ClassRateRequest) (*models.ClassRate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class rate payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	if req.TimeSlot != nil {
		if *req.TimeSlot == "" {
			req.TimeSlot = nil
		} else if _, _, err := req.TimeSlot.Bounds(time.Now(), time.UTC); err != nil {
			return nil, validationError(err, "invalid time slot")
		}
	}
	if req.Active {
		exists, err := s.repo.ActiveClassRateExists(ctx, req.DayType, req.TimeSlot)
		if err != nil {
			return nil, internalError(err, "failed to check active class rates")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an active rate already covers this day type and slot")
		}
	}

	rate := &models.ClassRate{
		Name:     strings.TrimSpace(req.Name),
		DayType:  req.DayType,
		TimeSlot: req.TimeSlot,
		Amount:   req.Amount,
		Active:   req.Active,
	}
	if err := s.repo.CreateClassRate(ctx, rate); err != nil {
		return nil, internalError(err, "failed to create class rate")
	}
	return rate, nil
}

// ListClassRates returns every class rate.
func (s *FinanceService) ListClassRates(ctx context.Context) ([]models.ClassRate, error) {
	items, err := s.repo.ListClassRates(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list class rates")
	}
	return items, nil
}

// ResolveRate picks the rate for a class: the slot specific rate of the day
// type when one is active, otherwise the generic rate of the day type.
func (s *FinanceService) ResolveRate(ctx context.Context, date time.Time, slot *models.TimeSlot) (*models.ClassRate, error) {
	dayType := models.DayTypeOf(date)
	if slot != nil && *slot != "" {
		rate, err := s.repo.ActiveClassRate(ctx, dayType, slot)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to resolve class rate")
		}
	}
	rate, err := s.repo.ActiveClassRate(ctx, dayType, nil)
	if err != nil {
		return nil, lookupError(err, "no active rate for "+string(dayType), "failed to resolve class rate")
	}
	return rate, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
