package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
)

type financeRepoStub struct {
	expenses map[string]*models.Expense
	rates    []models.ClassRate
	targets  []models.CollectionTarget
	created  *models.Expense
}

func (s *financeRepoStub) CreateExpense(ctx context.Context, expense *models.Expense) error {
	expense.ID = "exp-new"
	s.created = expense
	return nil
}

func (s *financeRepoStub) FindExpense(ctx context.Context, id string) (*models.Expense, error) {
	expense, ok := s.expenses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return expense, nil
}

func (s *financeRepoStub) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	return nil, 0, nil
}

func (s *financeRepoStub) MarkExpensePaid(ctx context.Context, id string) error {
	s.expenses[id].Status = models.ExpensePaid
	return nil
}

func (s *financeRepoStub) UpsertTarget(ctx context.Context, target *models.CollectionTarget) error {
	target.ID = "target-1"
	s.targets = append(s.targets, *target)
	return nil
}

func (s *financeRepoStub) ListTargets(ctx context.Context, year int) ([]models.CollectionTarget, error) {
	return s.targets, nil
}

func (s *financeRepoStub) CreateClassRate(ctx context.Context, rate *models.ClassRate) error {
	s.rates = append(s.rates, *rate)
	return nil
}

func (s *financeRepoStub) ListClassRates(ctx context.Context) ([]models.ClassRate, error) {
	return s.rates, nil
}

func (s *financeRepoStub) ActiveClassRate(ctx context.Context, dayType models.DayType, slot *models.TimeSlot) (*models.ClassRate, error) {
	for i := range s.rates {
		rate := s.rates[i]
		if !rate.Active || rate.DayType != dayType {
			continue
		}
		if (slot == nil && rate.TimeSlot == nil) || (slot != nil && rate.TimeSlot != nil && *slot == *rate.TimeSlot) {
			return &rate, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *financeRepoStub) ActiveClassRateExists(ctx context.Context, dayType models.DayType, slot *models.TimeSlot) (bool, error) {
	_, err := s.ActiveClassRate(ctx, dayType, slot)
	return err == nil, nil
}

type siteStub struct{}

func (siteStub) FindSite(ctx context.Context, id string) (*models.Site, error) {
	if id != "site-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Site{ID: "site-1", MunicipalityID: "mun-1"}, nil
}

func (siteStub) FindMunicipality(ctx context.Context, id string) (*models.Municipality, error) {
	return &models.Municipality{ID: id, DepartmentID: "dep-1"}, nil
}

func slotPtr(v string) *models.TimeSlot {
	slot := models.TimeSlot(v)
	return &slot
}

func TestFinanceServiceCreateExpenseDefaultsMunicipality(t *testing.T) {
	repo := &financeRepoStub{}
	svc := NewFinanceService(repo, siteStub{}, nil, nil, nil)

	expense, err := svc.CreateExpense(context.Background(), dto.CreateExpenseRequest{
		SiteID: "site-1", Date: "2024-03-01", Concept: " Arriendo ", Amount: dec(1500000),
	}, capsFor(models.RoleCollectionsSecretary, "mun-1", "dep-1"))
	require.NoError(t, err)
	assert.Equal(t, "mun-1", expense.MunicipalityID)
	assert.Equal(t, "Arriendo", expense.Concept)
	assert.Equal(t, models.ExpensePublished, expense.Status)
}

func TestFinanceServiceCreateExpenseRejectsForeignMunicipality(t *testing.T) {
	svc := NewFinanceService(&financeRepoStub{}, siteStub{}, nil, nil, nil)

	_, err := svc.CreateExpense(context.Background(), dto.CreateExpenseRequest{
		SiteID: "site-1", MunicipalityID: "mun-2", Date: "2024-03-01", Concept: "Luz", Amount: dec(1000),
	}, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")

	_, err = svc.CreateExpense(context.Background(), dto.CreateExpenseRequest{
		SiteID: "site-1", Date: "2024-03-01", Concept: "Luz", Amount: dec(1000),
	}, capsFor(models.RoleCollectionsSecretary, "mun-9", "dep-1"))
	assertAppError(t, err, "FORBIDDEN")
}

func TestFinanceServiceMarkExpensePaid(t *testing.T) {
	repo := &financeRepoStub{expenses: map[string]*models.Expense{
		"exp-1": {ID: "exp-1", MunicipalityID: "mun-1", Status: models.ExpensePublished},
	}}
	svc := NewFinanceService(repo, siteStub{}, nil, nil, nil)

	expense, err := svc.MarkExpensePaid(context.Background(), "exp-1", superuser())
	require.NoError(t, err)
	assert.Equal(t, models.ExpensePaid, expense.Status)

	_, err = svc.MarkExpensePaid(context.Background(), "missing", superuser())
	assertAppError(t, err, "NOT_FOUND")
}

func TestFinanceServiceClassRateOneActive(t *testing.T) {
	repo := &financeRepoStub{}
	svc := NewFinanceService(repo, siteStub{}, nil, nil, nil)

	_, err := svc.CreateClassRate(context.Background(), dto.ClassRateRequest{Name: "Semana", DayType: models.DayWeekday, Amount: dec(40000), Active: true})
	require.NoError(t, err)
	_, err = svc.CreateClassRate(context.Background(), dto.ClassRateRequest{Name: "Semana 2", DayType: models.DayWeekday, Amount: dec(45000), Active: true})
	assertAppError(t, err, "CONFLICT")

	_, err = svc.CreateClassRate(context.Background(), dto.ClassRateRequest{Name: "Noche", DayType: models.DayWeekday, TimeSlot: slotPtr("18:00-20:00"), Amount: dec(50000), Active: true})
	require.NoError(t, err)
	_, err = svc.CreateClassRate(context.Background(), dto.ClassRateRequest{Name: "Rota", DayType: models.DayWeekday, TimeSlot: slotPtr("25:00"), Amount: dec(50000)})
	assertAppError(t, err, "VALIDATION_ERROR")
}

func TestFinanceServiceResolveRate(t *testing.T) {
	repo := &financeRepoStub{rates: []models.ClassRate{
		{ID: "generic", DayType: models.DayWeekday, Amount: dec(40000), Active: true},
		{ID: "evening", DayType: models.DayWeekday, TimeSlot: slotPtr("18:00-20:00"), Amount: dec(50000), Active: true},
	}}
	svc := NewFinanceService(repo, siteStub{}, nil, nil, nil)
	monday := time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC)

	rate, err := svc.ResolveRate(context.Background(), monday, slotPtr("18:00-20:00"))
	require.NoError(t, err)
	assert.Equal(t, "evening", rate.ID)

	rate, err = svc.ResolveRate(context.Background(), monday, slotPtr("08:00-10:00"))
	require.NoError(t, err)
	assert.Equal(t, "generic", rate.ID)

	_, err = svc.ResolveRate(context.Background(), monday.AddDate(0, 0, 5), nil)
	assertAppError(t, err, "NOT_FOUND")
}

func TestFinanceServiceSetTarget(t *testing.T) {
	repo := &financeRepoStub{}
	svc := NewFinanceService(repo, siteStub{}, nil, nil, nil)

	target, err := svc.SetTarget(context.Background(), dto.CollectionTargetRequest{Year: 2024, Month: 3, Amount: dec(900000)})
	require.NoError(t, err)
	assert.Equal(t, "target-1", target.ID)

	_, err = svc.SetTarget(context.Background(), dto.CollectionTargetRequest{Year: 2024, Month: 13, Amount: dec(1)})
	assertAppError(t, err, "VALIDATION_ERROR")
}
