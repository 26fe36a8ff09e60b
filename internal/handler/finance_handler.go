package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
	"github.com/noah-isme/preicfes-api/pkg/response"
)

type financeService interface {
	CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actor service.Capabilities) (*models.Expense, error)
	ListExpenses(ctx context.Context, query dto.ExpenseQuery, actor service.Capabilities) ([]models.Expense, *models.Pagination, error)
	MarkExpensePaid(ctx context.Context, id string, actor service.Capabilities) (*models.Expense, error)
	SetTarget(ctx context.Context, req dto.CollectionTargetRequest) (*models.CollectionTarget, error)
	ListTargets(ctx context.Context, year int) ([]models.CollectionTarget, error)
	CreateClassRate(ctx context.Context, req dto.ClassRateRequest) (*models.ClassRate, error)
	ListClassRates(ctx context.Context) ([]models.ClassRate, error)
	ResolveRate(ctx context.Context, date time.Time, slot *models.TimeSlot) (*models.ClassRate, error)
}

// FinanceHandler exposes expenses, collection targets and class rates.
type FinanceHandler struct {
	service financeService
	now     func() time.Time
}

// NewFinanceHandler constructs FinanceHandler.
func NewFinanceHandler(svc financeService) *FinanceHandler {
	return &FinanceHandler{service: svc, now: time.Now}
}

// ListExpenses godoc
// @Summary List expenses
// @Tags Finance
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param site_id query string false "Site ID"
// @Param status query string false "published or paid"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /expenses [get]
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	var query dto.ExpenseQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.ListExpenses(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// CreateExpense godoc
// @Summary Publish an expense
// @Tags Finance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateExpenseRequest true "Expense"
// @Success 201 {object} response.Envelope
// @Router /expenses [post]
func (h *FinanceHandler) CreateExpense(c *gin.Context) {
	var req dto.CreateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	expense, err := h.service.CreateExpense(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// MarkExpensePaid godoc
// @Summary Mark an expense as paid
// @Tags Finance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /expenses/{id}/paid [post]
func (h *FinanceHandler) MarkExpensePaid(c *gin.Context) {
	expense, err := h.service.MarkExpensePaid(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// ListTargets godoc
// @Summary Monthly collection targets of a year
// @Tags Finance
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year, defaults to the current one"
// @Success 200 {object} response.Envelope
// @Router /collection-targets [get]
func (h *FinanceHandler) ListTargets(c *gin.Context) {
	items, err := h.service.ListTargets(c.Request.Context(), queryInt(c, "year", h.now().Year()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SetTarget godoc
// @Summary Set the collection target of a month
// @Tags Finance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CollectionTargetRequest true "Target"
// @Success 200 {object} response.Envelope
// @Router /collection-targets [put]
func (h *FinanceHandler) SetTarget(c *gin.Context) {
	var req dto.CollectionTargetRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := h.service.SetTarget(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, target, nil)
}

// ListClassRates godoc
// @Summary List class rates
// @Tags Finance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /class-rates [get]
func (h *FinanceHandler) ListClassRates(c *gin.Context) {
	items, err := h.service.ListClassRates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateClassRate godoc
// @Summary Create a class rate
// @Tags Finance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ClassRateRequest true "Rate"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /class-rates [post]
func (h *FinanceHandler) CreateClassRate(c *gin.Context) {
	var req dto.ClassRateRequest
	if !bindJSON(c, &req) {
		return
	}
	rate, err := h.service.CreateClassRate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rate)
}

// ResolveRate godoc
// @Summary Rate that applies to a class
// @Tags Finance
// @Produce json
// @Security BearerAuth
// @Param date query string true "Class date (YYYY-MM-DD)"
// @Param time_slot query string false "Time slot (HH:MM-HH:MM)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-rates/resolve [get]
func (h *FinanceHandler) ResolveRate(c *gin.Context) {
	var query dto.ResolveRateQuery
	if !bindQuery(c, &query) {
		return
	}
	date, err := dto.ParseDate(query.Date)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	var slot *models.TimeSlot
	if query.TimeSlot != "" {
		s := models.TimeSlot(query.TimeSlot)
		slot = &s
	}
	rate, err := h.service.ResolveRate(c.Request.Context(), date, slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}
