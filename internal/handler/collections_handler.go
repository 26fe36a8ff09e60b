package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
	"github.com/noah-isme/preicfes-api/pkg/response"
)

type collectionsService interface {
	Overdue(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) ([]models.CollectionRow, error)
	Upcoming(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) ([]models.CollectionRow, error)
	Clearances(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) ([]models.StudentBalance, error)
	Scholarships(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) ([]models.StudentBalance, error)
	PendingSweep(ctx context.Context, actor service.Capabilities) (int, error)
	SweepOverdue(ctx context.Context, actor service.Capabilities) (int64, error)
	DailyReport(ctx context.Context, query dto.DailyReportQuery, actor service.Capabilities) (*models.DailyReport, error)
	IncomeExpenses(ctx context.Context, year int, municipalityID string, actor service.Capabilities) ([]models.MonthlyFlow, error)
}

type collectionsDocuments interface {
	OverdueCSV(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) (*service.File, error)
	DailyReportPDF(ctx context.Context, query dto.DailyReportQuery, actor service.Capabilities) (*service.File, error)
}

// CollectionsHandler exposes portfolio listings and collection reports.
type CollectionsHandler struct {
	service   collectionsService
	documents collectionsDocuments
	now       func() time.Time
}

// NewCollectionsHandler constructs CollectionsHandler.
func NewCollectionsHandler(svc collectionsService, documents collectionsDocuments) *CollectionsHandler {
	return &CollectionsHandler{service: svc, documents: documents, now: time.Now}
}

// Overdue godoc
// @Summary Overdue installments
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param search query string false "Student name or identification"
// @Param range query string false "Aging bucket: 0-30, 31-60, 61-90 or 90+"
// @Success 200 {object} response.Envelope
// @Router /collections/overdue [get]
func (h *CollectionsHandler) Overdue(c *gin.Context) {
	h.listRows(c, h.service.Overdue)
}

// Upcoming godoc
// @Summary Installments coming due
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param search query string false "Student name or identification"
// @Param range query string false "Window: 0-7, 8-15, 16-30 or 30+"
// @Success 200 {object} response.Envelope
// @Router /collections/upcoming [get]
func (h *CollectionsHandler) Upcoming(c *gin.Context) {
	h.listRows(c, h.service.Upcoming)
}

func (h *CollectionsHandler) listRows(c *gin.Context, list func(context.Context, models.CollectionFilter, service.Capabilities) ([]models.CollectionRow, error)) {
	var query dto.CollectionQuery
	if !bindQuery(c, &query) {
		return
	}
	rows, err := list(c.Request.Context(), query.Filter(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"count": len(rows)})
}

// ExportOverdue godoc
// @Summary Export overdue installments as CSV
// @Tags Collections
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /collections/overdue/export [get]
func (h *CollectionsHandler) ExportOverdue(c *gin.Context) {
	var query dto.CollectionQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.documents.OverdueCSV(c.Request.Context(), query.Filter(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, false)
}

// Clearances godoc
// @Summary Students with fully paid debts
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param search query string false "Student name or identification"
// @Success 200 {object} response.Envelope
// @Router /collections/clearances [get]
func (h *CollectionsHandler) Clearances(c *gin.Context) {
	h.listBalances(c, h.service.Clearances)
}

// Scholarships godoc
// @Summary Scholarship holders and their balances
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param search query string false "Student name or identification"
// @Success 200 {object} response.Envelope
// @Router /collections/scholarships [get]
func (h *CollectionsHandler) Scholarships(c *gin.Context) {
	h.listBalances(c, h.service.Scholarships)
}

func (h *CollectionsHandler) listBalances(c *gin.Context, list func(context.Context, models.CollectionFilter, service.Capabilities) ([]models.StudentBalance, error)) {
	var query dto.CollectionQuery
	if !bindQuery(c, &query) {
		return
	}
	rows, err := list(c.Request.Context(), query.Filter(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// PendingSweep godoc
// @Summary Count installments awaiting the overdue sweep
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /collections/maintenance [get]
func (h *CollectionsHandler) PendingSweep(c *gin.Context) {
	pending, err := h.service.PendingSweep(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SweepResult{Pending: pending}, nil)
}

// SweepOverdue godoc
// @Summary Mark past due installments as overdue
// @Tags Collections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /collections/maintenance [post]
func (h *CollectionsHandler) SweepOverdue(c *gin.Context) {
	marked, err := h.service.SweepOverdue(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SweepResult{Marked: marked}, nil)
}

// DailyReport godoc
// @Summary Daily collection report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param date query string false "Report date (YYYY-MM-DD), defaults to today"
// @Param municipality_id query string false "Municipality ID"
// @Param program query string false "Program"
// @Success 200 {object} response.Envelope
// @Router /reports/daily [get]
func (h *CollectionsHandler) DailyReport(c *gin.Context) {
	var query dto.DailyReportQuery
	if !bindQuery(c, &query) {
		return
	}
	report, err := h.service.DailyReport(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// DailyReportPDF godoc
// @Summary Daily collection report as PDF
// @Tags Reports
// @Produce application/pdf
// @Security BearerAuth
// @Param date query string false "Report date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /reports/daily/pdf [get]
func (h *CollectionsHandler) DailyReportPDF(c *gin.Context) {
	var query dto.DailyReportQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.documents.DailyReportPDF(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, true)
}

// IncomeExpenses godoc
// @Summary Monthly income against expenses
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year, defaults to the current one"
// @Param municipality_id query string false "Municipality ID"
// @Success 200 {object} response.Envelope
// @Router /reports/income-expenses [get]
func (h *CollectionsHandler) IncomeExpenses(c *gin.Context) {
	var query dto.IncomeExpensesQuery
	if !bindQuery(c, &query) {
		return
	}
	if query.Year == 0 {
		query.Year = h.now().Year()
	}
	flows, err := h.service.IncomeExpenses(c.Request.Context(), query.Year, query.MunicipalityID, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, flows, nil)
}
