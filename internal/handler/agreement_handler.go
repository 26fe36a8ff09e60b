package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
	"github.com/noah-isme/preicfes-api/pkg/response"
)

type agreementService interface {
	Create(ctx context.Context, installmentID string, req dto.AgreementRequest, actor service.Capabilities) (*models.PaymentAgreement, error)
	List(ctx context.Context, filter models.AgreementFilter, actor service.Capabilities) ([]models.AgreementDetail, error)
}

// AgreementHandler exposes payment agreements.
type AgreementHandler struct {
	service agreementService
}

// NewAgreementHandler constructs AgreementHandler.
func NewAgreementHandler(svc agreementService) *AgreementHandler {
	return &AgreementHandler{service: svc}
}

// Create godoc
// @Summary Register a payment agreement
// @Tags Agreements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Param payload body dto.AgreementRequest true "Agreement"
// @Success 201 {object} response.Envelope
// @Router /installments/{id}/agreements [post]
func (h *AgreementHandler) Create(c *gin.Context) {
	var req dto.AgreementRequest
	if !bindJSON(c, &req) {
		return
	}
	agreement, err := h.service.Create(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, agreement)
}

// List godoc
// @Summary List payment agreements
// @Description Issued agreements are reconciled against their installments first
// @Tags Agreements
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param department_id query string false "Department ID"
// @Param status query string false "issued, fulfilled or broken"
// @Param max_days query int false "Maximum days remaining"
// @Success 200 {object} response.Envelope
// @Router /agreements [get]
func (h *AgreementHandler) List(c *gin.Context) {
	var query dto.AgreementQuery
	if !bindQuery(c, &query) {
		return
	}
	items, err := h.service.List(c.Request.Context(), query.Filter(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
