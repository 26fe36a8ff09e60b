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

type ledgerService interface {
	CreateDebt(ctx context.Context, req dto.CreateDebtRequest, actor service.Capabilities) (*models.DebtDetail, error)
	GetDebt(ctx context.Context, id string, actor service.Capabilities) (*models.DebtDetail, error)
	UpdateDebtTotal(ctx context.Context, id string, req dto.UpdateDebtRequest, actor service.Capabilities) (*models.Debt, error)
	ToggleDebtEdit(ctx context.Context, id string, actor service.Capabilities) (*models.Debt, error)
	AddInstallment(ctx context.Context, debtID string, req dto.InstallmentRequest, actor service.Capabilities) (*models.Installment, error)
	UpdateInstallment(ctx context.Context, id string, req dto.InstallmentRequest, actor service.Capabilities) (*models.Installment, error)
	DeleteInstallment(ctx context.Context, id string, actor service.Capabilities) error
	RecordPayment(ctx context.Context, installmentID string, req dto.PaymentRequest, actor service.Capabilities) (*dto.PaymentResult, error)
	GenerateInstallments(ctx context.Context, debtID string, req dto.GenerateInstallmentsRequest, actor service.Capabilities) (*models.DebtDetail, error)
	ListModifications(ctx context.Context, debtID string, actor service.Capabilities) ([]models.DebtModification, error)
	Receipt(ctx context.Context, installmentID string, actor service.Capabilities) (*models.ReceiptDetail, error)
}

type receiptRenderer interface {
	ReceiptPDF(ctx context.Context, installmentID string, actor service.Capabilities) (*service.File, error)
}

// LedgerHandler exposes debts, installments and payments.
type LedgerHandler struct {
	ledger   ledgerService
	receipts receiptRenderer
}

// NewLedgerHandler constructs LedgerHandler.
func NewLedgerHandler(ledger ledgerService, receipts receiptRenderer) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, receipts: receipts}
}

// CreateDebt godoc
// @Summary Open a debt for a student
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateDebtRequest true "Debt"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /debts [post]
func (h *LedgerHandler) CreateDebt(c *gin.Context) {
	var req dto.CreateDebtRequest
	if !bindJSON(c, &req) {
		return
	}
	debt, err := h.ledger.CreateDebt(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, debt)
}

// GetDebt godoc
// @Summary Get debt with installments
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Success 200 {object} response.Envelope
// @Router /debts/{id} [get]
func (h *LedgerHandler) GetDebt(c *gin.Context) {
	debt, err := h.ledger.GetDebt(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}

// UpdateDebt godoc
// @Summary Change the debt total
// @Description Rejected while the debt is locked or when the total drops below what was paid
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Param payload body dto.UpdateDebtRequest true "Total"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /debts/{id} [put]
func (h *LedgerHandler) UpdateDebt(c *gin.Context) {
	var req dto.UpdateDebtRequest
	if !bindJSON(c, &req) {
		return
	}
	debt, err := h.ledger.UpdateDebtTotal(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}

// ToggleEdit godoc
// @Summary Lock or unlock a debt for editing
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Success 200 {object} response.Envelope
// @Router /debts/{id}/toggle-edit [post]
func (h *LedgerHandler) ToggleEdit(c *gin.Context) {
	debt, err := h.ledger.ToggleDebtEdit(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}

// Modifications godoc
// @Summary Debt change history
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Success 200 {object} response.Envelope
// @Router /debts/{id}/modifications [get]
func (h *LedgerHandler) Modifications(c *gin.Context) {
	items, err := h.ledger.ListModifications(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// AddInstallment godoc
// @Summary Add an installment
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Param payload body dto.InstallmentRequest true "Installment"
// @Success 201 {object} response.Envelope
// @Router /debts/{id}/installments [post]
func (h *LedgerHandler) AddInstallment(c *gin.Context) {
	var req dto.InstallmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.ledger.AddInstallment(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Generate godoc
// @Summary Generate an installment schedule
// @Description Replaces the unpaid schedule with one covering the remaining balance
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Debt ID"
// @Param payload body dto.GenerateInstallmentsRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Router /debts/{id}/installments/generate [post]
func (h *LedgerHandler) Generate(c *gin.Context) {
	var req dto.GenerateInstallmentsRequest
	if !bindJSON(c, &req) {
		return
	}
	debt, err := h.ledger.GenerateInstallments(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}

// UpdateInstallment godoc
// @Summary Update an installment
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Param payload body dto.InstallmentRequest true "Installment"
// @Success 200 {object} response.Envelope
// @Router /installments/{id} [put]
func (h *LedgerHandler) UpdateInstallment(c *gin.Context) {
	var req dto.InstallmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.ledger.UpdateInstallment(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteInstallment godoc
// @Summary Delete an installment
// @Tags Ledger
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Success 204
// @Router /installments/{id} [delete]
func (h *LedgerHandler) DeleteInstallment(c *gin.Context) {
	if err := h.ledger.DeleteInstallment(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordPayment godoc
// @Summary Record a payment
// @Description Issues a receipt; with carry_over the excess moves to the next installment
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Param payload body dto.PaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /installments/{id}/payments [post]
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.RecordPayment(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Receipt godoc
// @Summary Latest receipt of an installment
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Success 200 {object} response.Envelope
// @Router /installments/{id}/receipt [get]
func (h *LedgerHandler) Receipt(c *gin.Context) {
	receipt, err := h.ledger.Receipt(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// ReceiptPDF godoc
// @Summary Printable receipt
// @Tags Ledger
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Success 200 {file} file
// @Router /installments/{id}/receipt.pdf [get]
func (h *LedgerHandler) ReceiptPDF(c *gin.Context) {
	file, err := h.receipts.ReceiptPDF(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, true)
}
