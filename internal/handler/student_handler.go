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

type studentService interface {
	List(ctx context.Context, query dto.StudentQuery, actor service.Capabilities) ([]models.StudentDetail, *models.Pagination, error)
	Withdrawn(ctx context.Context, query dto.StudentQuery, actor service.Capabilities) ([]models.StudentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string, actor service.Capabilities) (*models.StudentDetail, error)
	Create(ctx context.Context, req dto.StudentRequest, actor service.Capabilities) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, req dto.StudentRequest, actor service.Capabilities) (*models.StudentDetail, error)
	Withdraw(ctx context.Context, id string, actor service.Capabilities) (*models.StudentDetail, error)
}

type studentDebtReader interface {
	GetDebtByStudent(ctx context.Context, studentID string, actor service.Capabilities) (*models.DebtDetail, error)
}

type studentDocuments interface {
	ClearancePDF(ctx context.Context, studentID string, actor service.Capabilities) (*service.File, error)
	EnrollmentCertificatePDF(ctx context.Context, studentID string, actor service.Capabilities) (*service.File, error)
	WithdrawnCSV(ctx context.Context, query dto.StudentQuery, actor service.Capabilities) (*service.File, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students  studentService
	ledger    studentDebtReader
	documents studentDocuments
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, ledger studentDebtReader, documents studentDocuments) *StudentHandler {
	return &StudentHandler{students: students, ledger: ledger, documents: documents}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name or identification"
// @Param status query string false "active or withdrawn"
// @Param program query string false "Program"
// @Param scholarship query bool false "Scholarship holders only"
// @Param municipality_id query string false "Municipality ID"
// @Param group_id query string false "Group ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var query dto.StudentQuery
	if !bindQuery(c, &query) {
		return
	}
	students, pagination, err := h.students.List(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Withdrawn godoc
// @Summary List withdrawn students
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name or identification"
// @Param municipality_id query string false "Municipality ID"
// @Success 200 {object} response.Envelope
// @Router /students/withdrawn [get]
func (h *StudentHandler) Withdrawn(c *gin.Context) {
	var query dto.StudentQuery
	if !bindQuery(c, &query) {
		return
	}
	students, pagination, err := h.students.Withdrawn(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// ExportWithdrawn godoc
// @Summary Export withdrawn students as CSV
// @Tags Students
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /students/withdrawn/export [get]
func (h *StudentHandler) ExportWithdrawn(c *gin.Context) {
	var query dto.StudentQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.documents.WithdrawnCSV(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, false)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Enroll a student
// @Description Opens the student's debt when debt_total is provided
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.StudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body dto.StudentRequest true "Student"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.StudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Withdraw godoc
// @Summary Withdraw student
// @Description Moves the student to the municipality's withdrawn group
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/withdraw [post]
func (h *StudentHandler) Withdraw(c *gin.Context) {
	student, err := h.students.Withdraw(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Debt godoc
// @Summary Get the student's debt with installments
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/debt [get]
func (h *StudentHandler) Debt(c *gin.Context) {
	debt, err := h.ledger.GetDebtByStudent(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}

// Certificate godoc
// @Summary Enrollment certificate PDF
// @Tags Students
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Router /students/{id}/certificate [get]
func (h *StudentHandler) Certificate(c *gin.Context) {
	file, err := h.documents.EnrollmentCertificatePDF(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, true)
}

// Clearance godoc
// @Summary Payment clearance PDF
// @Description Only available once the debt is fully paid
// @Tags Students
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/clearance [get]
func (h *StudentHandler) Clearance(c *gin.Context) {
	file, err := h.documents.ClearancePDF(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, true)
}
