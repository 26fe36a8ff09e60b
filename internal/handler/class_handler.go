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

type classService interface {
	List(ctx context.Context, query dto.ClassQuery, actor service.Capabilities) ([]models.ClassDetail, *models.Pagination, error)
	Get(ctx context.Context, id string, actor service.Capabilities) (*models.ClassDetail, error)
	Create(ctx context.Context, req dto.ClassRequest, actor service.Capabilities) (*models.ClassDetail, error)
	Update(ctx context.Context, id string, req dto.ClassRequest, actor service.Capabilities) (*models.ClassDetail, error)
	MarkTaught(ctx context.Context, id string, actor service.Capabilities) (*models.ClassDetail, error)
}

type attendanceService interface {
	Roster(ctx context.Context, classID string, actor service.Capabilities) ([]models.AttendanceRow, error)
	Register(ctx context.Context, classID string, req dto.AttendanceRequest, actor service.Capabilities) ([]models.AttendanceRow, error)
	RecordAbsence(ctx context.Context, req dto.AbsenceRequest, actor service.Capabilities) (*models.Absence, error)
}

type classDocuments interface {
	MockExamCertificates(ctx context.Context, classID string, actor service.Capabilities) (*service.File, error)
}

// ClassHandler exposes class scheduling and attendance endpoints.
type ClassHandler struct {
	classes    classService
	attendance attendanceService
	documents  classDocuments
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(classes classService, attendance attendanceService, documents classDocuments) *ClassHandler {
	return &ClassHandler{classes: classes, attendance: attendance, documents: documents}
}

// List godoc
// @Summary List classes
// @Description Professors only see their own classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param professor_id query string false "Professor ID"
// @Param group_id query string false "Group ID"
// @Param status query string false "scheduled, taught or cancelled"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var query dto.ClassQuery
	if !bindQuery(c, &query) {
		return
	}
	classes, pagination, err := h.classes.List(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Certificates godoc
// @Summary Mock exam certificates PDF
// @Description One page per active student of the class group
// @Tags Classes
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/certificates [get]
func (h *ClassHandler) Certificates(c *gin.Context) {
	file, err := h.documents.MockExamCertificates(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Data, true)
}

// Create godoc
// @Summary Schedule a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ClassRequest true "Class"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req dto.ClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classes.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Reschedule a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body dto.ClassRequest true "Class"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req dto.ClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.classes.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// MarkTaught godoc
// @Summary Mark a class as taught
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/taught [post]
func (h *ClassHandler) MarkTaught(c *gin.Context) {
	class, err := h.classes.MarkTaught(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Roster godoc
// @Summary Attendance roster of a class
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/attendance [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	rows, err := h.attendance.Roster(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RegisterAttendance godoc
// @Summary Register attendance and grades
// @Description Assigned professors may only register around the class time
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body dto.AttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id}/attendance [post]
func (h *ClassHandler) RegisterAttendance(c *gin.Context) {
	var req dto.AttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	rows, err := h.attendance.Register(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RecordAbsence godoc
// @Summary Record an absence
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AbsenceRequest true "Absence"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /absences [post]
func (h *ClassHandler) RecordAbsence(c *gin.Context) {
	var req dto.AbsenceRequest
	if !bindJSON(c, &req) {
		return
	}
	absence, err := h.attendance.RecordAbsence(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}
