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

type locationService interface {
	CreateDepartment(ctx context.Context, req dto.DepartmentRequest) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateMunicipality(ctx context.Context, req dto.MunicipalityRequest) (*models.Municipality, error)
	ListMunicipalities(ctx context.Context, departmentID string) ([]models.Municipality, error)
	CreateSite(ctx context.Context, req dto.SiteRequest) (*models.Site, error)
	ListSites(ctx context.Context, municipalityID string) ([]models.Site, error)
	CreateRoom(ctx context.Context, req dto.RoomRequest) (*models.Room, error)
	ListRooms(ctx context.Context, siteID string) ([]models.Room, error)
	CreateGroup(ctx context.Context, req dto.GroupRequest, actor service.Capabilities) (*models.GroupDetail, error)
	GetGroup(ctx context.Context, id string, actor service.Capabilities) (*models.GroupDetail, error)
	ListGroups(ctx context.Context, query dto.GroupQuery, actor service.Capabilities) ([]models.GroupDetail, *models.Pagination, error)
}

// LocationHandler exposes the department, municipality, site, room and group tree.
type LocationHandler struct {
	service locationService
}

// NewLocationHandler builds a LocationHandler.
func NewLocationHandler(svc locationService) *LocationHandler {
	return &LocationHandler{service: svc}
}

// ListDepartments godoc
// @Summary List departments
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *LocationHandler) ListDepartments(c *gin.Context) {
	items, err := h.service.ListDepartments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *LocationHandler) CreateDepartment(c *gin.Context) {
	var req dto.DepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListMunicipalities godoc
// @Summary List municipalities
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Param department_id query string false "Department ID"
// @Success 200 {object} response.Envelope
// @Router /municipalities [get]
func (h *LocationHandler) ListMunicipalities(c *gin.Context) {
	items, err := h.service.ListMunicipalities(c.Request.Context(), c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateMunicipality godoc
// @Summary Create municipality
// @Tags Locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MunicipalityRequest true "Municipality"
// @Success 201 {object} response.Envelope
// @Router /municipalities [post]
func (h *LocationHandler) CreateMunicipality(c *gin.Context) {
	var req dto.MunicipalityRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateMunicipality(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListSites godoc
// @Summary List sites
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Success 200 {object} response.Envelope
// @Router /sites [get]
func (h *LocationHandler) ListSites(c *gin.Context) {
	items, err := h.service.ListSites(c.Request.Context(), c.Query("municipality_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateSite godoc
// @Summary Create site
// @Tags Locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SiteRequest true "Site"
// @Success 201 {object} response.Envelope
// @Router /sites [post]
func (h *LocationHandler) CreateSite(c *gin.Context) {
	var req dto.SiteRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateSite(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListRooms godoc
// @Summary List rooms
// @Tags Locations
// @Produce json
// @Security BearerAuth
// @Param site_id query string false "Site ID"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *LocationHandler) ListRooms(c *gin.Context) {
	items, err := h.service.ListRooms(c.Request.Context(), c.Query("site_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateRoom godoc
// @Summary Create room
// @Tags Locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RoomRequest true "Room"
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *LocationHandler) CreateRoom(c *gin.Context) {
	var req dto.RoomRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListGroups godoc
// @Summary List groups
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param municipality_id query string false "Municipality ID"
// @Param site_id query string false "Site ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *LocationHandler) ListGroups(c *gin.Context) {
	var query dto.GroupQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.ListGroups(c.Request.Context(), query, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// CreateGroup godoc
// @Summary Create group
// @Description The code defaults to department, municipality and site initials plus a sequence
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GroupRequest true "Group"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /groups [post]
func (h *LocationHandler) CreateGroup(c *gin.Context) {
	var req dto.GroupRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateGroup(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// GetGroup godoc
// @Summary Get group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *LocationHandler) GetGroup(c *gin.Context) {
	item, err := h.service.GetGroup(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
