package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.ClassSession) error
	Update(ctx context.Context, class *models.ClassSession) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ClassStatus) error
	RoomBusy(ctx context.Context, roomID string, date time.Time, slot models.TimeSlot, excludeID string) (bool, error)
	ProfessorBusy(ctx context.Context, professorID string, date time.Time, slot models.TimeSlot, excludeID string) (bool, error)
}

type roomLocator interface {
	FindRoomLocation(ctx context.Context, roomID string) (*models.RoomLocation, error)
}

type classGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
}

type professorReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ClassService schedules class sessions and keeps rooms and professors free
// of double bookings.
type ClassService struct {
	repo      classRepository
	rooms     roomLocator
	groups    classGroupReader
	users     professorReader
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, rooms roomLocator, groups classGroupReader, users professorReader, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ClassService{repo: repo, rooms: rooms, groups: groups, users: users, validator: validate, logger: logger, loc: loc}
}

// List returns classes visible to the actor. Staff without academic
// capability only see the classes they teach.
func (s *ClassService) List(ctx context.Context, query dto.ClassQuery, actor Capabilities) ([]models.ClassDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid class filter")
	}
	filter := models.ClassFilter{
		ProfessorID: query.ProfessorID,
		GroupID:     query.GroupID,
		Scope:       actor.Scope,
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	if !actor.Can(CapManageAcademics) {
		filter.ProfessorID = actor.UserID
		filter.Scope = models.Scope{Kind: models.ScopeAll}
	}
	if query.Status != "" {
		status := models.ClassStatus(query.Status)
		filter.Status = &status
	}
	var err error
	if filter.DateFrom, err = dto.ParseOptionalDate(optionalString(query.DateFrom)); err != nil {
		return nil, nil, validationError(err, "invalid date_from")
	}
	if filter.DateTo, err = dto.ParseOptionalDate(optionalString(query.DateTo)); err != nil {
		return nil, nil, validationError(err, "invalid date_to")
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list classes")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a class the actor may see.
func (s *ClassService) Get(ctx context.Context, id string, actor Capabilities) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	if !canSeeClass(class, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")
	}
	return class, nil
}

// Create schedules a class session.
func (s *ClassService) Create(ctx context.Context, req dto.ClassRequest, actor Capabilities) (*models.ClassDetail, error) {
	class, err := s.classFromRequest(ctx, req, "", actor)
	if err != nil {
		return nil, err
	}
	class.Status = models.ClassScheduled
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, internalError(err, "failed to create class")
	}
	s.logger.Info("class scheduled", zap.String("class_id", class.ID), zap.String("group_id", class.GroupID), zap.String("time_slot", string(class.TimeSlot)))
	return s.reload(ctx, class.ID)
}

// Update reschedules a class that has not been taught yet.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassRequest, actor Capabilities) (*models.ClassDetail, error) {
	existing, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.ClassTaught {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class was already taught")
	}
	class, err := s.classFromRequest(ctx, req, id, actor)
	if err != nil {
		return nil, err
	}
	class.ID = id
	class.Status = existing.Status
	class.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, internalError(err, "failed to update class")
	}
	return s.reload(ctx, id)
}

// MarkTaught closes a class; attendance can no longer be edited by its professor.
func (s *ClassService) MarkTaught(ctx context.Context, id string, actor Capabilities) (*models.ClassDetail, error) {
	class, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if class.Status == models.ClassCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class was cancelled")
	}
	if class.Status != models.ClassTaught {
		if err := s.repo.UpdateStatus(ctx, nil, id, models.ClassTaught); err != nil {
			return nil, lookupError(err, "class not found", "failed to mark class taught")
		}
		class.Status = models.ClassTaught
	}
	return class, nil
}

func (s *ClassService) classFromRequest(ctx context.Context, req dto.ClassRequest, excludeID string, actor Capabilities) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	date, err := dto.ParseDate(req.Date)
	if err != nil {
		return nil, validationError(err, "invalid class date")
	}
	slot := models.TimeSlot(strings.TrimSpace(req.TimeSlot))
	if _, _, err := slot.Bounds(date, s.loc); err != nil {
		return nil, validationError(err, "invalid time slot")
	}

	room, err := s.rooms.FindRoomLocation(ctx, req.RoomID)
	if err != nil {
		return nil, lookupError(err, "room not found", "failed to load room")
	}
	if !actor.Scope.Allows(room.MunicipalityID, room.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "room is outside your scope")
	}
	group, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, lookupError(err, "group not found", "failed to load group")
	}
	if group.MunicipalityID != room.MunicipalityID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group and room belong to different municipalities")
	}

	busy, err := s.repo.RoomBusy(ctx, room.RoomID, date, slot, excludeID)
	if err != nil {
		return nil, internalError(err, "failed to check room availability")
	}
	if busy {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room already has a class in that slot")
	}

	professorID := trimmed(req.ProfessorID)
	if professorID != nil {
		professor, err := s.users.FindByID(ctx, *professorID)
		if err != nil {
			return nil, lookupError(err, "professor not found", "failed to load professor")
		}
		if professor.Role != models.RoleProfessor || !professor.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned user is not an active professor")
		}
		busy, err := s.repo.ProfessorBusy(ctx, professor.ID, date, slot, excludeID)
		if err != nil {
			return nil, internalError(err, "failed to check professor availability")
		}
		if busy {
			return nil, appErrors.Clone(appErrors.ErrConflict, "professor already teaches in that slot")
		}
	}

	return &models.ClassSession{
		Date:        date,
		TimeSlot:    slot,
		RoomID:      room.RoomID,
		GroupID:     group.ID,
		Subject:     strings.TrimSpace(req.Subject),
		ProfessorID: professorID,
	}, nil
}

func (s *ClassService) reload(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, internalError(err, "failed to load class")
	}
	return class, nil
}

// canSeeClass allows location-scoped staff and the professor assigned to the class.
func canSeeClass(class *models.ClassDetail, actor Capabilities) bool {
	if class.ProfessorID != nil && *class.ProfessorID == actor.UserID {
		return true
	}
	return actor.Can(CapManageAcademics) && actor.Scope.Allows(class.MunicipalityID, class.DepartmentID)
}
