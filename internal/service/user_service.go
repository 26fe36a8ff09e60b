package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// CreateUserRequest represents payload for creating staff accounts.
type CreateUserRequest struct {
	Username       string          `json:"username" validate:"required,min=3,max=60"`
	FullName       string          `json:"full_name" validate:"required"`
	Role           models.UserRole `json:"role" validate:"required,oneof=SUPERUSER COLLECTIONS_SECRETARY COLLECTIONS ASSISTANT DEPARTMENT_COORDINATOR ACADEMIC_SECRETARY PROFESSOR"`
	Password       string          `json:"password" validate:"required,min=8"`
	MunicipalityID *string         `json:"municipality_id"`
	DepartmentID   *string         `json:"department_id"`
	Phone          *string         `json:"phone"`
}

// UpdateUserRequest payload for updating staff accounts.
type UpdateUserRequest struct {
	FullName       string          `json:"full_name" validate:"required"`
	Role           models.UserRole `json:"role" validate:"required,oneof=SUPERUSER COLLECTIONS_SECRETARY COLLECTIONS ASSISTANT DEPARTMENT_COORDINATOR ACADEMIC_SECRETARY PROFESSOR"`
	MunicipalityID *string         `json:"municipality_id"`
	DepartmentID   *string         `json:"department_id"`
	Phone          *string         `json:"phone"`
	Active         *bool           `json:"active"`
}

// UserService handles staff account management.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new staff account.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if err := validateUserScope(req.Role, req.MunicipalityID, req.DepartmentID); err != nil {
		return nil, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Username:       username,
		FullName:       strings.TrimSpace(req.FullName),
		Role:           req.Role,
		MunicipalityID: req.MunicipalityID,
		DepartmentID:   req.DepartmentID,
		Phone:          req.Phone,
		Active:         true,
		PasswordHash:   string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)), zap.String("actor_id", actorID))
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if err := validateUserScope(req.Role, req.MunicipalityID, req.DepartmentID); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FullName = strings.TrimSpace(req.FullName)
	user.Role = req.Role
	user.MunicipalityID = req.MunicipalityID
	user.DepartmentID = req.DepartmentID
	user.Phone = req.Phone
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID), zap.String("actor_id", actorID))
	return user, nil
}

// validateUserScope makes sure scoped roles carry the location they are scoped to.
func validateUserScope(role models.UserRole, municipalityID, departmentID *string) error {
	switch role {
	case models.RoleDepartmentCoordinator:
		if departmentID == nil || *departmentID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "department coordinators require a department")
		}
	case models.RoleCollectionsSecretary, models.RoleCollections, models.RoleAssistant, models.RoleAcademicSecretary:
		if municipalityID == nil || *municipalityID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "this role requires a municipality")
		}
	}
	return nil
}

func newPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
