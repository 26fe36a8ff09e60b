package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/billing"
	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByIdentification(ctx context.Context, identification string, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Withdraw(ctx context.Context, id string, date time.Time, groupID string) error
}

type studentGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	FindByCode(ctx context.Context, municipalityID, code string) (*models.GroupDetail, error)
}

type municipalityReader interface {
	FindMunicipality(ctx context.Context, id string) (*models.Municipality, error)
}

type debtOpener interface {
	OpenDebt(ctx context.Context, exec sqlx.ExtContext, studentID string, total decimal.Decimal, actorID string) (*models.Debt, error)
}

// StudentService handles enrollment, edits and withdrawals.
type StudentService struct {
	repo           studentRepository
	groups         studentGroupReader
	municipalities municipalityReader
	debts          debtOpener
	tx             txProvider
	validator      *validator.Validate
	logger         *zap.Logger
	loc            *time.Location
	now            func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, groups studentGroupReader, municipalities municipalityReader, debts debtOpener, tx txProvider, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StudentService{
		repo:           repo,
		groups:         groups,
		municipalities: municipalities,
		debts:          debts,
		tx:             tx,
		validator:      validate,
		logger:         logger,
		loc:            loc,
		now:            time.Now,
	}
}

// List returns the students visible to the actor and pagination metadata.
func (s *StudentService) List(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid student filter")
	}
	filter := models.StudentFilter{
		Search:         query.Search,
		Scholarship:    query.Scholarship,
		MunicipalityID: query.MunicipalityID,
		GroupID:        query.GroupID,
		Scope:          actor.Scope,
		Page:           query.Page,
		PageSize:       query.PageSize,
		SortBy:         query.SortBy,
		SortOrder:      query.SortOrder,
	}
	if query.Status != "" {
		status := models.StudentStatus(query.Status)
		filter.Status = &status
	}
	if query.Program != "" {
		program := models.Program(query.Program)
		filter.Program = &program
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	return students, newPagination(filter.Page, filter.PageSize, total), nil
}

// Withdrawn lists withdrawn students visible to the actor.
func (s *StudentService) Withdrawn(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error) {
	query.Status = string(models.StudentWithdrawn)
	return s.List(ctx, query, actor)
}

// Get returns a student with the summary of its debt.
func (s *StudentService) Get(ctx context.Context, id string, actor Capabilities) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to get student")
	}
	if !actor.Scope.Allows(student.MunicipalityID, student.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your scope")
	}
	return student, nil
}

// Create enrolls a student. A positive debt total opens the tuition debt in
// the same transaction.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest, actor Capabilities) (*models.StudentDetail, error) {
	student, err := s.studentFromRequest(ctx, req, "", actor)
	if err != nil {
		return nil, err
	}
	if req.DebtTotal != nil && req.DebtTotal.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "debt total cannot be negative")
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, student); err != nil {
			return internalError(err, "failed to create student")
		}
		if req.DebtTotal != nil && req.DebtTotal.IsPositive() {
			if _, err := s.debts.OpenDebt(ctx, tx, student.ID, *req.DebtTotal, actor.UserID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student enrolled", zap.String("student_id", student.ID), zap.String("municipality_id", student.MunicipalityID))

	created, err := s.repo.FindByID(ctx, student.ID)
	if err != nil {
		return nil, internalError(err, "failed to load created student")
	}
	return created, nil
}

// Update modifies a student.
func (s *StudentService) Update(ctx context.Context, id string, req dto.StudentRequest, actor Capabilities) (*models.StudentDetail, error) {
	existing, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	student, err := s.studentFromRequest(ctx, req, id, actor)
	if err != nil {
		return nil, err
	}
	student.ID = id
	student.Status = existing.Status
	student.WithdrawalDate = existing.WithdrawalDate
	student.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, internalError(err, "failed to update student")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load updated student")
	}
	return updated, nil
}

// Withdraw marks a student withdrawn today and moves them to the
// municipality's withdrawn group.
func (s *StudentService) Withdraw(ctx context.Context, id string, actor Capabilities) (*models.StudentDetail, error) {
	student, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if student.Status == models.StudentWithdrawn {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already withdrawn")
	}
	group, err := s.groups.FindByCode(ctx, student.MunicipalityID, models.WithdrawnGroupCode)
	if err != nil {
		return nil, lookupError(err, "municipality has no "+models.WithdrawnGroupCode+" group", "failed to load withdrawn group")
	}

	today := billing.Today(s.now(), s.loc)
	if err := s.repo.Withdraw(ctx, id, today, group.ID); err != nil {
		return nil, lookupError(err, "student not found", "failed to withdraw student")
	}
	s.logger.Info("student withdrawn", zap.String("student_id", id), zap.String("group_id", group.ID))

	student.Status = models.StudentWithdrawn
	student.WithdrawalDate = &today
	student.GroupID = &group.ID
	code := group.Code
	student.GroupCode = &code
	return student, nil
}

func (s *StudentService) studentFromRequest(ctx context.Context, req dto.StudentRequest, excludeID string, actor Capabilities) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	enrollment, err := dto.ParseDate(req.EnrollmentDate)
	if err != nil {
		return nil, validationError(err, "invalid enrollment date")
	}
	birth, err := dto.ParseOptionalDate(req.BirthDate)
	if err != nil {
		return nil, validationError(err, "invalid birth date")
	}
	completion, err := dto.ParseOptionalDate(req.CompletionDate)
	if err != nil {
		return nil, validationError(err, "invalid completion date")
	}
	if completion != nil && completion.Before(enrollment) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completion date must not be before enrollment date")
	}

	municipality, err := s.municipalities.FindMunicipality(ctx, req.MunicipalityID)
	if err != nil {
		return nil, lookupError(err, "municipality not found", "failed to load municipality")
	}
	if !actor.Scope.Allows(municipality.ID, municipality.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "municipality is outside your scope")
	}

	var groupID *string
	if req.GroupID != nil && *req.GroupID != "" {
		group, err := s.groups.FindByID(ctx, *req.GroupID)
		if err != nil {
			return nil, lookupError(err, "group not found", "failed to load group")
		}
		if group.MunicipalityID != municipality.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "group does not belong to the municipality")
		}
		groupID = &group.ID
	}

	identification := trimmed(req.Identification)
	if identification != nil {
		exists, err := s.repo.ExistsByIdentification(ctx, *identification, excludeID)
		if err != nil {
			return nil, internalError(err, "failed to check identification")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "identification already registered")
		}
	}

	return &models.Student{
		FirstNames:         strings.TrimSpace(req.FirstNames),
		FirstSurname:       strings.TrimSpace(req.FirstSurname),
		SecondSurname:      trimmed(req.SecondSurname),
		IdentificationType: models.IdentificationType(req.IdentificationType),
		Identification:     identification,
		BirthDate:          birth,
		Phone:              trimmed(req.Phone),
		Email:              trimmed(req.Email),
		GuardianName:       trimmed(req.GuardianName),
		GuardianPhone:      trimmed(req.GuardianPhone),
		Program:            models.Program(req.Program),
		Scholarship:        req.Scholarship,
		EnrollmentDate:     enrollment,
		CompletionDate:     completion,
		MunicipalityID:     municipality.ID,
		GroupID:            groupID,
	}, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
