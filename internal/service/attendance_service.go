package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type attendanceRepository interface {
	Roster(ctx context.Context, classID, groupID string) ([]models.AttendanceRow, error)
	UpsertAttendance(ctx context.Context, exec sqlx.ExtContext, record *models.Attendance) error
	UpsertGrade(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error
	AbsenceExists(ctx context.Context, classID, studentID string) (bool, error)
	CreateAbsence(ctx context.Context, absence *models.Absence) error
}

type attendanceClassStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassDetail, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ClassStatus) error
}

type groupMemberReader interface {
	ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.Student, error)
}

var maxGrade = decimal.NewFromInt(100)

// AttendanceConfig bounds professor registration around the class slot.
type AttendanceConfig struct {
	Window   time.Duration
	Location *time.Location
}

// AttendanceService registers attendance, grades and absences for classes.
type AttendanceService struct {
	tx        txProvider
	repo      attendanceRepository
	classes   attendanceClassStore
	members   groupMemberReader
	validator *validator.Validate
	logger    *zap.Logger
	window    time.Duration
	loc       *time.Location
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(tx txProvider, repo attendanceRepository, classes attendanceClassStore, members groupMemberReader, validate *validator.Validate, logger *zap.Logger, cfg AttendanceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &AttendanceService{
		tx:        tx,
		repo:      repo,
		classes:   classes,
		members:   members,
		validator: validate,
		logger:    logger,
		window:    cfg.Window,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

// Roster returns the current members of the class group with their marks.
func (s *AttendanceService) Roster(ctx context.Context, classID string, actor Capabilities) ([]models.AttendanceRow, error) {
	class, err := s.loadClass(ctx, classID, actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Roster(ctx, class.ID, class.GroupID)
	if err != nil {
		return nil, internalError(err, "failed to load roster")
	}
	return rows, nil
}

// Register stores attendance and grades for the group of a class in one
// transaction, optionally closing the class.
func (s *AttendanceService) Register(ctx context.Context, classID string, req dto.AttendanceRequest, actor Capabilities) ([]models.AttendanceRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	for _, entry := range req.Entries {
		if entry.Grade != nil && (entry.Grade.IsNegative() || entry.Grade.GreaterThan(maxGrade)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "grades must be between 0 and 100")
		}
	}
	class, err := s.loadClass(ctx, classID, actor)
	if err != nil {
		return nil, err
	}
	if class.Status == models.ClassCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class was cancelled")
	}
	if err := s.checkWindow(class, actor); err != nil {
		return nil, err
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		members, err := s.members.ListByGroup(ctx, tx, class.GroupID)
		if err != nil {
			return internalError(err, "failed to load group members")
		}
		inGroup := make(map[string]bool, len(members))
		for _, member := range members {
			inGroup[member.ID] = true
		}
		for _, entry := range req.Entries {
			if !inGroup[entry.StudentID] {
				return appErrors.Clone(appErrors.ErrValidation, "student "+entry.StudentID+" is not in the class group")
			}
			record := &models.Attendance{ClassID: class.ID, StudentID: entry.StudentID, Attended: entry.Attended}
			if err := s.repo.UpsertAttendance(ctx, tx, record); err != nil {
				return internalError(err, "failed to save attendance")
			}
			if entry.Grade != nil {
				grade := &models.Grade{ClassID: class.ID, StudentID: entry.StudentID, Value: *entry.Grade}
				if err := s.repo.UpsertGrade(ctx, tx, grade); err != nil {
					return internalError(err, "failed to save grade")
				}
			}
		}
		if req.MarkTaught && class.Status != models.ClassTaught {
			if err := s.classes.UpdateStatus(ctx, tx, class.ID, models.ClassTaught); err != nil {
				return internalError(err, "failed to mark class taught")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendance registered",
		zap.String("class_id", class.ID),
		zap.Int("entries", len(req.Entries)),
		zap.Bool("mark_taught", req.MarkTaught),
		zap.String("user_id", actor.UserID),
	)

	rows, err := s.repo.Roster(ctx, class.ID, class.GroupID)
	if err != nil {
		return nil, internalError(err, "failed to load roster")
	}
	return rows, nil
}

// RecordAbsence documents a missed class. Only one absence per class and student.
func (s *AttendanceService) RecordAbsence(ctx context.Context, req dto.AbsenceRequest, actor Capabilities) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid absence payload")
	}
	class, err := s.loadClass(ctx, req.ClassID, actor)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.AbsenceExists(ctx, class.ID, req.StudentID)
	if err != nil {
		return nil, internalError(err, "failed to check absence")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "absence already recorded for this class")
	}
	absence := &models.Absence{
		ClassID:   class.ID,
		StudentID: req.StudentID,
		Reason:    trimmed(req.Reason),
		Justified: req.Justified,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		absence.RecordedBy = &userID
	}
	if err := s.repo.CreateAbsence(ctx, absence); err != nil {
		return nil, internalError(err, "failed to record absence")
	}
	return absence, nil
}

func (s *AttendanceService) loadClass(ctx context.Context, classID string, actor Capabilities) (*models.ClassDetail, error) {
	class, err := s.classes.FindByID(ctx, nil, classID)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	if !canSeeClass(class, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")
	}
	return class, nil
}

// checkWindow lets privileged staff register at any time. The assigned
// professor may register from window before the slot starts until window
// after it ends, as long as the class is still open.
func (s *AttendanceService) checkWindow(class *models.ClassDetail, actor Capabilities) error {
	if actor.Can(CapRegisterAttendanceAnytime) && actor.Scope.Allows(class.MunicipalityID, class.DepartmentID) {
		return nil
	}
	if class.ProfessorID == nil || *class.ProfessorID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the assigned professor can register attendance")
	}
	if class.Status == models.ClassTaught {
		return appErrors.Clone(appErrors.ErrOutsideWindow, "class was already marked taught")
	}
	start, end, err := class.TimeSlot.Bounds(class.Date, s.loc)
	if err != nil {
		return internalError(err, "class has an invalid time slot")
	}
	now := s.now().In(s.loc)
	if now.Before(start.Add(-s.window)) || now.After(end.Add(s.window)) {
		return appErrors.Clone(appErrors.ErrOutsideWindow, "attendance can only be registered around the class time")
	}
	return nil
}
