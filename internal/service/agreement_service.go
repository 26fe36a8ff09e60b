package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/billing"
	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type agreementRepository interface {
	Create(ctx context.Context, agreement *models.PaymentAgreement) error
	ListIssued(ctx context.Context) ([]models.AgreementDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.AgreementStatus) error
	List(ctx context.Context, filter models.AgreementFilter) ([]models.AgreementDetail, error)
}

type agreementInstallmentReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Installment, error)
}

type agreementOwnerReader interface {
	FindOwner(ctx context.Context, debtID string) (*models.DebtOwner, error)
}

// AgreementService records promises to pay and resolves them lazily.
type AgreementService struct {
	repo         agreementRepository
	installments agreementInstallmentReader
	owners       agreementOwnerReader
	validator    *validator.Validate
	logger       *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

// NewAgreementService constructs an AgreementService.
func NewAgreementService(repo agreementRepository, installments agreementInstallmentReader, owners agreementOwnerReader, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *AgreementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AgreementService{repo: repo, installments: installments, owners: owners, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// Create registers an agreement on an open installment.
func (s *AgreementService) Create(ctx context.Context, installmentID string, req dto.AgreementRequest, actor Capabilities) (*models.PaymentAgreement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid agreement payload")
	}
	promised, err := dto.ParseDate(req.PromisedDate)
	if err != nil {
		return nil, validationError(err, "invalid promised date")
	}
	today := billing.Today(s.now(), s.loc)
	if promised.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "promised date cannot be in the past")
	}

	installment, err := s.installments.FindByID(ctx, nil, installmentID)
	if err != nil {
		return nil, lookupError(err, "installment not found", "failed to load installment")
	}
	owner, err := s.owners.FindOwner(ctx, installment.DebtID)
	if err != nil {
		return nil, lookupError(err, "debt not found", "failed to load debt owner")
	}
	if !actor.Scope.Allows(owner.MunicipalityID, owner.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "installment is outside your scope")
	}
	if !installment.Balance().IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "installment is already paid")
	}

	agreement := &models.PaymentAgreement{
		InstallmentID: installmentID,
		AgreementDate: today,
		PromisedDate:  promised,
		Note:          req.Note,
		Status:        models.AgreementIssued,
	}
	if actor.UserID != "" {
		creator := actor.UserID
		agreement.CreatedBy = &creator
	}
	if err := s.repo.Create(ctx, agreement); err != nil {
		return nil, internalError(err, "failed to create agreement")
	}
	return agreement, nil
}

// List reconciles issued agreements and returns those the actor can see.
func (s *AgreementService) List(ctx context.Context, filter models.AgreementFilter, actor Capabilities) ([]models.AgreementDetail, error) {
	today := billing.Today(s.now(), s.loc)
	if err := s.reconcile(ctx, today); err != nil {
		return nil, err
	}

	filter.Scope = actor.AgreementScope()
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list agreements")
	}

	out := make([]models.AgreementDetail, 0, len(items))
	for _, item := range items {
		item.DaysRemaining = billing.DaysRemaining(item.PaymentAgreement, today)
		if filter.MaxDaysRemaining != nil && item.DaysRemaining > *filter.MaxDaysRemaining {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *AgreementService) reconcile(ctx context.Context, today time.Time) error {
	issued, err := s.repo.ListIssued(ctx)
	if err != nil {
		return internalError(err, "failed to load issued agreements")
	}
	changed := 0
	for i := range issued {
		agreement := issued[i].PaymentAgreement
		if !billing.ReconcileAgreement(&agreement, issued[i].InstallmentStatus, today) {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, agreement.ID, agreement.Status); err != nil {
			return internalError(err, "failed to update agreement status")
		}
		changed++
	}
	if changed > 0 {
		s.logger.Info("agreements reconciled", zap.Int("changed", changed))
	}
	return nil
}
