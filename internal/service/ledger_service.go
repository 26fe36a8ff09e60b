package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

type ledgerDebtRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, debt *models.Debt) error
	FindByID(ctx context.Context, id string) (*models.Debt, error)
	FindByStudent(ctx context.Context, studentID string) (*models.Debt, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Debt, error)
	UpdateBalance(ctx context.Context, exec sqlx.ExtContext, debt *models.Debt) error
	FindOwner(ctx context.Context, debtID string) (*models.DebtOwner, error)
	CreateModification(ctx context.Context, exec sqlx.ExtContext, mod *models.DebtModification) error
	ListModifications(ctx context.Context, debtID string) ([]models.DebtModification, error)
}

type ledgerInstallmentRepository interface {
	ListByDebt(ctx context.Context, exec sqlx.ExtContext, debtID string) ([]models.Installment, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Installment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, items []models.Installment) error
	Update(ctx context.Context, exec sqlx.ExtContext, item *models.Installment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type ledgerReceiptRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, receipt *models.Receipt) error
	FindLatestByInstallment(ctx context.Context, installmentID string) (*models.ReceiptDetail, error)
}

type ledgerStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// LedgerConfig tunes the ledger clock.
type LedgerConfig struct {
	Location *time.Location
}

// LedgerService owns every write to debts and installments. Each write runs in
// one transaction holding the debt row lock and ends with a recompute of the
// debt balance.
type LedgerService struct {
	tx           txProvider
	debts        ledgerDebtRepository
	installments ledgerInstallmentRepository
	receipts     ledgerReceiptRepository
	students     ledgerStudentReader
	scheduler    *billing.Scheduler
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

// NewLedgerService wires the ledger service.
func NewLedgerService(
	tx txProvider,
	debts ledgerDebtRepository,
	installments ledgerInstallmentRepository,
	receipts ledgerReceiptRepository,
	students ledgerStudentReader,
	scheduler *billing.Scheduler,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg LedgerConfig,
) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler == nil {
		scheduler = billing.DefaultScheduler()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &LedgerService{
		tx:           tx,
		debts:        debts,
		installments: installments,
		receipts:     receipts,
		students:     students,
		scheduler:    scheduler,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		loc:          cfg.Location,
		now:          time.Now,
	}
}

func (s *LedgerService) today() time.Time {
	return billing.Today(s.now(), s.loc)
}

// CreateDebt opens the debt of a student. A student owns at most one debt.
func (s *LedgerService) CreateDebt(ctx context.Context, req dto.CreateDebtRequest, actor Capabilities) (*models.DebtDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid debt payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if !actor.Scope.Allows(student.MunicipalityID, student.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is outside your scope")
	}

	var debt *models.Debt
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var openErr error
		debt, openErr = s.OpenDebt(ctx, tx, req.StudentID, req.Total, actor.UserID)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("debt created", zap.String("debt_id", debt.ID), zap.String("student_id", req.StudentID), zap.String("total", debt.Total.String()))
	return &models.DebtDetail{
		Debt:           *debt,
		StudentName:    student.FullName(),
		MunicipalityID: student.MunicipalityID,
		DepartmentID:   student.DepartmentID,
		Installments:   []models.Installment{},
	}, nil
}

// OpenDebt inserts a debt inside exec's transaction. It is shared with
// enrollment, which opens the tuition debt together with the student.
func (s *LedgerService) OpenDebt(ctx context.Context, exec sqlx.ExtContext, studentID string, total decimal.Decimal, actorID string) (*models.Debt, error) {
	if !total.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "total must be greater than zero")
	}
	existing, err := s.debts.FindByStudent(ctx, studentID)
	if err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has a debt")
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check existing debt")
	}

	debt := &models.Debt{StudentID: studentID, Total: total, Remaining: total, Status: models.DebtIssued}
	if err := s.debts.Create(ctx, exec, debt); err != nil {
		return nil, internalError(err, "failed to create debt")
	}
	if err := s.logChange(ctx, exec, debt.ID, actorID, fmt.Sprintf("debt opened with total %s", debt.Total.StringFixed(0))); err != nil {
		return nil, err
	}
	return debt, nil
}

// GetDebt returns a debt with its installments.
func (s *LedgerService) GetDebt(ctx context.Context, id string, actor Capabilities) (*models.DebtDetail, error) {
	owner, err := s.authorize(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	debt, err := s.debts.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "debt not found", "failed to load debt")
	}
	return s.detail(ctx, debt, owner)
}

// GetDebtByStudent returns the debt of a student with its installments.
func (s *LedgerService) GetDebtByStudent(ctx context.Context, studentID string, actor Capabilities) (*models.DebtDetail, error) {
	debt, err := s.debts.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student has no debt", "failed to load debt")
	}
	owner, err := s.authorize(ctx, debt.ID, actor)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, debt, owner)
}

func (s *LedgerService) detail(ctx context.Context, debt *models.Debt, owner *models.DebtOwner) (*models.DebtDetail, error) {
	items, err := s.installments.ListByDebt(ctx, nil, debt.ID)
	if err != nil {
		return nil, internalError(err, "failed to load installments")
	}
	today := s.today()
	for i := range items {
		items[i].Status = billing.InstallmentStatus(items[i].Amount, items[i].AmountPaid, items[i].DueDate, today)
	}
	if items == nil {
		items = []models.Installment{}
	}
	return &models.DebtDetail{
		Debt:           *debt,
		StudentName:    owner.StudentName,
		MunicipalityID: owner.MunicipalityID,
		DepartmentID:   owner.DepartmentID,
		Installments:   items,
	}, nil
}

// UpdateDebtTotal changes the total of a debt. Locked debts need the override capability.
func (s *LedgerService) UpdateDebtTotal(ctx context.Context, id string, req dto.UpdateDebtRequest, actor Capabilities) (*models.Debt, error) {
	if !req.Total.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "total must be greater than zero")
	}
	if _, err := s.authorize(ctx, id, actor); err != nil {
		return nil, err
	}

	var debt *models.Debt
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var err error
		debt, err = s.lockDebt(ctx, tx, id)
		if err != nil {
			return err
		}
		if !debt.EditEnabled && !actor.Can(CapOverrideLedgerLocks) {
			return appErrors.ErrDebtLocked
		}
		items, err := s.installments.ListByDebt(ctx, tx, id)
		if err != nil {
			return internalError(err, "failed to load installments")
		}
		previous := debt.Total
		debt.Total = req.Total
		if err := s.saveBalance(ctx, tx, debt, items); err != nil {
			return err
		}
		return s.logChange(ctx, tx, id, actor.UserID, fmt.Sprintf("total changed from %s to %s", previous.StringFixed(0), req.Total.StringFixed(0)))
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return debt, nil
}

// ToggleDebtEdit flips whether the debt may be edited.
func (s *LedgerService) ToggleDebtEdit(ctx context.Context, id string, actor Capabilities) (*models.Debt, error) {
	if _, err := s.authorize(ctx, id, actor); err != nil {
		return nil, err
	}
	var debt *models.Debt
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var err error
		debt, err = s.lockDebt(ctx, tx, id)
		if err != nil {
			return err
		}
		debt.EditEnabled = !debt.EditEnabled
		if err := s.debts.UpdateBalance(ctx, tx, debt); err != nil {
			return internalError(err, "failed to update debt")
		}
		state := "disabled"
		if debt.EditEnabled {
			state = "enabled"
		}
		return s.logChange(ctx, tx, id, actor.UserID, "editing "+state)
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

// AddInstallment appends an installment to a debt.
func (s *LedgerService) AddInstallment(ctx context.Context, debtID string, req dto.InstallmentRequest, actor Capabilities) (*models.Installment, error) {
	item, err := s.installmentFromRequest(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, debtID, actor); err != nil {
		return nil, err
	}

	item.DebtID = debtID
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		debt, err := s.lockDebt(ctx, tx, debtID)
		if err != nil {
			return err
		}
		items, err := s.installments.ListByDebt(ctx, tx, debtID)
		if err != nil {
			return internalError(err, "failed to load installments")
		}
		billing.ApplyInstallment(item, s.today())
		if err := s.installments.Create(ctx, tx, item); err != nil {
			return internalError(err, "failed to create installment")
		}
		if err := s.saveBalance(ctx, tx, debt, append(items, *item)); err != nil {
			return err
		}
		return s.logChange(ctx, tx, debtID, actor.UserID, fmt.Sprintf("installment of %s due %s added", item.Amount.StringFixed(0), item.DueDate.Format(dto.DateLayout)))
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return item, nil
}

// UpdateInstallment edits an installment. Installments that already received
// money can only be edited with the override capability.
func (s *LedgerService) UpdateInstallment(ctx context.Context, id string, req dto.InstallmentRequest, actor Capabilities) (*models.Installment, error) {
	changes, err := s.installmentFromRequest(req)
	if err != nil {
		return nil, err
	}
	debtID, err := s.debtOfInstallment(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	var item *models.Installment
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		debt, err := s.lockDebt(ctx, tx, debtID)
		if err != nil {
			return err
		}
		items, err := s.installments.ListByDebt(ctx, tx, debtID)
		if err != nil {
			return internalError(err, "failed to load installments")
		}
		idx := indexOfInstallment(items, id)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		item = &items[idx]
		if item.HasPayments() && !actor.Can(CapOverrideLedgerLocks) {
			return appErrors.ErrInstallmentLocked
		}

		item.Amount = changes.Amount
		item.DueDate = changes.DueDate
		item.AmountPaid = changes.AmountPaid
		item.PaymentMethod = changes.PaymentMethod
		item.PaymentDate = changes.PaymentDate
		billing.ApplyInstallment(item, s.today())
		if err := s.installments.Update(ctx, tx, item); err != nil {
			return internalError(err, "failed to update installment")
		}
		if err := s.saveBalance(ctx, tx, debt, items); err != nil {
			return err
		}
		return s.logChange(ctx, tx, debtID, actor.UserID, fmt.Sprintf("installment %s edited: amount %s, paid %s, due %s",
			shortID(id), item.Amount.StringFixed(0), item.AmountPaid.StringFixed(0), item.DueDate.Format(dto.DateLayout)))
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return item, nil
}

// DeleteInstallment removes an installment and recomputes its debt.
func (s *LedgerService) DeleteInstallment(ctx context.Context, id string, actor Capabilities) error {
	debtID, err := s.debtOfInstallment(ctx, id, actor)
	if err != nil {
		return err
	}
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		debt, err := s.lockDebt(ctx, tx, debtID)
		if err != nil {
			return err
		}
		items, err := s.installments.ListByDebt(ctx, tx, debtID)
		if err != nil {
			return internalError(err, "failed to load installments")
		}
		idx := indexOfInstallment(items, id)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		removed := items[idx]
		if removed.HasPayments() && !actor.Can(CapOverrideLedgerLocks) {
			return appErrors.ErrInstallmentLocked
		}
		if err := s.installments.Delete(ctx, tx, id); err != nil {
			return lookupError(err, "installment not found", "failed to delete installment")
		}
		remaining := append(items[:idx:idx], items[idx+1:]...)
		if err := s.saveBalance(ctx, tx, debt, remaining); err != nil {
			return err
		}
		return s.logChange(ctx, tx, debtID, actor.UserID, fmt.Sprintf("installment of %s due %s deleted", removed.Amount.StringFixed(0), removed.DueDate.Format(dto.DateLayout)))
	})
	if err != nil {
		return err
	}
	s.invalidateReports(ctx)
	return nil
}

// RecordPayment applies money to an installment, issues a receipt and, when
// asked, carries the difference over to the next open installment.
func (s *LedgerService) RecordPayment(ctx context.Context, installmentID string, req dto.PaymentRequest, actor Capabilities) (*dto.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be greater than zero")
	}
	today := s.today()
	paidOn := today
	if req.Date != nil {
		parsed, err := dto.ParseOptionalDate(req.Date)
		if err != nil {
			return nil, validationError(err, "invalid payment date")
		}
		if parsed != nil {
			paidOn = *parsed
		}
	}
	if paidOn.After(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment date cannot be in the future")
	}

	debtID, err := s.debtOfInstallment(ctx, installmentID, actor)
	if err != nil {
		return nil, err
	}

	result := &dto.PaymentResult{}
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		debt, err := s.lockDebt(ctx, tx, debtID)
		if err != nil {
			return err
		}
		if debt.Status == models.DebtPaid {
			return appErrors.ErrDebtSettled
		}
		items, err := s.installments.ListByDebt(ctx, tx, debtID)
		if err != nil {
			return internalError(err, "failed to load installments")
		}
		idx := indexOfInstallment(items, installmentID)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		item := &items[idx]
		if item.AmountPaid.GreaterThanOrEqual(item.Amount) {
			return appErrors.Clone(appErrors.ErrConflict, "installment is already paid")
		}

		item.AmountPaid = item.AmountPaid.Add(req.Amount)
		method := req.Method
		item.PaymentMethod = &method
		if item.PaymentDate == nil {
			item.PaymentDate = &paidOn
		}

		if req.CarryOver {
			if next := billing.CarryOver(item, items); next != nil {
				billing.ApplyInstallment(next, today)
				if err := s.installments.Update(ctx, tx, next); err != nil {
					return internalError(err, "failed to carry over balance")
				}
				items[indexOfInstallment(items, next.ID)] = *next
				result.CarriedTo = next
			}
		}

		billing.ApplyInstallment(item, today)
		if err := s.installments.Update(ctx, tx, item); err != nil {
			return internalError(err, "failed to update installment")
		}

		receipt := &models.Receipt{
			InstallmentID: item.ID,
			IssuedAt:      s.now().UTC(),
			Amount:        req.Amount,
			Method:        req.Method,
		}
		if actor.UserID != "" {
			issuer := actor.UserID
			receipt.IssuedBy = &issuer
		}
		if err := s.receipts.Create(ctx, tx, receipt); err != nil {
			return internalError(err, "failed to issue receipt")
		}

		if err := s.saveBalance(ctx, tx, debt, items); err != nil {
			return err
		}
		description := fmt.Sprintf("payment of %s by %s recorded, receipt %s", req.Amount.StringFixed(0), req.Method, receipt.Code())
		if result.CarriedTo != nil {
			description += fmt.Sprintf(", installment due %s adjusted to %s", result.CarriedTo.DueDate.Format(dto.DateLayout), result.CarriedTo.Amount.StringFixed(0))
		}
		if err := s.logChange(ctx, tx, debtID, actor.UserID, description); err != nil {
			return err
		}

		result.Installment = *item
		result.Receipt = *receipt
		result.Debt = *debt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(req.Method, req.Amount)
	s.invalidateReports(ctx)
	s.logger.Info("payment recorded",
		zap.String("installment_id", installmentID),
		zap.String("amount", req.Amount.String()),
		zap.Int64("receipt", result.Receipt.Number),
		zap.String("debt_status", string(result.Debt.Status)))
	return result, nil
}

// GenerateInstallments fills an empty debt with a schedule. The optional down
// payment becomes a paid installment due on the start date.
func (s *LedgerService) GenerateInstallments(ctx context.Context, debtID string, req dto.GenerateInstallmentsRequest, actor Capabilities) (*models.DebtDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	if req.DownPayment.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "down payment cannot be negative")
	}
	frequency := billing.Frequency(req.Frequency)

	owner, err := s.authorize(ctx, debtID, actor)
	if err != nil {
		return nil, err
	}
	start, end, err := s.scheduleWindow(req, owner)
	if err != nil {
		return nil, err
	}

	var debt *models.Debt
	var created []models.Installment
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		var err error
		debt, err = s.lockDebt(ctx, tx, debtID)
		if err != nil {
			return err
		}
		if debt.Status == models.DebtPaid {
			return appErrors.ErrDebtSettled
		}
		existing, err := s.installments.ListByDebt(ctx, tx, debtID)
		if err != nil {
			return internalError(err, "failed to load installments")
		}
		if len(existing) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "debt already has installments")
		}

		plan := s.scheduler.PlanWithDownPayment(start, end, frequency, debt.Total, req.DownPayment)
		fullyPaidUpfront := plan.DownPayment != nil && plan.DownPayment.Amount.GreaterThanOrEqual(debt.Total)
		if len(plan.Installments) == 0 && !fullyPaidUpfront {
			return appErrors.ErrEmptySchedule
		}
		if plan.HasZeroInstallment() {
			return appErrors.Clone(appErrors.ErrEmptySchedule,
				fmt.Sprintf("total is too small to spread over %d installments", len(plan.Installments)))
		}

		today := s.today()
		created = make([]models.Installment, 0, len(plan.Installments)+1)
		var downPayment *models.Installment
		if plan.DownPayment != nil {
			method := models.PaymentCash
			if req.DownPaymentMethod != nil {
				method = *req.DownPaymentMethod
			}
			paidOn := today
			created = append(created, models.Installment{
				DebtID:        debtID,
				Amount:        plan.DownPayment.Amount,
				AmountPaid:    plan.DownPayment.Amount,
				DueDate:       plan.DownPayment.DueDate,
				PaymentDate:   &paidOn,
				PaymentMethod: &method,
			})
		}
		for _, scheduled := range plan.Installments {
			created = append(created, models.Installment{DebtID: debtID, Amount: scheduled.Amount, DueDate: scheduled.DueDate})
		}
		for i := range created {
			billing.ApplyInstallment(&created[i], today)
		}
		if err := s.installments.BulkCreate(ctx, tx, created); err != nil {
			return internalError(err, "failed to create installments")
		}
		if plan.DownPayment != nil {
			downPayment = &created[0]
			receipt := &models.Receipt{
				InstallmentID: downPayment.ID,
				IssuedAt:      s.now().UTC(),
				Amount:        downPayment.AmountPaid,
				Method:        *downPayment.PaymentMethod,
			}
			if actor.UserID != "" {
				issuer := actor.UserID
				receipt.IssuedBy = &issuer
			}
			if err := s.receipts.Create(ctx, tx, receipt); err != nil {
				return internalError(err, "failed to issue receipt")
			}
		}

		if err := s.saveBalance(ctx, tx, debt, created); err != nil {
			return err
		}
		return s.logChange(ctx, tx, debtID, actor.UserID, fmt.Sprintf("%d %s installments generated from %s to %s",
			len(plan.Installments), frequency, start.Format(dto.DateLayout), end.Format(dto.DateLayout)))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordGenerated(len(created))
	s.invalidateReports(ctx)
	return &models.DebtDetail{
		Debt:           *debt,
		StudentName:    owner.StudentName,
		MunicipalityID: owner.MunicipalityID,
		DepartmentID:   owner.DepartmentID,
		Installments:   created,
	}, nil
}

// scheduleWindow resolves the schedule range. Start falls back to the
// enrollment date, then today; end to the completion date, then start plus a year.
func (s *LedgerService) scheduleWindow(req dto.GenerateInstallmentsRequest, owner *models.DebtOwner) (time.Time, time.Time, error) {
	startPtr, err := dto.ParseOptionalDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(err, "invalid start date")
	}
	endPtr, err := dto.ParseOptionalDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(err, "invalid end date")
	}

	var start time.Time
	switch {
	case startPtr != nil:
		start = *startPtr
	case !owner.EnrollmentDate.IsZero():
		start = billing.Date(owner.EnrollmentDate)
	default:
		start = s.today()
	}

	var end time.Time
	switch {
	case endPtr != nil:
		end = *endPtr
	case owner.CompletionDate != nil:
		end = billing.Date(*owner.CompletionDate)
	default:
		end = start.AddDate(0, 0, 365)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	return start, end, nil
}

// ListModifications returns the change history of a debt.
func (s *LedgerService) ListModifications(ctx context.Context, debtID string, actor Capabilities) ([]models.DebtModification, error) {
	if _, err := s.authorize(ctx, debtID, actor); err != nil {
		return nil, err
	}
	mods, err := s.debts.ListModifications(ctx, debtID)
	if err != nil {
		return nil, internalError(err, "failed to list debt modifications")
	}
	return mods, nil
}

// Receipt returns the latest receipt issued for an installment.
func (s *LedgerService) Receipt(ctx context.Context, installmentID string, actor Capabilities) (*models.ReceiptDetail, error) {
	receipt, err := s.receipts.FindLatestByInstallment(ctx, installmentID)
	if err != nil {
		return nil, lookupError(err, "installment has no receipt", "failed to load receipt")
	}
	if !actor.Scope.Allows(receipt.MunicipalityID, receipt.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "receipt is outside your scope")
	}
	return receipt, nil
}

// authorize loads the owner of a debt and checks it is within the actor's scope.
func (s *LedgerService) authorize(ctx context.Context, debtID string, actor Capabilities) (*models.DebtOwner, error) {
	owner, err := s.debts.FindOwner(ctx, debtID)
	if err != nil {
		return nil, lookupError(err, "debt not found", "failed to load debt owner")
	}
	if !actor.Scope.Allows(owner.MunicipalityID, owner.DepartmentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "debt is outside your scope")
	}
	return owner, nil
}

// debtOfInstallment resolves the debt an installment belongs to without a
// lock; the caller re-reads the installment once the debt is locked.
func (s *LedgerService) debtOfInstallment(ctx context.Context, installmentID string, actor Capabilities) (string, error) {
	item, err := s.installments.FindByID(ctx, nil, installmentID)
	if err != nil {
		return "", lookupError(err, "installment not found", "failed to load installment")
	}
	if _, err := s.authorize(ctx, item.DebtID, actor); err != nil {
		return "", err
	}
	return item.DebtID, nil
}

func (s *LedgerService) lockDebt(ctx context.Context, tx *sqlx.Tx, id string) (*models.Debt, error) {
	debt, err := s.debts.LockByID(ctx, tx, id)
	if err != nil {
		return nil, lookupError(err, "debt not found", "failed to lock debt")
	}
	return debt, nil
}

func (s *LedgerService) saveBalance(ctx context.Context, tx *sqlx.Tx, debt *models.Debt, items []models.Installment) error {
	billing.ApplyDebt(debt, items)
	if err := s.debts.UpdateBalance(ctx, tx, debt); err != nil {
		return internalError(err, "failed to update debt balance")
	}
	return nil
}

func (s *LedgerService) logChange(ctx context.Context, exec sqlx.ExtContext, debtID, actorID, description string) error {
	mod := &models.DebtModification{DebtID: debtID, Description: description}
	if actorID != "" {
		mod.UserID = &actorID
	}
	if err := s.debts.CreateModification(ctx, exec, mod); err != nil {
		return internalError(err, "failed to record debt modification")
	}
	return nil
}

func (s *LedgerService) installmentFromRequest(req dto.InstallmentRequest) (*models.Installment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid installment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	if req.AmountPaid.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount paid cannot be negative")
	}
	due, err := dto.ParseDate(req.DueDate)
	if err != nil {
		return nil, validationError(err, "invalid due date")
	}
	paymentDate, err := dto.ParseOptionalDate(req.PaymentDate)
	if err != nil {
		return nil, validationError(err, "invalid payment date")
	}
	if paymentDate != nil && paymentDate.After(s.today()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment date cannot be in the future")
	}
	if req.AmountPaid.IsPositive() && req.PaymentMethod == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment method is required when an amount was paid")
	}
	return &models.Installment{
		Amount:        req.Amount,
		AmountPaid:    req.AmountPaid,
		DueDate:       due,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   paymentDate,
	}, nil
}

func (s *LedgerService) invalidateReports(ctx context.Context) {
	s.cache.Invalidate(ctx, "report:*")
}

func indexOfInstallment(items []models.Installment, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
