package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
)

type studentRepoStub struct {
	students    map[string]*models.StudentDetail
	identities  map[string]string
	lastFilter  models.StudentFilter
	withdrawnTo string
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: map[string]*models.StudentDetail{}, identities: map[string]string{}}
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	s.lastFilter = filter
	out := make([]models.StudentDetail, 0, len(s.students))
	for _, student := range s.students {
		out = append(out, *student)
	}
	return out, len(out), nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (s *studentRepoStub) ExistsByIdentification(ctx context.Context, identification string, excludeID string) (bool, error) {
	id, ok := s.identities[identification]
	return ok && id != excludeID, nil
}

func (s *studentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.ID = "stu-new"
	student.Status = models.StudentActive
	s.students[student.ID] = &models.StudentDetail{Student: *student, DepartmentID: "dep-1"}
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	s.students[student.ID].Student = *student
	return nil
}

func (s *studentRepoStub) Withdraw(ctx context.Context, id string, date time.Time, groupID string) error {
	s.withdrawnTo = groupID
	return nil
}

type studentGroupStub struct {
	groups map[string]*models.GroupDetail
}

func (s studentGroupStub) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	group, ok := s.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return group, nil
}

func (s studentGroupStub) FindByCode(ctx context.Context, municipalityID, code string) (*models.GroupDetail, error) {
	for _, group := range s.groups {
		if group.Code == code && group.MunicipalityID == municipalityID {
			return group, nil
		}
	}
	return nil, sql.ErrNoRows
}

type debtOpenerStub struct {
	opened map[string]decimal.Decimal
}

func (s *debtOpenerStub) OpenDebt(ctx context.Context, exec sqlx.ExtContext, studentID string, total decimal.Decimal, actorID string) (*models.Debt, error) {
	s.opened[studentID] = total
	return &models.Debt{ID: "debt-" + studentID, StudentID: studentID, Total: total, Remaining: total}, nil
}

func newStudentFixture(t *testing.T, tx txProvider) (*StudentService, *studentRepoStub, *debtOpenerStub) {
	t.Helper()
	repo := newStudentRepoStub()
	groups := studentGroupStub{groups: map[string]*models.GroupDetail{
		"grp-1":       {Group: models.Group{ID: "grp-1", Code: "CUNBOGSED01"}, MunicipalityID: "mun-1", DepartmentID: "dep-1"},
		"grp-other":   {Group: models.Group{ID: "grp-other", Code: "CUNZIPSED01"}, MunicipalityID: "mun-2", DepartmentID: "dep-1"},
		"grp-retired": {Group: models.Group{ID: "grp-retired", Code: models.WithdrawnGroupCode}, MunicipalityID: "mun-1", DepartmentID: "dep-1"},
	}}
	debts := &debtOpenerStub{opened: map[string]decimal.Decimal{}}
	svc := NewStudentService(repo, groups, siteStub{}, debts, tx, nil, nil, time.UTC)
	svc.now = fixedClock(2024, time.March, 20)
	return svc, repo, debts
}

func studentRequest() dto.StudentRequest {
	return dto.StudentRequest{
		FirstNames:         " Laura ",
		FirstSurname:       "Gómez",
		IdentificationType: "TI",
		Identification:     strPtr("1020304050"),
		Program:            "preicfes",
		EnrollmentDate:     "2024-02-01",
		MunicipalityID:     "mun-1",
		GroupID:            strPtr("grp-1"),
	}
}

func TestStudentServiceCreateOpensDebt(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc, repo, debts := newStudentFixture(t, tx)

	total := dec(1200000)
	req := studentRequest()
	req.DebtTotal = &total
	student, err := svc.Create(context.Background(), req, capsFor(models.RoleAcademicSecretary, "mun-1", "dep-1"))
	require.NoError(t, err)

	assert.Equal(t, "Laura", student.FirstNames)
	assert.Equal(t, "grp-1", *student.GroupID)
	assert.True(t, debts.opened["stu-new"].Equal(total))
	assert.Contains(t, repo.students, "stu-new")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentServiceCreateWithoutDebtTotal(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc, _, debts := newStudentFixture(t, tx)

	_, err := svc.Create(context.Background(), studentRequest(), superuser())
	require.NoError(t, err)
	assert.Empty(t, debts.opened)
}

func TestStudentServiceCreateValidations(t *testing.T) {
	svc, repo, _ := newStudentFixture(t, noopTxProvider{})

	req := studentRequest()
	req.GroupID = strPtr("grp-other")
	_, err := svc.Create(context.Background(), req, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")

	repo.identities["1020304050"] = "stu-9"
	_, err = svc.Create(context.Background(), studentRequest(), superuser())
	assertAppError(t, err, "CONFLICT")

	req = studentRequest()
	req.Identification = nil
	req.CompletionDate = strPtr("2024-01-01")
	_, err = svc.Create(context.Background(), req, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")

	req = studentRequest()
	req.Identification = nil
	_, err = svc.Create(context.Background(), req, capsFor(models.RoleAssistant, "mun-7", "dep-1"))
	assertAppError(t, err, "FORBIDDEN")

	negative := dec(-1)
	req = studentRequest()
	req.Identification = nil
	req.DebtTotal = &negative
	_, err = svc.Create(context.Background(), req, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")
}

func TestStudentServiceUpdateKeepsOwnIdentification(t *testing.T) {
	svc, repo, _ := newStudentFixture(t, noopTxProvider{})
	repo.students["stu-1"] = &models.StudentDetail{
		Student:      models.Student{ID: "stu-1", MunicipalityID: "mun-1", Status: models.StudentActive},
		DepartmentID: "dep-1",
	}
	repo.identities["1020304050"] = "stu-1"

	req := studentRequest()
	req.Phone = strPtr(" 3001234567 ")
	updated, err := svc.Update(context.Background(), "stu-1", req, superuser())
	require.NoError(t, err)
	assert.Equal(t, "3001234567", *updated.Phone)
	assert.Equal(t, models.StudentActive, updated.Status)
}

func TestStudentServiceWithdraw(t *testing.T) {
	svc, repo, _ := newStudentFixture(t, noopTxProvider{})
	repo.students["stu-1"] = &models.StudentDetail{
		Student:      models.Student{ID: "stu-1", MunicipalityID: "mun-1", Status: models.StudentActive},
		DepartmentID: "dep-1",
	}

	student, err := svc.Withdraw(context.Background(), "stu-1", superuser())
	require.NoError(t, err)
	assert.Equal(t, models.StudentWithdrawn, student.Status)
	assert.Equal(t, day(2024, time.March, 20), *student.WithdrawalDate)
	assert.Equal(t, models.WithdrawnGroupCode, *student.GroupCode)
	assert.Equal(t, "grp-retired", repo.withdrawnTo)

	repo.students["stu-1"].Status = models.StudentWithdrawn
	_, err = svc.Withdraw(context.Background(), "stu-1", superuser())
	assertAppError(t, err, "CONFLICT")
}

func TestStudentServiceWithdrawWithoutRetiredGroup(t *testing.T) {
	svc, repo, _ := newStudentFixture(t, noopTxProvider{})
	repo.students["stu-2"] = &models.StudentDetail{
		Student:      models.Student{ID: "stu-2", MunicipalityID: "mun-2", Status: models.StudentActive},
		DepartmentID: "dep-1",
	}

	_, err := svc.Withdraw(context.Background(), "stu-2", superuser())
	assertAppError(t, err, "NOT_FOUND")
	assert.Empty(t, repo.withdrawnTo)
}

func TestStudentServiceListAppliesScope(t *testing.T) {
	svc, repo, _ := newStudentFixture(t, noopTxProvider{})
	actor := capsFor(models.RoleCollections, "mun-1", "dep-1")

	_, pagination, err := svc.Withdrawn(context.Background(), dto.StudentQuery{Page: 2, PageSize: 10}, actor)
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.StudentWithdrawn, *repo.lastFilter.Status)
	assert.Equal(t, actor.Scope, repo.lastFilter.Scope)
	assert.Equal(t, 2, pagination.Page)
}
