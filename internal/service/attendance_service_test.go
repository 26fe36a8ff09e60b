package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
)

type attendanceRepoStub struct {
	attendance map[string]bool
	grades     map[string]decimal.Decimal
	absences   map[string]bool
}

func newAttendanceRepoStub() *attendanceRepoStub {
	return &attendanceRepoStub{attendance: map[string]bool{}, grades: map[string]decimal.Decimal{}, absences: map[string]bool{}}
}

func (s *attendanceRepoStub) Roster(ctx context.Context, classID, groupID string) ([]models.AttendanceRow, error) {
	rows := make([]models.AttendanceRow, 0, len(s.attendance))
	for studentID, attended := range s.attendance {
		value := attended
		row := models.AttendanceRow{StudentID: studentID, Attended: &value}
		if grade, ok := s.grades[studentID]; ok {
			row.Grade = &grade
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *attendanceRepoStub) UpsertAttendance(ctx context.Context, exec sqlx.ExtContext, record *models.Attendance) error {
	s.attendance[record.StudentID] = record.Attended
	return nil
}

func (s *attendanceRepoStub) UpsertGrade(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error {
	s.grades[grade.StudentID] = grade.Value
	return nil
}

func (s *attendanceRepoStub) AbsenceExists(ctx context.Context, classID, studentID string) (bool, error) {
	return s.absences[classID+"/"+studentID], nil
}

func (s *attendanceRepoStub) CreateAbsence(ctx context.Context, absence *models.Absence) error {
	absence.ID = "abs-1"
	s.absences[absence.ClassID+"/"+absence.StudentID] = true
	return nil
}

type groupMembersStub map[string][]models.Student

func (s groupMembersStub) ListByGroup(ctx context.Context, exec sqlx.ExtContext, groupID string) ([]models.Student, error) {
	return s[groupID], nil
}

type attendanceFixture struct {
	svc     *AttendanceService
	repo    *attendanceRepoStub
	classes *classRepoStub
}

func newAttendanceFixture(t *testing.T, tx txProvider, now time.Time) attendanceFixture {
	t.Helper()
	classes := newClassRepoStub()
	classes.classes["class-1"] = &models.ClassDetail{
		ClassSession: models.ClassSession{
			ID:          "class-1",
			Date:        day(2024, time.March, 18),
			TimeSlot:    "08:00-10:00",
			GroupID:     "grp-1",
			ProfessorID: strPtr("user-PROFESSOR"),
			Status:      models.ClassScheduled,
		},
		MunicipalityID: "mun-1",
		DepartmentID:   "dep-1",
	}
	members := groupMembersStub{"grp-1": {{ID: "stu-1"}, {ID: "stu-2"}}}
	repo := newAttendanceRepoStub()
	svc := NewAttendanceService(tx, repo, classes, members, nil, nil, AttendanceConfig{Window: time.Hour, Location: time.UTC})
	svc.now = func() time.Time { return now }
	return attendanceFixture{svc: svc, repo: repo, classes: classes}
}

func gradePtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func attendanceRequest(markTaught bool) dto.AttendanceRequest {
	return dto.AttendanceRequest{
		Entries: []dto.AttendanceEntry{
			{StudentID: "stu-1", Attended: true, Grade: gradePtr(85)},
			{StudentID: "stu-2", Attended: false},
		},
		MarkTaught: markTaught,
	}
}

func TestAttendanceServiceProfessorInsideWindow(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newAttendanceFixture(t, tx, time.Date(2024, time.March, 18, 7, 15, 0, 0, time.UTC))

	rows, err := f.svc.Register(context.Background(), "class-1", attendanceRequest(true), capsFor(models.RoleProfessor, "", ""))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.True(t, f.repo.attendance["stu-1"])
	assert.True(t, f.repo.grades["stu-1"].Equal(decimal.NewFromInt(85)))
	assert.Equal(t, models.ClassTaught, f.classes.classes["class-1"].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceServiceProfessorOutsideWindow(t *testing.T) {
	professor := capsFor(models.RoleProfessor, "", "")

	early := newAttendanceFixture(t, noopTxProvider{}, time.Date(2024, time.March, 18, 6, 59, 0, 0, time.UTC))
	_, err := early.svc.Register(context.Background(), "class-1", attendanceRequest(false), professor)
	assertAppError(t, err, "OUTSIDE_WINDOW")

	late := newAttendanceFixture(t, noopTxProvider{}, time.Date(2024, time.March, 18, 11, 1, 0, 0, time.UTC))
	_, err = late.svc.Register(context.Background(), "class-1", attendanceRequest(false), professor)
	assertAppError(t, err, "OUTSIDE_WINDOW")

	taught := newAttendanceFixture(t, noopTxProvider{}, time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC))
	taught.classes.classes["class-1"].Status = models.ClassTaught
	_, err = taught.svc.Register(context.Background(), "class-1", attendanceRequest(false), professor)
	assertAppError(t, err, "OUTSIDE_WINDOW")
}

func TestAttendanceServiceSecretaryAnyTime(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newAttendanceFixture(t, tx, time.Date(2024, time.April, 2, 18, 0, 0, 0, time.UTC))
	f.classes.classes["class-1"].Status = models.ClassTaught

	_, err := f.svc.Register(context.Background(), "class-1", attendanceRequest(false), capsFor(models.RoleAcademicSecretary, "mun-1", "dep-1"))
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), "class-1", attendanceRequest(false), capsFor(models.RoleAssistant, "mun-1", "dep-1"))
	assertAppError(t, err, "FORBIDDEN")
}

func TestAttendanceServiceRejectsInvalidEntries(t *testing.T) {
	f := newAttendanceFixture(t, noopTxProvider{}, time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC))

	req := attendanceRequest(false)
	req.Entries[0].Grade = gradePtr(101)
	_, err := f.svc.Register(context.Background(), "class-1", req, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	f = newAttendanceFixture(t, tx, time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC))
	req = attendanceRequest(false)
	req.Entries = append(req.Entries, dto.AttendanceEntry{StudentID: "stu-9", Attended: true})
	_, err = f.svc.Register(context.Background(), "class-1", req, superuser())
	assertAppError(t, err, "VALIDATION_ERROR")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceServiceRecordAbsenceOnce(t *testing.T) {
	f := newAttendanceFixture(t, noopTxProvider{}, time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC))
	actor := capsFor(models.RoleAssistant, "mun-1", "dep-1")
	req := dto.AbsenceRequest{ClassID: "class-1", StudentID: "stu-1", Reason: strPtr(" cita médica "), Justified: true}

	absence, err := f.svc.RecordAbsence(context.Background(), req, actor)
	require.NoError(t, err)
	assert.Equal(t, "cita médica", *absence.Reason)
	assert.Equal(t, actor.UserID, *absence.RecordedBy)

	_, err = f.svc.RecordAbsence(context.Background(), req, actor)
	assertAppError(t, err, "CONFLICT")
}
