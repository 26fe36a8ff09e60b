package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
)

type classServiceMock struct {
	classService
	lastQuery dto.ClassQuery
}

func (m *classServiceMock) List(ctx context.Context, query dto.ClassQuery, actor service.Capabilities) ([]models.ClassDetail, *models.Pagination, error) {
	m.lastQuery = query
	return []models.ClassDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

type attendanceServiceMock struct {
	attendanceService
	registerErr error
	lastClassID string
	lastReq     dto.AttendanceRequest
	lastActor   service.Capabilities
}

func (m *attendanceServiceMock) Register(ctx context.Context, classID string, req dto.AttendanceRequest, actor service.Capabilities) ([]models.AttendanceRow, error) {
	m.lastClassID = classID
	m.lastReq = req
	m.lastActor = actor
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return []models.AttendanceRow{}, nil
}

type classDocumentsStub struct {
	err         error
	lastClassID string
}

func (s *classDocumentsStub) MockExamCertificates(ctx context.Context, classID string, actor service.Capabilities) (*service.File, error) {
	s.lastClassID = classID
	if s.err != nil {
		return nil, s.err
	}
	return &service.File{Name: "certificados_simulacro_20240406.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func TestClassHandlerListBindsQuery(t *testing.T) {
	mockSvc := &classServiceMock{}
	handler := NewClassHandler(mockSvc, &attendanceServiceMock{}, &classDocumentsStub{})

	c, w := testContext(http.MethodGet, "/classes?group_id=grp-1&date_from=2024-03-01&status=taught", "", professorClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ClassQuery{GroupID: "grp-1", DateFrom: "2024-03-01", Status: "taught"}, mockSvc.lastQuery)
}

func TestClassHandlerRegisterAttendance(t *testing.T) {
	mockSvc := &attendanceServiceMock{}
	handler := NewClassHandler(&classServiceMock{}, mockSvc, &classDocumentsStub{})

	body := `{"entries":[{"student_id":"stu-1","attended":true,"grade":"87.5"}],"mark_taught":true}`
	c, w := testContext(http.MethodPost, "/classes/class-1/attendance", body, professorClaims())
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	handler.RegisterAttendance(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", mockSvc.lastClassID)
	assert.Equal(t, "prof-1", mockSvc.lastActor.UserID)
	require.Len(t, mockSvc.lastReq.Entries, 1)
	assert.Equal(t, "87.5", mockSvc.lastReq.Entries[0].Grade.String())
	assert.True(t, mockSvc.lastReq.MarkTaught)
}

func TestClassHandlerRegisterAttendanceOutsideWindow(t *testing.T) {
	mockSvc := &attendanceServiceMock{registerErr: appErrors.Clone(appErrors.ErrOutsideWindow, "too late")}
	handler := NewClassHandler(&classServiceMock{}, mockSvc, &classDocumentsStub{})

	c, w := testContext(http.MethodPost, "/classes/class-1/attendance", `{"entries":[{"student_id":"stu-1","attended":true}]}`, professorClaims())
	handler.RegisterAttendance(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "OUTSIDE_WINDOW", decodeEnvelope(t, w).Error.Code)
}

func TestClassHandlerCertificates(t *testing.T) {
	docs := &classDocumentsStub{}
	handler := NewClassHandler(&classServiceMock{}, &attendanceServiceMock{}, docs)

	c, w := testContext(http.MethodGet, "/classes/class-1/certificates", "", professorClaims())
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	handler.Certificates(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", docs.lastClassID)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificados_simulacro_20240406.pdf")
}

func TestClassHandlerCertificatesEmptyGroup(t *testing.T) {
	docs := &classDocumentsStub{err: appErrors.Clone(appErrors.ErrNotFound, "class group has no active students")}
	handler := NewClassHandler(&classServiceMock{}, &attendanceServiceMock{}, docs)

	c, w := testContext(http.MethodGet, "/classes/class-1/certificates", "", professorClaims())
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	handler.Certificates(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
