package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
)

type collectionsServiceMock struct {
	collectionsService
	lastFilter models.CollectionFilter
	lastYear   int
	lastMun    string
	swept      bool
}

func (m *collectionsServiceMock) Overdue(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) ([]models.CollectionRow, error) {
	m.lastFilter = filter
	return []models.CollectionRow{{InstallmentID: "inst-1", Days: 40}, {InstallmentID: "inst-2", Days: 35}}, nil
}

func (m *collectionsServiceMock) IncomeExpenses(ctx context.Context, year int, municipalityID string, actor service.Capabilities) ([]models.MonthlyFlow, error) {
	m.lastYear = year
	m.lastMun = municipalityID
	return []models.MonthlyFlow{}, nil
}

func (m *collectionsServiceMock) SweepOverdue(ctx context.Context, actor service.Capabilities) (int64, error) {
	m.swept = true
	return 3, nil
}

type collectionsDocumentsStub struct {
	lastFilter models.CollectionFilter
}

func (s *collectionsDocumentsStub) OverdueCSV(ctx context.Context, filter models.CollectionFilter, actor service.Capabilities) (*service.File, error) {
	s.lastFilter = filter
	return &service.File{Name: "cartera_vencida_20240320.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("a,b\n")}, nil
}

func (s *collectionsDocumentsStub) DailyReportPDF(ctx context.Context, query dto.DailyReportQuery, actor service.Capabilities) (*service.File, error) {
	return &service.File{Name: "informe.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
}

func TestCollectionsHandlerOverdueMapsQuery(t *testing.T) {
	mockSvc := &collectionsServiceMock{}
	handler := NewCollectionsHandler(mockSvc, &collectionsDocumentsStub{})

	c, w := testContext(http.MethodGet, "/collections/overdue?range=31-60&search=perez&municipality_id=mun-1", "", collectorClaims())
	handler.Overdue(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CollectionFilter{MunicipalityID: "mun-1", Search: "perez", Bucket: "31-60"}, mockSvc.lastFilter)
	assert.EqualValues(t, 2, decodeEnvelope(t, w).Meta["count"])
}

func TestCollectionsHandlerExportOverdue(t *testing.T) {
	docs := &collectionsDocumentsStub{}
	handler := NewCollectionsHandler(&collectionsServiceMock{}, docs)

	c, w := testContext(http.MethodGet, "/collections/overdue/export?range=90%2B", "", collectorClaims())
	handler.ExportOverdue(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "90+", docs.lastFilter.Bucket)
	assert.Equal(t, `attachment; filename="cartera_vencida_20240320.csv"`, w.Header().Get("Content-Disposition"))
}

func TestCollectionsHandlerIncomeExpensesDefaultsYear(t *testing.T) {
	mockSvc := &collectionsServiceMock{}
	handler := NewCollectionsHandler(mockSvc, &collectionsDocumentsStub{})
	handler.now = func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }

	c, w := testContext(http.MethodGet, "/reports/income-expenses?municipality_id=mun-2", "", superuserClaims())
	handler.IncomeExpenses(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, mockSvc.lastYear)
	assert.Equal(t, "mun-2", mockSvc.lastMun)

	c, w = testContext(http.MethodGet, "/reports/income-expenses?year=abc", "", superuserClaims())
	handler.IncomeExpenses(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCollectionsHandlerSweep(t *testing.T) {
	mockSvc := &collectionsServiceMock{}
	handler := NewCollectionsHandler(mockSvc, &collectionsDocumentsStub{})

	c, w := testContext(http.MethodPost, "/collections/maintenance", "", superuserClaims())
	handler.SweepOverdue(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.swept)
	assert.JSONEq(t, `{"pending":0,"marked":3}`, string(decodeEnvelope(t, w).Data))
}
