package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
	"github.com/noah-isme/preicfes-api/pkg/export"
)

type receiptSourceStub struct {
	receipt *models.ReceiptDetail
	debt    *models.DebtDetail
}

func (s receiptSourceStub) Receipt(ctx context.Context, installmentID string, actor Capabilities) (*models.ReceiptDetail, error) {
	return s.receipt, nil
}

func (s receiptSourceStub) GetDebtByStudent(ctx context.Context, studentID string, actor Capabilities) (*models.DebtDetail, error) {
	return s.debt, nil
}

type studentSourceStub struct {
	student   *models.StudentDetail
	withdrawn []models.StudentDetail
	group     []models.StudentDetail
	pages     []int
	listed    []dto.StudentQuery
}

func (s *studentSourceStub) Get(ctx context.Context, id string, actor Capabilities) (*models.StudentDetail, error) {
	return s.student, nil
}

func (s *studentSourceStub) List(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error) {
	s.listed = append(s.listed, query)
	return pageOf(s.group, query)
}

func (s *studentSourceStub) Withdrawn(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error) {
	s.pages = append(s.pages, query.Page)
	return pageOf(s.withdrawn, query)
}

func pageOf(items []models.StudentDetail, query dto.StudentQuery) ([]models.StudentDetail, *models.Pagination, error) {
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(items)}
	start := (query.Page - 1) * query.PageSize
	if start >= len(items) {
		return nil, pagination, nil
	}
	end := start + query.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pagination, nil
}

type classSourceStub struct {
	class *models.ClassDetail
	err   error
}

func (s classSourceStub) Get(ctx context.Context, id string, actor Capabilities) (*models.ClassDetail, error) {
	return s.class, s.err
}

type collectionsSourceStub struct {
	rows []models.CollectionRow
}

func (s collectionsSourceStub) Overdue(ctx context.Context, filter models.CollectionFilter, actor Capabilities) ([]models.CollectionRow, error) {
	return s.rows, nil
}

func (s collectionsSourceStub) DailyReport(ctx context.Context, query dto.DailyReportQuery, actor Capabilities) (*models.DailyReport, error) {
	return &models.DailyReport{
		Date:              day(2024, time.March, 20),
		CollectedOnDate:   dec(300000),
		ByMethod:          []models.MethodTotal{{Method: models.PaymentCash, Amount: dec(300000)}},
		MonthTarget:       dec(1000000),
		CollectedInMonth:  dec(500000),
		CompliancePercent: decimal.NewFromInt(50),
	}, nil
}

type pdfRecorder struct {
	docs []export.Document
}

func (p *pdfRecorder) Render(data export.Dataset, title string) ([]byte, error) {
	return []byte("%PDF-table"), nil
}

func (p *pdfRecorder) RenderDocument(doc export.Document) ([]byte, error) {
	p.docs = append(p.docs, doc)
	return []byte("%PDF-doc"), nil
}

func (p *pdfRecorder) RenderDocuments(docs []export.Document) ([]byte, error) {
	p.docs = append(p.docs, docs...)
	return []byte("%PDF-docs"), nil
}

func activeStudent() *models.StudentDetail {
	return &models.StudentDetail{
		Student: models.Student{
			ID:                 "stu-1",
			FirstNames:         "Ana María",
			FirstSurname:       "Peña",
			IdentificationType: models.IdentificationTI,
			Identification:     strPtr("1002003004"),
			Program:            models.ProgramPreICFES,
			Status:             models.StudentActive,
			EnrollmentDate:     day(2024, time.February, 1),
		},
		MunicipalityName: "Zipaquirá",
	}
}

func TestFormatCOP(t *testing.T) {
	assert.Equal(t, "$ 0", formatCOP(decimal.Zero))
	assert.Equal(t, "$ 999", formatCOP(dec(999)))
	assert.Equal(t, "$ 1.250.000", formatCOP(dec(1250000)))
	assert.Equal(t, "-$ 45.000", formatCOP(dec(-45000)))
}

func TestExportServiceReceiptHasTwoCopies(t *testing.T) {
	pdf := &pdfRecorder{}
	ledger := receiptSourceStub{receipt: &models.ReceiptDetail{
		Receipt:       models.Receipt{Number: 42, Amount: dec(200000), Method: models.PaymentTransfer, IssuedAt: day(2024, time.March, 20)},
		StudentName:   "Ana María Peña",
		DebtRemaining: dec(300000),
	}}
	svc := NewExportService(ledger, &studentSourceStub{}, nil, collectionsSourceStub{}, nil, pdf, nil, ExportConfig{})

	file, err := svc.ReceiptPDF(context.Background(), "inst-1", superuser())
	require.NoError(t, err)
	assert.Equal(t, "recibo_000042.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.ContentType)
	require.Len(t, pdf.docs, 1)
	assert.Equal(t, 2, pdf.docs[0].Copies)
	assert.Contains(t, pdf.docs[0].Fields, export.Field{Label: "Medio de pago", Value: "Transferencia"})
}

func TestExportServiceClearanceRequiresSettledDebt(t *testing.T) {
	pdf := &pdfRecorder{}
	ledger := receiptSourceStub{debt: &models.DebtDetail{Debt: models.Debt{Total: dec(500000), Remaining: dec(100000), Status: models.DebtIssued}}}
	svc := NewExportService(ledger, &studentSourceStub{student: activeStudent()}, nil, collectionsSourceStub{}, nil, pdf, nil, ExportConfig{})

	_, err := svc.ClearancePDF(context.Background(), "stu-1", superuser())
	assertAppError(t, err, "CONFLICT")

	ledger.debt = &models.DebtDetail{
		Debt:         models.Debt{Total: dec(500000), Remaining: decimal.Zero, Status: models.DebtPaid},
		Installments: []models.Installment{{Amount: dec(500000), AmountPaid: dec(500000), DueDate: day(2024, time.February, 1)}},
	}
	svc.ledger = ledger
	file, err := svc.ClearancePDF(context.Background(), "stu-1", superuser())
	require.NoError(t, err)
	assert.Equal(t, "paz_y_salvo_1002003004.pdf", file.Name)
	require.Len(t, pdf.docs, 1)
	assert.Contains(t, pdf.docs[0].Paragraphs[0], "Ana María Peña")
	assert.Contains(t, pdf.docs[0].Paragraphs[0], "$ 500.000")
	require.NotNil(t, pdf.docs[0].Table)
	assert.Len(t, pdf.docs[0].Table.Rows, 1)
}

func TestExportServiceEnrollmentCertificateRejectsWithdrawn(t *testing.T) {
	student := activeStudent()
	student.Status = models.StudentWithdrawn
	svc := NewExportService(receiptSourceStub{}, &studentSourceStub{student: student}, nil, collectionsSourceStub{}, nil, &pdfRecorder{}, nil, ExportConfig{})

	_, err := svc.EnrollmentCertificatePDF(context.Background(), "stu-1", superuser())
	assertAppError(t, err, "CONFLICT")
}

func TestExportServiceDailyReportPDF(t *testing.T) {
	pdf := &pdfRecorder{}
	svc := NewExportService(receiptSourceStub{}, &studentSourceStub{}, nil, collectionsSourceStub{}, nil, pdf, nil, ExportConfig{})

	file, err := svc.DailyReportPDF(context.Background(), dto.DailyReportQuery{Date: "2024-03-20"}, superuser())
	require.NoError(t, err)
	assert.Equal(t, "informe_diario_20240320.pdf", file.Name)
	assert.Contains(t, pdf.docs[0].Fields, export.Field{Label: "Cumplimiento", Value: "50.00 %"})
	assert.Len(t, pdf.docs[0].Table.Rows, 1)
}

func TestExportServiceOverdueCSV(t *testing.T) {
	rows := []models.CollectionRow{{
		StudentName:   "Luis Pérez",
		Municipality:  "Chía",
		DueDate:       day(2024, time.January, 5),
		Days:          75,
		Amount:        dec(100000),
		AmountPaid:    dec(20000),
		DebtRemaining: dec(480000),
	}}
	svc := NewExportService(receiptSourceStub{}, &studentSourceStub{}, nil, collectionsSourceStub{rows: rows}, nil, nil, nil, ExportConfig{})
	svc.now = fixedClock(2024, time.March, 20)

	file, err := svc.OverdueCSV(context.Background(), models.CollectionFilter{}, superuser())
	require.NoError(t, err)
	assert.Equal(t, "cartera_vencida_20240320.csv", file.Name)
	body := string(bytes.TrimPrefix(file.Data, []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Luis Pérez,,,Chía,2024-01-05,75,100000,20000,480000", lines[1])
}

func TestExportServiceWithdrawnCSVWalksPages(t *testing.T) {
	withdrawn := make([]models.StudentDetail, 0, 130)
	for i := 0; i < 130; i++ {
		student := activeStudent()
		student.Status = models.StudentWithdrawn
		withdrawn = append(withdrawn, *student)
	}
	students := &studentSourceStub{withdrawn: withdrawn}
	svc := NewExportService(receiptSourceStub{}, students, nil, collectionsSourceStub{}, nil, nil, nil, ExportConfig{})

	file, err := svc.WithdrawnCSV(context.Background(), dto.StudentQuery{}, superuser())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, students.pages)
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	assert.Len(t, lines, 131)
}

func mockExamClass() *models.ClassDetail {
	return &models.ClassDetail{ClassSession: models.ClassSession{ID: "class-1", Date: day(2024, time.April, 6), GroupID: "group-1"}}
}

func TestExportServiceMockExamCertificatesOnePagePerStudent(t *testing.T) {
	second := activeStudent()
	second.ID = "stu-2"
	second.FirstNames = "Luis"
	second.FirstSurname = "Gómez"
	second.Identification = strPtr("1002003005")
	students := &studentSourceStub{group: []models.StudentDetail{*activeStudent(), *second}}
	pdf := &pdfRecorder{}
	svc := NewExportService(receiptSourceStub{}, students, classSourceStub{class: mockExamClass()}, collectionsSourceStub{}, nil, pdf, nil, ExportConfig{})
	svc.now = fixedClock(2024, time.March, 20)

	actor := capsFor(models.RoleDepartmentCoordinator, "mun-1", "dep-1")
	actor.Username = "mlopez"
	file, err := svc.MockExamCertificates(context.Background(), "class-1", actor)
	require.NoError(t, err)

	assert.Equal(t, "certificados_simulacro_20240406.pdf", file.Name)
	assert.Equal(t, contentTypePDF, file.ContentType)
	require.Len(t, students.listed, 1)
	assert.Equal(t, "group-1", students.listed[0].GroupID)
	assert.Equal(t, string(models.StudentActive), students.listed[0].Status)

	require.Len(t, pdf.docs, 2)
	assert.Contains(t, pdf.docs[0].Paragraphs[0], "Ana María Peña, identificado(a) con TI N° 1002003004")
	assert.Contains(t, pdf.docs[0].Paragraphs[0], "el día 6 de abril")
	assert.Contains(t, pdf.docs[1].Paragraphs[0], "Luis Gómez")
	assert.Equal(t, "Para constancia se firma a los 20 días del mes de marzo de 2024.", pdf.docs[1].Paragraphs[1])
	assert.Equal(t, []string{"mlopez", "Coordinación académica"}, pdf.docs[0].Signature)
}

func TestExportServiceMockExamCertificatesEmptyGroup(t *testing.T) {
	svc := NewExportService(receiptSourceStub{}, &studentSourceStub{}, classSourceStub{class: mockExamClass()}, collectionsSourceStub{}, nil, &pdfRecorder{}, nil, ExportConfig{})

	_, err := svc.MockExamCertificates(context.Background(), "class-1", superuser())
	assertAppError(t, err, "NOT_FOUND")
}

func TestExportServiceMockExamCertificatesClassOutOfScope(t *testing.T) {
	classes := classSourceStub{err: appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")}
	students := &studentSourceStub{}
	svc := NewExportService(receiptSourceStub{}, students, classes, collectionsSourceStub{}, nil, &pdfRecorder{}, nil, ExportConfig{})

	_, err := svc.MockExamCertificates(context.Background(), "class-1", superuser())
	assertAppError(t, err, "FORBIDDEN")
	assert.Empty(t, students.listed)
}

func TestSpanishMonth(t *testing.T) {
	assert.Equal(t, "enero", spanishMonth(time.January))
	assert.Equal(t, "diciembre", spanishMonth(time.December))
}
