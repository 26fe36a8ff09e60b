package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/preicfes-api/internal/billing"
	"github.com/noah-isme/preicfes-api/internal/dto"
	"github.com/noah-isme/preicfes-api/internal/models"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
	"github.com/noah-isme/preicfes-api/pkg/export"
)

type receiptSource interface {
	Receipt(ctx context.Context, installmentID string, actor Capabilities) (*models.ReceiptDetail, error)
	GetDebtByStudent(ctx context.Context, studentID string, actor Capabilities) (*models.DebtDetail, error)
}

type studentSource interface {
	Get(ctx context.Context, id string, actor Capabilities) (*models.StudentDetail, error)
	List(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error)
	Withdrawn(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error)
}

type classSource interface {
	Get(ctx context.Context, id string, actor Capabilities) (*models.ClassDetail, error)
}

type studentPager func(ctx context.Context, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, *models.Pagination, error)

type collectionsSource interface {
	Overdue(ctx context.Context, filter models.CollectionFilter, actor Capabilities) ([]models.CollectionRow, error)
	DailyReport(ctx context.Context, query dto.DailyReportQuery, actor Capabilities) (*models.DailyReport, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
	RenderDocuments(docs []export.Document) ([]byte, error)
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	contentTypePDF = "application/pdf"
	contentTypeCSV = "text/csv; charset=utf-8"
	exportPageSize = 100
)

// ExportConfig tunes rendered documents.
type ExportConfig struct {
	Location *time.Location
}

// ExportService renders receipts, certificates and report downloads.
type ExportService struct {
	ledger      receiptSource
	students    studentSource
	classes     classSource
	collections collectionsSource
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(ledger receiptSource, students studentSource, classes classSource, collections collectionsSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("", "")
	}
	return &ExportService{
		ledger:      ledger,
		students:    students,
		classes:     classes,
		collections: collections,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		loc:         cfg.Location,
		now:         time.Now,
	}
}

// ReceiptPDF prints the receipt of an installment twice on one page, one copy
// for the student and one for the office.
func (s *ExportService) ReceiptPDF(ctx context.Context, installmentID string, actor Capabilities) (*File, error) {
	receipt, err := s.ledger.Receipt(ctx, installmentID, actor)
	if err != nil {
		return nil, err
	}
	fields := []export.Field{
		{Label: "Recibo No.", Value: receipt.Code()},
		{Label: "Fecha", Value: receipt.IssuedAt.In(s.loc).Format("2006-01-02 15:04")},
		{Label: "Estudiante", Value: receipt.StudentName},
		{Label: "Documento", Value: deref(receipt.Identification)},
		{Label: "Cuota con vencimiento", Value: receipt.DueDate.Format("2006-01-02")},
		{Label: "Valor de la cuota", Value: formatCOP(receipt.InstallmentAmt)},
		{Label: "Valor recibido", Value: formatCOP(receipt.Amount)},
		{Label: "Medio de pago", Value: methodLabel(receipt.Method)},
		{Label: "Saldo de la deuda", Value: formatCOP(receipt.DebtRemaining)},
	}
	data, err := s.pdf.RenderDocument(export.Document{
		Title:  "Recibo de pago",
		Fields: fields,
		Footer: "Conserve este recibo como soporte de su pago.",
		Copies: 2,
	})
	if err != nil {
		return nil, internalError(err, "failed to render receipt")
	}
	return &File{Name: "recibo_" + receipt.Code() + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// ClearancePDF certifies that a student owes nothing.
func (s *ExportService) ClearancePDF(ctx context.Context, studentID string, actor Capabilities) (*File, error) {
	student, err := s.students.Get(ctx, studentID, actor)
	if err != nil {
		return nil, err
	}
	debt, err := s.ledger.GetDebtByStudent(ctx, studentID, actor)
	if err != nil {
		return nil, err
	}
	if debt.Status != models.DebtPaid || debt.Remaining.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student still has an outstanding balance")
	}

	today := billing.Today(s.now(), s.loc)
	paragraph := fmt.Sprintf(
		"Se certifica que %s, identificado(a) con %s %s, se encuentra a paz y salvo por concepto de matrícula y pensiones del programa %s, por un valor total de %s.",
		student.FullName(), student.IdentificationType, deref(student.Identification), programLabel(student.Program), formatCOP(debt.Total),
	)
	data, err := s.pdf.RenderDocument(export.Document{
		Title:      "Paz y salvo",
		Subtitle:   "Expedido el " + today.Format("2006-01-02"),
		Paragraphs: []string{paragraph},
		Table:      installmentTable(debt.Installments),
	})
	if err != nil {
		return nil, internalError(err, "failed to render clearance")
	}
	return &File{Name: "paz_y_salvo_" + sanitizeFilename(deref(student.Identification)) + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// EnrollmentCertificatePDF certifies the enrollment of an active student.
func (s *ExportService) EnrollmentCertificatePDF(ctx context.Context, studentID string, actor Capabilities) (*File, error) {
	student, err := s.students.Get(ctx, studentID, actor)
	if err != nil {
		return nil, err
	}
	if student.Status != models.StudentActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is not actively enrolled")
	}
	today := billing.Today(s.now(), s.loc)
	fields := []export.Field{
		{Label: "Estudiante", Value: student.FullName()},
		{Label: "Documento", Value: strings.TrimSpace(string(student.IdentificationType) + " " + deref(student.Identification))},
		{Label: "Programa", Value: programLabel(student.Program)},
		{Label: "Fecha de matrícula", Value: student.EnrollmentDate.Format("2006-01-02")},
		{Label: "Municipio", Value: student.MunicipalityName},
	}
	if student.GroupCode != nil {
		fields = append(fields, export.Field{Label: "Grupo", Value: *student.GroupCode})
	}
	data, err := s.pdf.RenderDocument(export.Document{
		Title:      "Certificado de matrícula",
		Subtitle:   "Expedido el " + today.Format("2006-01-02"),
		Fields:     fields,
		Paragraphs: []string{"Se expide a solicitud del interesado."},
	})
	if err != nil {
		return nil, internalError(err, "failed to render certificate")
	}
	return &File{Name: "certificado_" + sanitizeFilename(student.ID) + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// DailyReportPDF renders the daily collection report.
func (s *ExportService) DailyReportPDF(ctx context.Context, query dto.DailyReportQuery, actor Capabilities) (*File, error) {
	report, err := s.collections.DailyReport(ctx, query, actor)
	if err != nil {
		return nil, err
	}
	byMethod := &export.Dataset{Headers: []string{"Medio de pago", "Valor"}}
	for _, total := range report.ByMethod {
		byMethod.Append(methodLabel(total.Method), formatCOP(total.Amount))
	}
	data, err := s.pdf.RenderDocument(export.Document{
		Title:    "Informe diario de recaudo",
		Subtitle: report.Date.Format("2006-01-02"),
		Fields: []export.Field{
			{Label: "Recaudado en el día", Value: formatCOP(report.CollectedOnDate)},
			{Label: "Meta del mes", Value: formatCOP(report.MonthTarget)},
			{Label: "Recaudado en el mes", Value: formatCOP(report.CollectedInMonth)},
			{Label: "Cumplimiento", Value: report.CompliancePercent.StringFixed(2) + " %"},
			{Label: "Valor de cartera", Value: formatCOP(report.PortfolioValue)},
			{Label: "Recaudado a la fecha", Value: formatCOP(report.CollectedToDate)},
			{Label: "Saldo por recaudar", Value: formatCOP(report.Outstanding)},
		},
		Table:  byMethod,
		Footer: "Generado " + report.GeneratedAt.In(s.loc).Format("2006-01-02 15:04"),
	})
	if err != nil {
		return nil, internalError(err, "failed to render daily report")
	}
	return &File{Name: "informe_diario_" + report.Date.Format("20060102") + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// OverdueCSV exports the overdue installment listing.
func (s *ExportService) OverdueCSV(ctx context.Context, filter models.CollectionFilter, actor Capabilities) (*File, error) {
	rows, err := s.collections.Overdue(ctx, filter, actor)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: []string{"Estudiante", "Documento", "Teléfono", "Municipio", "Vencimiento", "Días de mora", "Valor cuota", "Abonado", "Saldo deuda"}}
	for _, row := range rows {
		data.Append(
			row.StudentName,
			deref(row.Identification),
			deref(row.Phone),
			row.Municipality,
			row.DueDate.Format("2006-01-02"),
			fmt.Sprintf("%d", row.Days),
			row.Amount.StringFixed(0),
			row.AmountPaid.StringFixed(0),
			row.DebtRemaining.StringFixed(0),
		)
	}
	return s.renderCSV(data, "cartera_vencida")
}

// WithdrawnCSV exports every withdrawn student visible to the actor.
func (s *ExportService) WithdrawnCSV(ctx context.Context, query dto.StudentQuery, actor Capabilities) (*File, error) {
	students, err := allStudents(ctx, s.students.Withdrawn, query, actor)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: []string{"Estudiante", "Tipo", "Documento", "Programa", "Municipio", "Matrícula", "Retiro", "Saldo deuda"}}
	for _, student := range students {
		withdrawal := ""
		if student.WithdrawalDate != nil {
			withdrawal = student.WithdrawalDate.Format("2006-01-02")
		}
		remaining := ""
		if student.DebtRemaining != nil {
			remaining = student.DebtRemaining.StringFixed(0)
		}
		data.Append(
			student.FullName(),
			string(student.IdentificationType),
			deref(student.Identification),
			programLabel(student.Program),
			student.MunicipalityName,
			student.EnrollmentDate.Format("2006-01-02"),
			withdrawal,
			remaining,
		)
	}
	return s.renderCSV(data, "retirados")
}

// MockExamCertificates prints one mock exam certificate per active student of
// the class group, each on its own page, signed by the requesting user.
func (s *ExportService) MockExamCertificates(ctx context.Context, classID string, actor Capabilities) (*File, error) {
	class, err := s.classes.Get(ctx, classID, actor)
	if err != nil {
		return nil, err
	}
	students, err := allStudents(ctx, s.students.List, dto.StudentQuery{
		GroupID: class.GroupID,
		Status:  string(models.StudentActive),
	}, actor)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class group has no active students")
	}

	today := billing.Today(s.now(), s.loc)
	closing := fmt.Sprintf("Para constancia se firma a los %d días del mes de %s de %d.", today.Day(), spanishMonth(today.Month()), today.Year())
	signer := actor.Username
	if signer == "" {
		signer = actor.UserID
	}

	docs := make([]export.Document, 0, len(students))
	for _, student := range students {
		body := fmt.Sprintf(
			"%s, identificado(a) con %s N° %s, cursa el programa %s en nuestra institución y el día %d de %s presentará un simulacro de jornada completa, de 8:00 a. m. a 12:00 m. y de 1:00 p. m. a 5:00 p. m.",
			student.FullName(), student.IdentificationType, deref(student.Identification), programLabel(student.Program),
			class.Date.Day(), spanishMonth(class.Date.Month()),
		)
		docs = append(docs, export.Document{
			Title:      "Hace constar que",
			Paragraphs: []string{body, closing},
			Signature:  []string{signer, "Coordinación académica"},
		})
	}

	data, err := s.pdf.RenderDocuments(docs)
	if err != nil {
		return nil, internalError(err, "failed to render mock exam certificates")
	}
	s.logger.Debug("mock exam certificates rendered", zap.String("class_id", class.ID), zap.Int("students", len(students)))
	return &File{Name: "certificados_simulacro_" + class.Date.Format("20060102") + ".pdf", ContentType: contentTypePDF, Data: data}, nil
}

// allStudents walks every page of a student listing.
func allStudents(ctx context.Context, fetch studentPager, query dto.StudentQuery, actor Capabilities) ([]models.StudentDetail, error) {
	var out []models.StudentDetail
	query.PageSize = exportPageSize
	for page := 1; ; page++ {
		query.Page = page
		students, pagination, err := fetch(ctx, query, actor)
		if err != nil {
			return nil, err
		}
		out = append(out, students...)
		if len(students) < exportPageSize || pagination == nil || page*pagination.PageSize >= pagination.TotalCount {
			return out, nil
		}
	}
}

func (s *ExportService) renderCSV(data export.Dataset, name string) (*File, error) {
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}
	s.logger.Debug("export rendered", zap.String("name", name), zap.Int("rows", len(data.Rows)))
	filename := fmt.Sprintf("%s_%s.csv", name, s.now().In(s.loc).Format("20060102"))
	return &File{Name: filename, ContentType: contentTypeCSV, Data: out}, nil
}

func installmentTable(installments []models.Installment) *export.Dataset {
	if len(installments) == 0 {
		return nil
	}
	table := &export.Dataset{Headers: []string{"Vencimiento", "Valor", "Pagado", "Fecha de pago"}}
	for _, inst := range installments {
		paid := ""
		if inst.PaymentDate != nil {
			paid = inst.PaymentDate.Format("2006-01-02")
		}
		table.Append(inst.DueDate.Format("2006-01-02"), formatCOP(inst.Amount), formatCOP(inst.AmountPaid), paid)
	}
	return table
}

// formatCOP renders whole pesos with dot thousand separators, e.g. "$ 1.250.000".
func formatCOP(v decimal.Decimal) string {
	digits := v.Abs().StringFixed(0)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if v.Round(0).IsNegative() {
		return "-$ " + b.String()
	}
	return "$ " + b.String()
}

var spanishMonths = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

func spanishMonth(month time.Month) string {
	if month < time.January || month > time.December {
		return month.String()
	}
	return spanishMonths[month-1]
}

func methodLabel(method models.PaymentMethod) string {
	switch method {
	case models.PaymentCash:
		return "Efectivo"
	case models.PaymentTransfer:
		return "Transferencia"
	case models.PaymentCard:
		return "Tarjeta"
	default:
		return string(method)
	}
}

func programLabel(program models.Program) string {
	switch program {
	case models.ProgramPreICFES:
		return "PreICFES"
	case models.ProgramPreUniversity:
		return "Preuniversitario"
	case models.ProgramValidation:
		return "Validación del bachillerato"
	default:
		return string(program)
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
