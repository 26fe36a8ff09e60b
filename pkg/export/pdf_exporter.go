package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Field is a label/value line printed on a document.
type Field struct {
	Label string
	Value string
}

// Document describes a letter style PDF: a header block, labelled fields,
// free text paragraphs and an optional table.
type Document struct {
	Title      string
	Subtitle   string
	Fields     []Field
	Paragraphs []string
	Table      *Dataset
	// Signature lines are printed centred under a blank signing rule.
	Signature []string
	Footer    string
	// Copies stacks the same content on one page, e.g. customer and office copy of a receipt.
	Copies int
}

// PDFExporter renders datasets and documents into PDF bytes.
type PDFExporter struct {
	institution string
	taxID       string
}

// NewPDFExporter constructs a PDF exporter stamping the institution header on every page.
func NewPDFExporter(institution, taxID string) *PDFExporter {
	return &PDFExporter{institution: institution, taxID: taxID}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	e.header(pdf, tr)
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	e.table(pdf, tr, data, 277)

	return output(pdf)
}

// RenderDocument renders a letter style document.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	return e.RenderDocuments([]Document{doc})
}

// RenderDocuments renders each document on its own page of a single PDF.
func (e *PDFExporter) RenderDocuments(docs []Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("pdf requires at least one document")
	}
	for _, doc := range docs {
		if doc.Title == "" {
			return nil, fmt.Errorf("pdf document requires a title")
		}
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 12, 15)
	for _, doc := range docs {
		pdf.AddPage()
		e.document(pdf, tr, doc)
	}
	return output(pdf)
}

func (e *PDFExporter) document(pdf *gofpdf.Fpdf, tr func(string) string, doc Document) {
	copies := doc.Copies
	if copies <= 0 {
		copies = 1
	}
	for i := 0; i < copies; i++ {
		if i > 0 {
			pdf.Ln(4)
			pdf.SetDashPattern([]float64{1, 1}, 0)
			x, y := pdf.GetXY()
			pdf.Line(x, y, 200, y)
			pdf.SetDashPattern([]float64{}, 0)
			pdf.Ln(6)
		}
		e.header(pdf, tr)

		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
		if doc.Subtitle != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
		}
		pdf.Ln(3)

		for _, field := range doc.Fields {
			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(55, 6, tr(field.Label), "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 6, tr(field.Value), "", 1, "", false, 0, "")
		}

		if len(doc.Paragraphs) > 0 {
			pdf.Ln(3)
			pdf.SetFont("Arial", "", 11)
			for _, paragraph := range doc.Paragraphs {
				pdf.MultiCell(0, 6, tr(paragraph), "", "J", false)
				pdf.Ln(2)
			}
		}

		if doc.Table != nil && len(doc.Table.Headers) > 0 {
			pdf.Ln(2)
			e.table(pdf, tr, *doc.Table, 186)
		}

		if len(doc.Signature) > 0 {
			pdf.Ln(18)
			pdf.CellFormat(0, 5, "_______________________________________", "", 1, "C", false, 0, "")
			pdf.SetFont("Arial", "B", 10)
			for _, line := range doc.Signature {
				pdf.CellFormat(0, 5, tr(line), "", 1, "C", false, 0, "")
			}
		}

		if doc.Footer != "" {
			pdf.Ln(4)
			pdf.SetFont("Arial", "I", 8)
			pdf.MultiCell(0, 4, tr(doc.Footer), "", "C", false)
		}
	}
}

func (e *PDFExporter) header(pdf *gofpdf.Fpdf, tr func(string) string) {
	if e.institution == "" {
		return
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, tr(e.institution), "", 1, "C", false, 0, "")
	if e.taxID != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, tr("NIT "+e.taxID), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
}

func (e *PDFExporter) table(pdf *gofpdf.Fpdf, tr func(string) string, data Dataset, width float64) {
	pdf.SetFont("Arial", "B", 9)
	colWidth := width / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 6, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
