package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{Headers: []string{"Estudiante", "Saldo"}}
	data.Append("Ana Peña", "100000")
	data.Append("Luis")

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "Estudiante,Saldo\nAna Peña,100000\nLuis,\n", string(out[len(utf8BOM):]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRenderDocument(t *testing.T) {
	exporter := NewPDFExporter("PreICFES", "900123456")
	out, err := exporter.RenderDocument(Document{
		Title:  "Recibo de pago",
		Fields: []Field{{Label: "Número", Value: "000001"}},
		Copies: 2,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRenderDocumentRequiresTitle(t *testing.T) {
	_, err := NewPDFExporter("", "").RenderDocument(Document{})
	require.Error(t, err)
}

func TestPDFExporterRenderTable(t *testing.T) {
	data := Dataset{Headers: []string{"Fecha", "Valor"}}
	data.Append("2025-01-01", "100000")
	out, err := NewPDFExporter("PreICFES", "").Render(data, "Recaudo")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRenderDocumentSecondCopyBelowCutLine(t *testing.T) {
	exporter := NewPDFExporter("PreICFES", "900123456")
	doc := Document{
		Title:  "Recibo de pago",
		Fields: []Field{{Label: "Número", Value: "000001"}, {Label: "Valor recibido", Value: "$ 200.000"}},
		Copies: 1,
	}
	single, err := exporter.RenderDocument(doc)
	require.NoError(t, err)

	doc.Copies = 2
	double, err := exporter.RenderDocument(doc)
	require.NoError(t, err)
	assert.Greater(t, len(double), len(single))
}

func TestPDFExporterRenderDocumentsOnePagePerDocument(t *testing.T) {
	exporter := NewPDFExporter("PreICFES", "900123456")
	docs := []Document{
		{Title: "Constancia", Paragraphs: []string{"Ana Peña presentará el simulacro."}, Signature: []string{"coordinadora"}},
		{Title: "Constancia", Paragraphs: []string{"Luis Gómez presentará el simulacro."}, Signature: []string{"coordinadora"}},
		{Title: "Constancia", Paragraphs: []string{"Sara Ruiz presentará el simulacro."}},
	}
	out, err := exporter.RenderDocuments(docs)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(out, []byte("<</Type /Page\n")))

	_, err = exporter.RenderDocuments(nil)
	require.Error(t, err)
	_, err = exporter.RenderDocuments([]Document{{Title: "Constancia"}, {}})
	require.Error(t, err)
}
