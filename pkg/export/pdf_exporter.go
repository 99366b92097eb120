package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets and certificates into PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Certificate describes the content of a course completion certificate.
type Certificate struct {
	StudentName string
	CourseTitle string
	TeacherName string
	IssuedAt    string
}

// RenderCertificate produces a landscape completion certificate.
func (e *PDFExporter) RenderCertificate(cert Certificate) ([]byte, error) {
	if cert.StudentName == "" || cert.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student and course")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 30, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 16, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 12, cert.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, cert.CourseTitle, "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "I", 11)
	if cert.TeacherName != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Instructor: %s", cert.TeacherName), "", 1, "C", false, 0, "")
	}
	if cert.IssuedAt != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", cert.IssuedAt), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
