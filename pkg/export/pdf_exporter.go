package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0
	slotColumn = 30.0
	rowHeight  = 6.0
)

// PDFExporter lays a timetable out as a day × slot grid.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws one column per day and one row per slot; each cell lists
// the exams starting there with their room.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Days) == 0 || len(doc.Slots) == 0 {
		return nil, fmt.Errorf("pdf requires a session grid")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	cells := make(map[[2]string][]string)
	for _, row := range doc.Rows {
		key := [2]string{row.Day, row.Slot}
		cells[key] = append(cells[key], fmt.Sprintf("%s (%s)", row.ExamID, row.RoomName))
	}

	dayWidth := (pageWidth - slotColumn) / float64(len(doc.Days))

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(slotColumn, 8, "", "1", 0, "C", false, 0, "")
	for _, day := range doc.Days {
		pdf.CellFormat(dayWidth, 8, tr(day), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, slot := range doc.Slots {
		lines := 1
		for _, day := range doc.Days {
			if n := len(cells[[2]string{day, slot}]); n > lines {
				lines = n
			}
		}
		height := float64(lines) * rowHeight
		x, y := pdf.GetXY()
		pdf.CellFormat(slotColumn, height, tr(slot), "1", 0, "C", false, 0, "")
		for i, day := range doc.Days {
			pdf.SetXY(x+slotColumn+float64(i)*dayWidth, y)
			pdf.Rect(pdf.GetX(), y, dayWidth, height, "D")
			pdf.MultiCell(dayWidth, rowHeight, tr(strings.Join(cells[[2]string{day, slot}], "\n")), "", "L", false)
		}
		pdf.SetXY(x, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
