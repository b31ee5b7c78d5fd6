package export

import (
	"bytes"
	"fmt"

	"github.com/gocarina/gocsv"
)

// TimetableRow is one exported assignment.
type TimetableRow struct {
	ExamID   string `csv:"exam_id"`
	Title    string `csv:"title"`
	RoomName string `csv:"room"`
	Timeslot int    `csv:"timeslot"`
	Day      string `csv:"day"`
	Slot     string `csv:"slot"`
	Span     int    `csv:"span"`
	Students int    `csv:"students"`
}

// Document is a rendered timetable: its rows plus the session grid labels.
type Document struct {
	Title string
	Days  []string
	Slots []string
	Rows  []TimetableRow
}

// CSVExporter renders timetable rows as CSV with a header line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the document rows.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	rows := doc.Rows
	if rows == nil {
		rows = []TimetableRow{}
	}
	buf := &bytes.Buffer{}
	if err := gocsv.Marshal(&rows, buf); err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return buf.Bytes(), nil
}
