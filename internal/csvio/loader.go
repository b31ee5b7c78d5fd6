// Package csvio reads exam and room snapshots from CSV files and writes
// generated schedules back out for the offline CLI.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/exam-timetable-api/internal/dto"
)

// ListSeparator splits multi-valued cells such as departments.
const ListSeparator = ";"

// ExamRow is one line of the exams file.
type ExamRow struct {
	ID          string `csv:"id"`
	Title       string `csv:"title"`
	Duration    int    `csv:"duration"`
	Students    int    `csv:"students"`
	Departments string `csv:"departments"`
}

// RoomRow is one line of the rooms file. Availability is optional and
// defaults to 100.
type RoomRow struct {
	ID            string `csv:"id"`
	Name          string `csv:"name"`
	Capacity      int    `csv:"capacity"`
	Availability  string `csv:"availability"`
	MorningOnly   bool   `csv:"morning_only"`
	AfternoonOnly bool   `csv:"afternoon_only"`
	SpecificDays  string `csv:"specific_days"`
}

func newReader(in io.Reader, delim rune) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = delim
	r.TrimLeadingSpace = true
	return r
}

// LoadExams parses exam rows from r.
func LoadExams(r io.Reader, delim rune) ([]dto.ExamInput, error) {
	var rows []*ExamRow
	if err := gocsv.UnmarshalCSV(newReader(r, delim), &rows); err != nil {
		return nil, fmt.Errorf("parse exams: %w", err)
	}
	exams := make([]dto.ExamInput, 0, len(rows))
	for i, row := range rows {
		id := strings.TrimSpace(row.ID)
		if id == "" {
			return nil, fmt.Errorf("exams line %d: id is required", i+2)
		}
		exams = append(exams, dto.ExamInput{
			ID:          id,
			Title:       strings.TrimSpace(row.Title),
			Duration:    row.Duration,
			Students:    row.Students,
			Departments: splitList(row.Departments),
		})
	}
	return exams, nil
}

// LoadRooms parses room rows from r.
func LoadRooms(r io.Reader, delim rune) ([]dto.RoomInput, error) {
	var rows []*RoomRow
	if err := gocsv.UnmarshalCSV(newReader(r, delim), &rows); err != nil {
		return nil, fmt.Errorf("parse rooms: %w", err)
	}
	rooms := make([]dto.RoomInput, 0, len(rows))
	for i, row := range rows {
		room := dto.RoomInput{
			ID:       strings.TrimSpace(row.ID),
			Name:     strings.TrimSpace(row.Name),
			Capacity: row.Capacity,
			Restrictions: dto.RestrictionsInput{
				MorningOnly:   row.MorningOnly,
				AfternoonOnly: row.AfternoonOnly,
				SpecificDays:  splitList(row.SpecificDays),
			},
		}
		if raw := strings.TrimSpace(row.Availability); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("rooms line %d: availability %q is not a number", i+2, raw)
			}
			room.Availability = &value
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// LoadExamsFile opens path and parses it with LoadExams.
func LoadExamsFile(path string, delim rune) ([]dto.ExamInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exams file: %w", err)
	}
	defer f.Close()
	return LoadExams(f, delim)
}

// LoadRoomsFile opens path and parses it with LoadRooms.
func LoadRoomsFile(path string, delim rune) ([]dto.RoomInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rooms file: %w", err)
	}
	defer f.Close()
	return LoadRooms(f, delim)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ListSeparator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
