package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/exam-timetable-api/internal/dto"
)

// ScheduleRow is one exported assignment.
type ScheduleRow struct {
	ExamID   string `csv:"exam_id"`
	Title    string `csv:"title"`
	RoomName string `csv:"room"`
	Timeslot int    `csv:"timeslot"`
	Day      string `csv:"day"`
	Slot     string `csv:"slot"`
	Span     int    `csv:"span"`
}

// WriteSchedule writes assignments ordered by timeslot then room.
func WriteSchedule(w io.Writer, assignments []dto.AssignmentView, delim rune) error {
	rows := make([]*ScheduleRow, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, &ScheduleRow{
			ExamID:   a.ExamID,
			Title:    a.Title,
			RoomName: a.RoomName,
			Timeslot: a.Timeslot,
			Day:      a.Day,
			Slot:     a.Slot,
			Span:     a.Span,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Timeslot != rows[j].Timeslot {
			return rows[i].Timeslot < rows[j].Timeslot
		}
		return rows[i].RoomName < rows[j].RoomName
	})

	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	return nil
}

// WriteScheduleFile replaces path with the CSV rendering of assignments.
func WriteScheduleFile(path string, assignments []dto.AssignmentView, delim rune) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create schedule file: %w", err)
	}
	if err := WriteSchedule(out, assignments, delim); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
