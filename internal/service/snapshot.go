package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/exam-timetable-api/internal/dto"
	"github.com/noah-isme/exam-timetable-api/internal/engine"
	"github.com/noah-isme/exam-timetable-api/internal/models"
	appErrors "github.com/noah-isme/exam-timetable-api/pkg/errors"
)

const defaultAvailability = 100

// ParseSessionGrid builds the session grid from configuration. Slots use the
// "label@MORNING" or "label@AFTERNOON" form.
func ParseSessionGrid(days, slots []string) (engine.Grid, error) {
	grid := engine.Grid{Days: append([]string(nil), days...)}
	for _, raw := range slots {
		at := strings.LastIndex(raw, "@")
		if at <= 0 || at == len(raw)-1 {
			return engine.Grid{}, fmt.Errorf("session slot %q: expected label@DAYTIME", raw)
		}
		grid.Slots = append(grid.Slots, engine.SlotDef{
			Label:   strings.TrimSpace(raw[:at]),
			Daytime: engine.Daytime(strings.ToUpper(strings.TrimSpace(raw[at+1:]))),
		})
	}
	if err := grid.Validate(); err != nil {
		return engine.Grid{}, err
	}
	return grid, nil
}

func examsFromModels(rows []models.Exam) []engine.Exam {
	out := make([]engine.Exam, 0, len(rows))
	for _, row := range rows {
		out = append(out, engine.Exam{
			ID:          row.ID,
			Title:       row.Title,
			Duration:    atLeastOne(row.Duration),
			Students:    row.Students,
			Departments: append([]string(nil), row.Departments...),
		})
	}
	return out
}

func roomsFromModels(rows []models.Room) []engine.Room {
	out := make([]engine.Room, 0, len(rows))
	for _, row := range rows {
		out = append(out, engine.Room{
			ID:           row.ID,
			Name:         row.Name,
			Capacity:     row.Capacity,
			Availability: row.Availability,
			Restrictions: engine.Restrictions{
				Daytime: engine.DaytimeRestriction(row.Daytime),
				Days:    append([]string(nil), row.SpecificDays...),
			},
		})
	}
	return out
}

func examsFromInput(items []dto.ExamInput) []engine.Exam {
	out := make([]engine.Exam, 0, len(items))
	for _, item := range items {
		out = append(out, engine.Exam{
			ID:          item.ID,
			Title:       item.Title,
			Duration:    atLeastOne(item.Duration),
			Students:    item.Students,
			Departments: append([]string(nil), item.Departments...),
		})
	}
	return out
}

func roomsFromInput(items []dto.RoomInput) ([]engine.Room, error) {
	out := make([]engine.Room, 0, len(items))
	for _, item := range items {
		restriction := engine.AnyTime
		switch {
		case item.Restrictions.MorningOnly && item.Restrictions.AfternoonOnly:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s cannot be both morning-only and afternoon-only", item.Name))
		case item.Restrictions.MorningOnly:
			restriction = engine.MorningOnly
		case item.Restrictions.AfternoonOnly:
			restriction = engine.AfternoonOnly
		}
		id := item.ID
		if id == "" {
			id = item.Name
		}
		availability := defaultAvailability
		if item.Availability != nil {
			availability = *item.Availability
		}
		out = append(out, engine.Room{
			ID:           id,
			Name:         item.Name,
			Capacity:     item.Capacity,
			Availability: availability,
			Restrictions: engine.Restrictions{
				Daytime: restriction,
				Days:    append([]string(nil), item.Restrictions.SpecificDays...),
			},
		})
	}
	return out, nil
}

func gridFromInput(input *dto.GridInput, fallback engine.Grid) engine.Grid {
	if input == nil {
		return fallback
	}
	grid := engine.Grid{Days: make([]string, 0, len(input.Days))}
	for _, day := range input.Days {
		grid.Days = append(grid.Days, strings.TrimSpace(day))
	}
	for _, slot := range input.Slots {
		grid.Slots = append(grid.Slots, engine.SlotDef{Label: strings.TrimSpace(slot.Label), Daytime: engine.Daytime(slot.Daytime)})
	}
	return grid
}

func assignmentsFromInput(items []dto.AssignmentInput) []engine.Assignment {
	out := make([]engine.Assignment, 0, len(items))
	for _, item := range items {
		out = append(out, engine.Assignment{
			ExamID:   item.ExamID,
			RoomID:   item.RoomID,
			RoomName: item.RoomName,
			Ordinal:  item.Timeslot,
			Span:     atLeastOne(item.Span),
		})
	}
	return out
}

func assignmentsFromEntries(entries []models.TimetableEntry) []engine.Assignment {
	out := make([]engine.Assignment, 0, len(entries))
	for _, e := range entries {
		out = append(out, engine.Assignment{
			ExamID:   e.ExamID,
			RoomID:   e.RoomID,
			RoomName: e.RoomName,
			Ordinal:  e.Ordinal,
			Span:     atLeastOne(e.Span),
		})
	}
	return out
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// snapshotDigest fingerprints a snapshot and the options that shape the
// result. Entity order does not matter since Solve is order independent.
func snapshotDigest(snap engine.Snapshot, opts engine.Options) (string, error) {
	canonical := struct {
		Exams        []engine.Exam
		Rooms        []engine.Room
		Grid         engine.Grid
		NodeBudget   int
		SpanDuration bool
	}{
		Exams:        make([]engine.Exam, len(snap.Exams)),
		Rooms:        make([]engine.Room, len(snap.Rooms)),
		Grid:         snap.Grid,
		NodeBudget:   opts.NodeBudget,
		SpanDuration: opts.SpanDuration,
	}
	for i, e := range snap.Exams {
		e.Departments = sortedCopy(e.Departments)
		canonical.Exams[i] = e
	}
	for i, r := range snap.Rooms {
		r.Restrictions.Days = sortedCopy(r.Restrictions.Days)
		canonical.Rooms[i] = r
	}
	sort.Slice(canonical.Exams, func(i, j int) bool { return canonical.Exams[i].ID < canonical.Exams[j].ID })
	sort.Slice(canonical.Rooms, func(i, j int) bool { return canonical.Rooms[i].ID < canonical.Rooms[j].ID })

	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func scheduleRecords(assignments []engine.Assignment) []dto.ScheduleRecord {
	records := engine.Records(engine.Schedule{Assignments: assignments})
	out := make([]dto.ScheduleRecord, 0, len(records))
	for _, r := range records {
		out = append(out, dto.ScheduleRecord{ExamID: r.ExamID, RoomName: r.RoomName, Timeslot: r.Ordinal})
	}
	return out
}

func assignmentViews(assignments []engine.Assignment, snap engine.Snapshot) []dto.AssignmentView {
	titles := make(map[string]string, len(snap.Exams))
	for _, e := range snap.Exams {
		titles[e.ID] = e.Title
	}
	out := make([]dto.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		ts, _ := snap.Grid.Timeslot(a.Ordinal)
		out = append(out, dto.AssignmentView{
			ExamID:   a.ExamID,
			Title:    titles[a.ExamID],
			RoomID:   a.RoomID,
			RoomName: a.RoomName,
			Timeslot: a.Ordinal,
			Span:     atLeastOne(a.Span),
			Day:      ts.DayLabel,
			Slot:     ts.Label,
		})
	}
	return out
}

func conflictViews(violations []engine.Violation) []dto.ConflictView {
	out := make([]dto.ConflictView, 0, len(violations))
	for _, v := range violations {
		out = append(out, dto.ConflictView{ExamA: v.ExamA, ExamB: v.ExamB, DepartmentCode: v.Code})
	}
	return out
}

func violationViews(violations []engine.InvariantViolation) []dto.ViolationView {
	out := make([]dto.ViolationView, 0, len(violations))
	for _, v := range violations {
		out = append(out, dto.ViolationView{
			Kind:     string(v.Kind),
			ExamIDs:  v.ExamIDs,
			RoomID:   v.RoomID,
			Timeslot: v.Ordinal,
			Detail:   v.Detail,
		})
	}
	return out
}

func infeasibilityReport(e *engine.InfeasibilityError) dto.InfeasibilityReport {
	return dto.InfeasibilityReport{
		Kind:    string(e.Kind),
		Exams:   e.Exams,
		Cohort:  e.Cohort,
		Partial: scheduleRecords(e.Partial),
		Nodes:   e.Nodes,
		Proven:  e.Proven(),
	}
}

// solveError maps engine failures to typed API errors.
func solveError(err error) *appErrors.Error {
	if infeasible, ok := engine.AsInfeasibility(err); ok {
		var base *appErrors.Error
		switch infeasible.Kind {
		case engine.InfeasibleExam:
			base = appErrors.ErrInfeasibleExam
		case engine.InfeasibleCohort:
			base = appErrors.ErrInfeasibleCohort
		case engine.BudgetExceeded:
			base = appErrors.ErrBudgetExceeded
		default:
			base = appErrors.ErrSearchExhausted
		}
		mapped := appErrors.Clone(base, infeasible.Error()).WithDetails(infeasibilityReport(infeasible))
		mapped.Err = err
		return mapped
	}
	var snapErr *engine.SnapshotError
	if errors.As(err, &snapErr) {
		mapped := appErrors.Clone(appErrors.ErrInvalidSnapshot, snapErr.Message).WithDetails(map[string]string{"field": snapErr.Field})
		mapped.Err = err
		return mapped
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate timetable")
}
