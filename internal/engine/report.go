package engine

import (
	"fmt"
	"sort"
)

// Record is the flat wire form of an assignment.
type Record struct {
	ExamID   string
	RoomName string
	Ordinal  int
}

// Records flattens a schedule into its boundary representation, ordered by
// ordinal, then room name, then exam id.
func Records(schedule Schedule) []Record {
	sorted := sortAssignments(schedule.Assignments)
	out := make([]Record, 0, len(sorted))
	for _, a := range sorted {
		out = append(out, Record{ExamID: a.ExamID, RoomName: a.RoomName, Ordinal: a.Ordinal})
	}
	return out
}

// Violation is a pair of exams sharing a department code and a timeslot.
type Violation struct {
	ExamA string
	ExamB string
	Code  string
}

// CheckConflicts returns every cohort clash in a (possibly hypothetical) set
// of assignments. Assignments naming unknown exams are ignored. An exam listed
// more than once is checked at every placement; each (ExamA, ExamB, Code) is
// reported once with ExamA < ExamB.
func CheckConflicts(assignments []Assignment, exams []Exam) []Violation {
	graph := BuildConflicts(exams)
	known := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := graph.index[a.ExamID]; ok {
			known = append(known, a)
		}
	}

	seen := make(map[Violation]struct{})
	var out []Violation
	for x := 0; x < len(known); x++ {
		for y := x + 1; y < len(known); y++ {
			a, b := known[x], known[y]
			if a.ExamID == b.ExamID || !a.overlaps(b) {
				continue
			}
			lo, hi := a.ExamID, b.ExamID
			if hi < lo {
				lo, hi = hi, lo
			}
			for _, code := range graph.Shared(lo, hi) {
				v := Violation{ExamA: lo, ExamB: hi, Code: code}
				if _, dup := seen[v]; dup {
					continue
				}
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExamA != out[j].ExamA {
			return out[i].ExamA < out[j].ExamA
		}
		if out[i].ExamB != out[j].ExamB {
			return out[i].ExamB < out[j].ExamB
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// InvariantKind names the rule a schedule breaks.
type InvariantKind string

const (
	MissingExam       InvariantKind = "MISSING_EXAM"
	DuplicateExam     InvariantKind = "DUPLICATE_EXAM"
	UnknownExam       InvariantKind = "UNKNOWN_EXAM"
	UnknownRoom       InvariantKind = "UNKNOWN_ROOM"
	RoomDoubleBook    InvariantKind = "ROOM_DOUBLE_BOOKED"
	OverCapacity      InvariantKind = "OVER_CAPACITY"
	UnusableSlot      InvariantKind = "UNUSABLE_SLOT"
	CohortClash       InvariantKind = "COHORT_CLASH"
	OrdinalOutOfRange InvariantKind = "ORDINAL_OUT_OF_RANGE"
)

// InvariantViolation describes one broken schedule invariant.
type InvariantViolation struct {
	Kind    InvariantKind
	ExamIDs []string
	RoomID  string
	Ordinal int
	Detail  string
}

// Verify checks assignments against every schedule invariant for the snapshot.
// A nil result means the schedule is acceptable.
func Verify(assignments []Assignment, snap Snapshot) []InvariantViolation {
	var out []InvariantViolation

	exams := make(map[string]Exam, len(snap.Exams))
	for _, e := range snap.Exams {
		exams[e.ID] = e
	}
	rooms := make(map[string]Room, len(snap.Rooms))
	roomsByName := make(map[string]Room, len(snap.Rooms))
	for _, r := range snap.Rooms {
		rooms[r.ID] = r
		roomsByName[r.Name] = r
	}
	avail := BuildAvailability(snap.Rooms, snap.Grid)

	seen := make(map[string]int, len(assignments))
	resolved := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		exam, ok := exams[a.ExamID]
		if !ok {
			out = append(out, InvariantViolation{Kind: UnknownExam, ExamIDs: []string{a.ExamID}, Ordinal: a.Ordinal})
			continue
		}
		seen[a.ExamID]++
		if seen[a.ExamID] == 2 {
			out = append(out, InvariantViolation{Kind: DuplicateExam, ExamIDs: []string{a.ExamID}})
		}
		room, ok := rooms[a.RoomID]
		if !ok {
			room, ok = roomsByName[a.RoomName]
		}
		if !ok {
			out = append(out, InvariantViolation{Kind: UnknownRoom, ExamIDs: []string{a.ExamID}, RoomID: a.RoomID, Ordinal: a.Ordinal})
			continue
		}
		a.RoomID, a.RoomName = room.ID, room.Name
		if a.Ordinal < 0 || a.Ordinal+a.span() > snap.Grid.Len() {
			out = append(out, InvariantViolation{Kind: OrdinalOutOfRange, ExamIDs: []string{a.ExamID}, RoomID: room.ID, Ordinal: a.Ordinal})
			continue
		}
		if room.Capacity < exam.Students {
			out = append(out, InvariantViolation{
				Kind:    OverCapacity,
				ExamIDs: []string{a.ExamID},
				RoomID:  room.ID,
				Ordinal: a.Ordinal,
				Detail:  fmt.Sprintf("%d students, capacity %d", exam.Students, room.Capacity),
			})
		}
		if !snap.Grid.sameDay(a.Ordinal, a.span()) {
			out = append(out, InvariantViolation{Kind: UnusableSlot, ExamIDs: []string{a.ExamID}, RoomID: room.ID, Ordinal: a.Ordinal, Detail: "span crosses a day boundary"})
		}
		for t := a.Ordinal; t < a.Ordinal+a.span(); t++ {
			if !avail.Usable(room.ID, t) {
				out = append(out, InvariantViolation{Kind: UnusableSlot, ExamIDs: []string{a.ExamID}, RoomID: room.ID, Ordinal: t})
				break
			}
		}
		resolved = append(resolved, a)
	}

	for _, e := range snap.Exams {
		if seen[e.ID] == 0 {
			out = append(out, InvariantViolation{Kind: MissingExam, ExamIDs: []string{e.ID}})
		}
	}

	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			a, b := resolved[i], resolved[j]
			if a.RoomID != b.RoomID || a.ExamID == b.ExamID || !a.overlaps(b) {
				continue
			}
			start := a.Ordinal
			if b.Ordinal > start {
				start = b.Ordinal
			}
			out = append(out, InvariantViolation{Kind: RoomDoubleBook, ExamIDs: []string{a.ExamID, b.ExamID}, RoomID: a.RoomID, Ordinal: start})
		}
	}

	for _, v := range CheckConflicts(resolved, snap.Exams) {
		out = append(out, InvariantViolation{
			Kind:    CohortClash,
			ExamIDs: []string{v.ExamA, v.ExamB},
			Detail:  v.Code,
		})
	}
	return out
}
