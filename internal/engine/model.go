// Package engine builds exam timetables from an entity snapshot.
//
// The package is pure: it never touches storage, the network or the clock.
// Callers hand it a Snapshot and receive either a Schedule or a structured
// *InfeasibilityError.
package engine

import "strings"

// Daytime classifies a slot of the session grid.
type Daytime string

const (
	Morning   Daytime = "MORNING"
	Afternoon Daytime = "AFTERNOON"
)

// DaytimeRestriction limits a room to one half of the day.
type DaytimeRestriction string

const (
	AnyTime       DaytimeRestriction = ""
	MorningOnly   DaytimeRestriction = "MORNING_ONLY"
	AfternoonOnly DaytimeRestriction = "AFTERNOON_ONLY"
)

// Allows reports whether a slot of the given category passes the restriction.
func (r DaytimeRestriction) Allows(d Daytime) bool {
	switch r {
	case MorningOnly:
		return d == Morning
	case AfternoonOnly:
		return d == Afternoon
	default:
		return true
	}
}

// Restrictions is the closed set of per-room usage rules.
type Restrictions struct {
	Daytime DaytimeRestriction
	// Days lists the allowed day labels. Empty means every day.
	Days []string
}

// AllowsDay reports whether the room may be used on the given day label.
func (r Restrictions) AllowsDay(day string) bool {
	if len(r.Days) == 0 {
		return true
	}
	day = strings.TrimSpace(day)
	for _, allowed := range r.Days {
		if strings.EqualFold(strings.TrimSpace(allowed), day) {
			return true
		}
	}
	return false
}

// Exam is a unit of assessment to place.
type Exam struct {
	ID          string
	Title       string
	Duration    int
	Students    int
	Departments []string
}

// Room is a physical space exams can be held in.
type Room struct {
	ID           string
	Name         string
	Capacity     int
	Availability int
	Restrictions Restrictions
}

// Assignment places one exam in a room starting at a timeslot ordinal.
type Assignment struct {
	ExamID   string
	RoomID   string
	RoomName string
	Ordinal  int
	// Span is the number of consecutive ordinals occupied, at least 1.
	Span int
}

func (a Assignment) span() int {
	if a.Span < 1 {
		return 1
	}
	return a.Span
}

func (a Assignment) overlaps(b Assignment) bool {
	return a.Ordinal < b.Ordinal+b.span() && b.Ordinal < a.Ordinal+a.span()
}

// Schedule is a complete, constraint-satisfying set of assignments.
type Schedule struct {
	Assignments []Assignment
}

// Snapshot is the immutable input of a generation run.
type Snapshot struct {
	Exams []Exam
	Rooms []Room
	Grid  Grid
}
