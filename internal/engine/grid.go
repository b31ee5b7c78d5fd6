package engine

import "fmt"

// SlotDef describes one time-of-day slot repeated on every session day.
type SlotDef struct {
	Label   string
	Daytime Daytime
}

// Grid is the fixed session grid: every day carries the same slots.
type Grid struct {
	Days  []string
	Slots []SlotDef
}

// Timeslot is one ordinal of the grid with its derived coordinates.
type Timeslot struct {
	Ordinal  int
	Day      int
	DayLabel string
	Slot     int
	Label    string
	Daytime  Daytime
}

// DefaultGrid returns the three-day, five-slot exam session.
func DefaultGrid() Grid {
	return Grid{
		Days: []string{"Jour 1", "Jour 2", "Jour 3"},
		Slots: []SlotDef{
			{Label: "8h-10h", Daytime: Morning},
			{Label: "10h-12h", Daytime: Morning},
			{Label: "13h-15h", Daytime: Afternoon},
			{Label: "15h-17h", Daytime: Afternoon},
			{Label: "17h-19h", Daytime: Afternoon},
		},
	}
}

// Len returns the number of ordinals in the grid.
func (g Grid) Len() int {
	return len(g.Days) * len(g.Slots)
}

// Timeslot resolves an ordinal. ok is false when the ordinal is outside the grid.
func (g Grid) Timeslot(ordinal int) (Timeslot, bool) {
	if ordinal < 0 || ordinal >= g.Len() {
		return Timeslot{}, false
	}
	day := ordinal / len(g.Slots)
	slot := ordinal % len(g.Slots)
	return Timeslot{
		Ordinal:  ordinal,
		Day:      day,
		DayLabel: g.Days[day],
		Slot:     slot,
		Label:    g.Slots[slot].Label,
		Daytime:  g.Slots[slot].Daytime,
	}, true
}

// Timeslots lists every ordinal of the grid in ascending order.
func (g Grid) Timeslots() []Timeslot {
	out := make([]Timeslot, 0, g.Len())
	for t := 0; t < g.Len(); t++ {
		ts, _ := g.Timeslot(t)
		out = append(out, ts)
	}
	return out
}

// sameDay reports whether ordinals [start, start+span) fall on a single day.
func (g Grid) sameDay(start, span int) bool {
	if span <= 1 {
		return true
	}
	end := start + span - 1
	if end >= g.Len() {
		return false
	}
	return start/len(g.Slots) == end/len(g.Slots)
}

// Validate checks the grid is usable.
func (g Grid) Validate() error {
	if len(g.Days) == 0 {
		return &SnapshotError{Field: "grid.days", Message: "at least one day is required"}
	}
	if len(g.Slots) == 0 {
		return &SnapshotError{Field: "grid.slots", Message: "at least one slot per day is required"}
	}
	seen := make(map[string]struct{}, len(g.Days))
	for _, d := range g.Days {
		if d == "" {
			return &SnapshotError{Field: "grid.days", Message: "day labels must not be empty"}
		}
		if _, dup := seen[d]; dup {
			return &SnapshotError{Field: "grid.days", Message: fmt.Sprintf("duplicate day label %q", d)}
		}
		seen[d] = struct{}{}
	}
	for i, s := range g.Slots {
		if s.Daytime != Morning && s.Daytime != Afternoon {
			return &SnapshotError{Field: fmt.Sprintf("grid.slots[%d]", i), Message: fmt.Sprintf("unknown daytime %q", s.Daytime)}
		}
	}
	return nil
}
