package engine

// AvailabilityMatrix holds the usable flag of every (room, timeslot) pair.
type AvailabilityMatrix struct {
	grid   Grid
	index  map[string]int
	rooms  []Room
	usable []bitset
}

// BuildAvailability derives the usable matrix for rooms over the grid.
//
// A pair is usable when the room has a non-zero availability, its daytime
// restriction admits the slot's category and its day list (if any) contains
// the slot's day. The magnitude of the availability percentage is ignored.
func BuildAvailability(rooms []Room, grid Grid) *AvailabilityMatrix {
	m := &AvailabilityMatrix{
		grid:   grid,
		index:  make(map[string]int, len(rooms)),
		rooms:  rooms,
		usable: make([]bitset, len(rooms)),
	}
	slots := grid.Timeslots()
	for r, room := range rooms {
		m.index[room.ID] = r
		row := newBitset(grid.Len())
		m.usable[r] = row
		if room.Availability <= 0 {
			continue
		}
		for _, ts := range slots {
			if !room.Restrictions.Daytime.Allows(ts.Daytime) {
				continue
			}
			if !room.Restrictions.AllowsDay(ts.DayLabel) {
				continue
			}
			row.set(ts.Ordinal)
		}
	}
	return m
}

// Usable reports whether the room may host an exam at the ordinal.
// Unknown rooms and out-of-grid ordinals are never usable.
func (m *AvailabilityMatrix) Usable(roomID string, ordinal int) bool {
	r, ok := m.index[roomID]
	if !ok {
		return false
	}
	return m.usable[r].has(ordinal)
}

// UsableOrdinals lists the ordinals the room can host, ascending.
func (m *AvailabilityMatrix) UsableOrdinals(roomID string) []int {
	r, ok := m.index[roomID]
	if !ok {
		return nil
	}
	return m.usable[r].members()
}

// RoomsUsableAt lists the ids of rooms usable at the ordinal, in input order.
func (m *AvailabilityMatrix) RoomsUsableAt(ordinal int) []string {
	var ids []string
	for r, room := range m.rooms {
		if m.usable[r].has(ordinal) {
			ids = append(ids, room.ID)
		}
	}
	return ids
}

// usableSpan reports whether room r can host ordinals [start, start+span).
func (m *AvailabilityMatrix) usableSpan(r, start, span int) bool {
	if !m.grid.sameDay(start, span) {
		return false
	}
	for t := start; t < start+span; t++ {
		if !m.usable[r].has(t) {
			return false
		}
	}
	return true
}
