package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultNodeBudget bounds placements tried when Options.NodeBudget is zero.
const DefaultNodeBudget = 250000

const cancelCheckInterval = 256

// Options tune a single Solve call.
type Options struct {
	// NodeBudget caps the number of placements tried. Zero means DefaultNodeBudget.
	NodeBudget int
	// SpanDuration makes an exam occupy Duration consecutive ordinals on one day.
	SpanDuration bool
}

// Stats describes the work done by the search.
type Stats struct {
	Nodes      int
	Backtracks int
	MaxDepth   int
}

// Result is a solved schedule and the search statistics behind it.
type Result struct {
	Schedule Schedule
	Stats    Stats
}

type trailEntry struct {
	exam  int
	room  int
	start int
}

type solver struct {
	ctx       context.Context
	grid      Grid
	exams     []Exam
	rooms     []Room
	spans     []int
	rank      []int
	conflicts *ConflictGraph

	dom         [][]bitset
	size        []int
	initialSize []int

	placed  []bool
	current []Assignment
	trail   []trailEntry

	budget int
	stats  Stats
	best   []Assignment
	abort  error
}

// Solve assigns every exam of the snapshot to a room and a timeslot.
//
// Identical snapshots and options always yield identical schedules. Failures
// are returned as *InfeasibilityError, malformed input as *SnapshotError.
func Solve(ctx context.Context, snap Snapshot, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ValidateSnapshot(snap); err != nil {
		return nil, err
	}
	if len(snap.Exams) == 0 {
		return &Result{}, nil
	}

	s := newSolver(ctx, snap, opts)
	if err := s.precheck(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &InfeasibilityError{Kind: BudgetExceeded, Cause: err}
	}
	if s.search(0) {
		return &Result{Schedule: Schedule{Assignments: sortAssignments(s.current)}, Stats: s.stats}, nil
	}
	if s.abort != nil {
		return nil, &InfeasibilityError{
			Kind:    BudgetExceeded,
			Partial: s.best,
			Nodes:   s.stats.Nodes,
			Cause:   abortCause(s.abort),
		}
	}
	return nil, &InfeasibilityError{
		Kind:    SearchExhausted,
		Partial: s.best,
		Nodes:   s.stats.Nodes,
	}
}

var errNodeBudget = errors.New("node budget exhausted")

func abortCause(err error) error {
	if errors.Is(err, errNodeBudget) {
		return nil
	}
	return err
}

// ValidateSnapshot rejects snapshots the solver cannot reason about.
func ValidateSnapshot(snap Snapshot) error {
	if err := snap.Grid.Validate(); err != nil {
		return err
	}
	examIDs := make(map[string]struct{}, len(snap.Exams))
	for i, exam := range snap.Exams {
		field := fmt.Sprintf("exams[%d]", i)
		if strings.TrimSpace(exam.ID) == "" {
			return &SnapshotError{Field: field, Message: "id is required"}
		}
		if _, dup := examIDs[exam.ID]; dup {
			return &SnapshotError{Field: field, Message: fmt.Sprintf("duplicate exam id %q", exam.ID)}
		}
		examIDs[exam.ID] = struct{}{}
		if exam.Students < 0 {
			return &SnapshotError{Field: field, Message: "students must not be negative"}
		}
		if exam.Duration < 0 {
			return &SnapshotError{Field: field, Message: "duration must not be negative"}
		}
		hasCode := false
		for _, code := range exam.Departments {
			if normalizeCode(code) != "" {
				hasCode = true
				break
			}
		}
		if !hasCode {
			return &SnapshotError{Field: field, Message: fmt.Sprintf("exam %q has no department code", exam.ID)}
		}
	}
	roomIDs := make(map[string]struct{}, len(snap.Rooms))
	roomNames := make(map[string]struct{}, len(snap.Rooms))
	for i, room := range snap.Rooms {
		field := fmt.Sprintf("rooms[%d]", i)
		if strings.TrimSpace(room.ID) == "" {
			return &SnapshotError{Field: field, Message: "id is required"}
		}
		if _, dup := roomIDs[room.ID]; dup {
			return &SnapshotError{Field: field, Message: fmt.Sprintf("duplicate room id %q", room.ID)}
		}
		roomIDs[room.ID] = struct{}{}
		if _, dup := roomNames[room.Name]; dup {
			return &SnapshotError{Field: field, Message: fmt.Sprintf("duplicate room name %q", room.Name)}
		}
		roomNames[room.Name] = struct{}{}
		if room.Capacity <= 0 {
			return &SnapshotError{Field: field, Message: "capacity must be positive"}
		}
		if room.Availability < 0 || room.Availability > 100 {
			return &SnapshotError{Field: field, Message: "availability must be within 0-100"}
		}
		switch room.Restrictions.Daytime {
		case AnyTime, MorningOnly, AfternoonOnly:
		default:
			return &SnapshotError{Field: field, Message: fmt.Sprintf("unknown daytime restriction %q", room.Restrictions.Daytime)}
		}
	}
	return nil
}

// ExamSpan returns the number of ordinals the exam occupies under opts.
func ExamSpan(exam Exam, opts Options) int {
	if !opts.SpanDuration || exam.Duration < 1 {
		return 1
	}
	return exam.Duration
}

func newSolver(ctx context.Context, snap Snapshot, opts Options) *solver {
	rooms := make([]Room, len(snap.Rooms))
	copy(rooms, snap.Rooms)
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Capacity == rooms[j].Capacity {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Capacity < rooms[j].Capacity
	})

	budget := opts.NodeBudget
	if budget <= 0 {
		budget = DefaultNodeBudget
	}

	n := len(snap.Exams)
	s := &solver{
		ctx:         ctx,
		grid:        snap.Grid,
		exams:       snap.Exams,
		rooms:       rooms,
		spans:       make([]int, n),
		rank:        make([]int, n),
		conflicts:   BuildConflicts(snap.Exams),
		dom:         make([][]bitset, n),
		size:        make([]int, n),
		initialSize: make([]int, n),
		placed:      make([]bool, n),
		budget:      budget,
	}

	avail := BuildAvailability(rooms, snap.Grid)
	L := snap.Grid.Len()
	for e, exam := range snap.Exams {
		span := ExamSpan(exam, opts)
		s.spans[e] = span
		s.dom[e] = make([]bitset, len(rooms))
		for r, room := range rooms {
			row := newBitset(L)
			s.dom[e][r] = row
			if room.Capacity < exam.Students {
				continue
			}
			for t := 0; t+span <= L; t++ {
				if avail.usableSpan(r, t, span) {
					row.set(t)
				}
			}
			s.size[e] += row.count()
		}
		s.initialSize[e] = s.size[e]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return s.exams[order[i]].ID < s.exams[order[j]].ID
	})
	for pos, e := range order {
		s.rank[e] = pos
	}
	return s
}

func (s *solver) precheck() error {
	var empty []string
	for e, exam := range s.exams {
		if s.size[e] == 0 {
			empty = append(empty, exam.ID)
		}
	}
	if len(empty) > 0 {
		return &InfeasibilityError{Kind: InfeasibleExam, Exams: empty}
	}

	cohorts := s.conflicts.cohorts
	codes := make([]string, 0, len(cohorts))
	for code := range cohorts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	L := s.grid.Len()
	for _, code := range codes {
		members := cohorts[code]
		if len(members) < 2 {
			continue
		}
		need := 0
		coverage := newBitset(L)
		for _, e := range members {
			need += s.spans[e]
			for _, row := range s.dom[e] {
				for t := row.next(0); t >= 0; t = row.next(t + 1) {
					for k := 0; k < s.spans[e]; k++ {
						coverage.set(t + k)
					}
				}
			}
		}
		if need > coverage.count() {
			ids := make([]string, 0, len(members))
			for _, e := range members {
				ids = append(ids, s.exams[e].ID)
			}
			return &InfeasibilityError{Kind: InfeasibleCohort, Cohort: code, Exams: ids}
		}
	}
	return nil
}

// selectExam picks the unplaced exam with the fewest remaining candidates.
func (s *solver) selectExam() int {
	best := -1
	for e := range s.exams {
		if s.placed[e] {
			continue
		}
		if best < 0 || s.less(e, best) {
			best = e
		}
	}
	return best
}

func (s *solver) less(a, b int) bool {
	if s.size[a] != s.size[b] {
		return s.size[a] < s.size[b]
	}
	if s.initialSize[a] != s.initialSize[b] {
		return s.initialSize[a] < s.initialSize[b]
	}
	return s.rank[a] < s.rank[b]
}

func (s *solver) search(depth int) bool {
	if depth == len(s.exams) {
		return true
	}
	e := s.selectExam()
	L := s.grid.Len()
	for t := 0; t < L; t++ {
		for r := range s.rooms {
			if !s.dom[e][r].has(t) {
				continue
			}
			if !s.tick() {
				return false
			}
			mark := len(s.trail)
			s.placed[e] = true
			s.current = append(s.current, Assignment{
				ExamID:   s.exams[e].ID,
				RoomID:   s.rooms[r].ID,
				RoomName: s.rooms[r].Name,
				Ordinal:  t,
				Span:     s.spans[e],
			})
			if s.forwardCheck(e, r, t) {
				s.recordDepth(depth + 1)
				if s.search(depth + 1) {
					return true
				}
				if s.abort != nil {
					return false
				}
			}
			s.undo(mark)
			s.current = s.current[:len(s.current)-1]
			s.placed[e] = false
			s.stats.Backtracks++
		}
	}
	return false
}

func (s *solver) tick() bool {
	s.stats.Nodes++
	if s.stats.Nodes > s.budget {
		s.stats.Nodes--
		s.abort = errNodeBudget
		return false
	}
	if s.stats.Nodes%cancelCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			s.abort = err
			return false
		}
	}
	return true
}

// forwardCheck removes candidates made invalid by placing exam e in room r at start.
// It returns false as soon as an unplaced exam runs out of candidates.
func (s *solver) forwardCheck(e, r, start int) bool {
	L := s.grid.Len()
	span := s.spans[e]
	neighbors := s.conflicts.neighbors(e)
	for f := range s.exams {
		if f == e || s.placed[f] {
			continue
		}
		lo := start - s.spans[f] + 1
		if lo < 0 {
			lo = 0
		}
		hi := start + span - 1
		if hi >= L {
			hi = L - 1
		}
		for t := lo; t <= hi; t++ {
			s.prune(f, r, t)
		}
		if neighbors.has(f) {
			for rr := range s.rooms {
				if rr == r {
					continue
				}
				for t := lo; t <= hi; t++ {
					s.prune(f, rr, t)
				}
			}
		}
		if s.size[f] == 0 {
			return false
		}
	}
	return true
}

func (s *solver) prune(e, r, t int) {
	row := s.dom[e][r]
	if !row.has(t) {
		return
	}
	row.clear(t)
	s.size[e]--
	s.trail = append(s.trail, trailEntry{exam: e, room: r, start: t})
}

func (s *solver) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		entry := s.trail[i]
		s.dom[entry.exam][entry.room].set(entry.start)
		s.size[entry.exam]++
	}
	s.trail = s.trail[:mark]
}

func (s *solver) recordDepth(depth int) {
	if depth <= s.stats.MaxDepth {
		return
	}
	s.stats.MaxDepth = depth
	s.best = sortAssignments(s.current)
}

func sortAssignments(in []Assignment) []Assignment {
	out := make([]Assignment, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		if out[i].RoomName != out[j].RoomName {
			return out[i].RoomName < out[j].RoomName
		}
		return out[i].ExamID < out[j].ExamID
	})
	return out
}
