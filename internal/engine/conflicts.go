package engine

import (
	"sort"
	"strings"
)

// ConflictPair is two exams that share at least one department code.
type ConflictPair struct {
	ExamA string
	ExamB string
	Codes []string
}

// ConflictGraph is the symmetric, irreflexive "cannot share a timeslot" relation.
type ConflictGraph struct {
	exams   []Exam
	index   map[string]int
	cohorts map[string][]int
	adj     []bitset
	shared  map[[2]int][]string
}

// BuildConflicts indexes exams by department code and links every pair in a group.
// Cost is driven by cohort sizes rather than the square of the exam count.
func BuildConflicts(exams []Exam) *ConflictGraph {
	g := &ConflictGraph{
		exams:   exams,
		index:   make(map[string]int, len(exams)),
		cohorts: make(map[string][]int),
		adj:     make([]bitset, len(exams)),
		shared:  make(map[[2]int][]string),
	}
	for i, exam := range exams {
		g.index[exam.ID] = i
		g.adj[i] = newBitset(len(exams))
		seen := make(map[string]struct{}, len(exam.Departments))
		for _, raw := range exam.Departments {
			code := normalizeCode(raw)
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			g.cohorts[code] = append(g.cohorts[code], i)
		}
	}

	codes := make([]string, 0, len(g.cohorts))
	for code := range g.cohorts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		members := g.cohorts[code]
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				a, b := members[x], members[y]
				g.adj[a].set(b)
				g.adj[b].set(a)
				key := pairKey(a, b)
				g.shared[key] = append(g.shared[key], code)
			}
		}
	}
	return g
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Conflicts reports whether the two exams share a department code.
// An exam never conflicts with itself.
func (g *ConflictGraph) Conflicts(a, b string) bool {
	i, okA := g.index[a]
	j, okB := g.index[b]
	if !okA || !okB || i == j {
		return false
	}
	return g.adj[i].has(j)
}

// Shared returns the department codes the two exams have in common, sorted.
func (g *ConflictGraph) Shared(a, b string) []string {
	i, okA := g.index[a]
	j, okB := g.index[b]
	if !okA || !okB || i == j {
		return nil
	}
	return g.shared[pairKey(i, j)]
}

// Neighbors lists exams conflicting with examID in input order.
func (g *ConflictGraph) Neighbors(examID string) []string {
	i, ok := g.index[examID]
	if !ok {
		return nil
	}
	var out []string
	for _, j := range g.adj[i].members() {
		out = append(out, g.exams[j].ID)
	}
	return out
}

// Pairs lists every conflicting pair ordered by input position.
func (g *ConflictGraph) Pairs() []ConflictPair {
	keys := make([][2]int, 0, len(g.shared))
	for k := range g.shared {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] == keys[j][0] {
			return keys[i][1] < keys[j][1]
		}
		return keys[i][0] < keys[j][0]
	})
	out := make([]ConflictPair, 0, len(keys))
	for _, k := range keys {
		out = append(out, ConflictPair{
			ExamA: g.exams[k[0]].ID,
			ExamB: g.exams[k[1]].ID,
			Codes: g.shared[k],
		})
	}
	return out
}

// Cohorts maps each normalized department code to its exam ids.
func (g *ConflictGraph) Cohorts() map[string][]string {
	out := make(map[string][]string, len(g.cohorts))
	for code, members := range g.cohorts {
		ids := make([]string, 0, len(members))
		for _, i := range members {
			ids = append(ids, g.exams[i].ID)
		}
		out[code] = ids
	}
	return out
}

func (g *ConflictGraph) neighbors(i int) bitset {
	return g.adj[i]
}
