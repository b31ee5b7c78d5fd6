package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sessionExams() []Exam {
	return []Exam{
		{ID: "E1", Departments: []string{"GL-L1"}},
		{ID: "E2", Departments: []string{"GL-L1"}},
		{ID: "E3", Departments: []string{"IM-L2"}},
		{ID: "E4", Departments: []string{"GL-L2", "IM-L2"}},
		{ID: "E5", Departments: []string{"SI-L3"}},
	}
}

func TestConflictGraphSymmetricAndIrreflexive(t *testing.T) {
	exams := sessionExams()
	graph := BuildConflicts(exams)

	for _, a := range exams {
		assert.False(t, graph.Conflicts(a.ID, a.ID), "exam %s must not conflict with itself", a.ID)
		for _, b := range exams {
			assert.Equal(t, graph.Conflicts(a.ID, b.ID), graph.Conflicts(b.ID, a.ID))
		}
	}
	assert.True(t, graph.Conflicts("E1", "E2"))
	assert.True(t, graph.Conflicts("E3", "E4"))
	assert.False(t, graph.Conflicts("E1", "E3"))
	assert.False(t, graph.Conflicts("E5", "E1"))
	assert.False(t, graph.Conflicts("E1", "missing"))
}

func TestConflictGraphSharedCodes(t *testing.T) {
	graph := BuildConflicts([]Exam{
		{ID: "A", Departments: []string{"GL-L1", "IM-L2"}},
		{ID: "B", Departments: []string{" im-l2 ", "GL-L1", "GL-L1"}},
	})

	assert.Equal(t, []string{"GL-L1", "IM-L2"}, graph.Shared("A", "B"))
	assert.Equal(t, graph.Shared("A", "B"), graph.Shared("B", "A"))
}

func TestConflictGraphPairsAndNeighbors(t *testing.T) {
	graph := BuildConflicts(sessionExams())

	assert.Equal(t, []ConflictPair{
		{ExamA: "E1", ExamB: "E2", Codes: []string{"GL-L1"}},
		{ExamA: "E3", ExamB: "E4", Codes: []string{"IM-L2"}},
	}, graph.Pairs())
	assert.Equal(t, []string{"E2"}, graph.Neighbors("E1"))
	assert.Empty(t, graph.Neighbors("E5"))
}

func TestConflictGraphCohorts(t *testing.T) {
	cohorts := BuildConflicts(sessionExams()).Cohorts()

	assert.Equal(t, []string{"E1", "E2"}, cohorts["GL-L1"])
	assert.Equal(t, []string{"E3", "E4"}, cohorts["IM-L2"])
	assert.Equal(t, []string{"E4"}, cohorts["GL-L2"])
}
