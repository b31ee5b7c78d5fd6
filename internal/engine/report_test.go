package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(violations []InvariantViolation) []InvariantKind {
	out := make([]InvariantKind, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Kind)
	}
	return out
}

func TestRecordsOrdering(t *testing.T) {
	records := Records(Schedule{Assignments: []Assignment{
		{ExamID: "E9", RoomName: "IRAN2", Ordinal: 3},
		{ExamID: "E2", RoomName: "IRAN1", Ordinal: 3},
		{ExamID: "E1", RoomName: "IRAN1", Ordinal: 0},
	}})

	assert.Equal(t, []Record{
		{ExamID: "E1", RoomName: "IRAN1", Ordinal: 0},
		{ExamID: "E2", RoomName: "IRAN1", Ordinal: 3},
		{ExamID: "E9", RoomName: "IRAN2", Ordinal: 3},
	}, records)
}

func TestCheckConflictsReportsClash(t *testing.T) {
	exams := threeExamSnapshot().Exams
	violations := CheckConflicts([]Assignment{
		{ExamID: "E2", RoomID: "R1", Ordinal: 1},
		{ExamID: "E1", RoomID: "R2", Ordinal: 1},
		{ExamID: "E3", RoomID: "R1", Ordinal: 0},
		{ExamID: "ghost", RoomID: "R1", Ordinal: 1},
	}, exams)

	assert.Equal(t, []Violation{{ExamA: "E1", ExamB: "E2", Code: "GL-L1"}}, violations)
}

func TestCheckConflictsSpannedOverlap(t *testing.T) {
	exams := []Exam{
		{ID: "A", Departments: []string{"GL-L1"}},
		{ID: "B", Departments: []string{"GL-L1"}},
	}

	assert.Len(t, CheckConflicts([]Assignment{
		{ExamID: "A", Ordinal: 0, Span: 2},
		{ExamID: "B", Ordinal: 1},
	}, exams), 1)
	assert.Empty(t, CheckConflicts([]Assignment{
		{ExamID: "A", Ordinal: 0, Span: 2},
		{ExamID: "B", Ordinal: 2},
	}, exams))
}

func TestCheckConflictsExamListedTwice(t *testing.T) {
	exams := threeExamSnapshot().Exams

	violations := CheckConflicts([]Assignment{
		{ExamID: "E1", RoomID: "R1", Ordinal: 1},
		{ExamID: "E1", RoomID: "R1", Ordinal: 0},
		{ExamID: "E2", RoomID: "R2", Ordinal: 1},
	}, exams)
	assert.Equal(t, []Violation{{ExamA: "E1", ExamB: "E2", Code: "GL-L1"}}, violations)

	violations = CheckConflicts([]Assignment{
		{ExamID: "E2", RoomID: "R2", Ordinal: 0},
		{ExamID: "E1", RoomID: "R1", Ordinal: 0},
		{ExamID: "E1", RoomID: "R2", Ordinal: 0},
	}, exams)
	assert.Equal(t, []Violation{{ExamA: "E1", ExamB: "E2", Code: "GL-L1"}}, violations)
}

func TestVerifyDuplicateExamKeepsCohortClash(t *testing.T) {
	got := Verify([]Assignment{
		{ExamID: "E1", RoomID: "R1", Ordinal: 1},
		{ExamID: "E1", RoomID: "R1", Ordinal: 0},
		{ExamID: "E2", RoomID: "R2", Ordinal: 1},
		{ExamID: "E3", RoomID: "R2", Ordinal: 0},
	}, threeExamSnapshot())

	assert.Equal(t, []InvariantKind{DuplicateExam, CohortClash}, kinds(got))
	assert.Equal(t, []string{"E1", "E2"}, got[1].ExamIDs)
}

func TestSolvedScheduleHasNoConflicts(t *testing.T) {
	snap := randomSnapshot(3)
	result, err := Solve(context.Background(), snap, Options{})
	require.NoError(t, err)

	assert.Empty(t, CheckConflicts(result.Schedule.Assignments, snap.Exams))
	assert.Empty(t, Verify(result.Schedule.Assignments, snap))
}

func TestVerifyDetectsBrokenSchedules(t *testing.T) {
	snap := threeExamSnapshot()
	snap.Rooms = append(snap.Rooms, Room{
		ID: "R3", Name: "Matin", Capacity: 200, Availability: 100,
		Restrictions: Restrictions{Daytime: MorningOnly},
	})

	cases := []struct {
		name        string
		assignments []Assignment
		want        InvariantKind
	}{
		{
			name: "room resolved by name",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R1", Ordinal: 1},
				{ExamID: "E3", RoomName: "R2", Ordinal: 0, RoomID: "unknown-id"},
			},
			want: "",
		},
		{
			name: "double booking",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R2", Ordinal: 1},
				{ExamID: "E3", RoomID: "R1", Ordinal: 0},
			},
			want: RoomDoubleBook,
		},
		{
			name: "unusable slot",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R3", Ordinal: 1},
				{ExamID: "E3", RoomID: "R2", Ordinal: 0},
			},
			want: UnusableSlot,
		},
		{
			name: "cohort clash",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R2", Ordinal: 0},
				{ExamID: "E3", RoomID: "R1", Ordinal: 1},
			},
			want: CohortClash,
		},
		{
			name: "missing exam",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R1", Ordinal: 1},
			},
			want: MissingExam,
		},
		{
			name: "unknown exam",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R1", Ordinal: 1},
				{ExamID: "E3", RoomID: "R2", Ordinal: 0},
				{ExamID: "E4", RoomID: "R2", Ordinal: 1},
			},
			want: UnknownExam,
		},
		{
			name: "ordinal out of range",
			assignments: []Assignment{
				{ExamID: "E1", RoomID: "R1", Ordinal: 0},
				{ExamID: "E2", RoomID: "R1", Ordinal: 2},
				{ExamID: "E3", RoomID: "R2", Ordinal: 0},
			},
			want: OrdinalOutOfRange,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Verify(tc.assignments, snap)
			if tc.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, []InvariantKind{tc.want}, kinds(got))
		})
	}
}

func TestVerifyOverCapacity(t *testing.T) {
	snap := threeExamSnapshot()
	snap.Exams[2].Students = 90

	got := Verify([]Assignment{
		{ExamID: "E1", RoomID: "R1", Ordinal: 0},
		{ExamID: "E2", RoomID: "R1", Ordinal: 1},
		{ExamID: "E3", RoomID: "R2", Ordinal: 0},
	}, snap)

	require.Len(t, got, 1)
	assert.Equal(t, OverCapacity, got[0].Kind)
	assert.Equal(t, "R2", got[0].RoomID)
	assert.Equal(t, "90 students, capacity 80", got[0].Detail)
}
