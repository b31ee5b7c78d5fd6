package engine

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies why no schedule was produced.
type FailureKind string

const (
	// InfeasibleExam: an exam has no feasible (room, timeslot) before search.
	InfeasibleExam FailureKind = "INFEASIBLE_EXAM"
	// InfeasibleCohort: a department code needs more timeslots than exist.
	InfeasibleCohort FailureKind = "INFEASIBLE_COHORT"
	// SearchExhausted: the full search space holds no complete assignment.
	SearchExhausted FailureKind = "SEARCH_EXHAUSTED"
	// BudgetExceeded: search stopped on the node budget or the context.
	BudgetExceeded FailureKind = "BUDGET_EXCEEDED"
)

// InfeasibilityError is the structured failure returned by Solve.
type InfeasibilityError struct {
	Kind    FailureKind
	Exams   []string
	Cohort  string
	Partial []Assignment
	Nodes   int
	Cause   error
}

// Error implements error.
func (e *InfeasibilityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case InfeasibleExam:
		return fmt.Sprintf("no feasible room and timeslot for exam(s) %s", strings.Join(e.Exams, ", "))
	case InfeasibleCohort:
		return fmt.Sprintf("department %s has more exams than available timeslots (%s)", e.Cohort, strings.Join(e.Exams, ", "))
	case BudgetExceeded:
		if e.Cause != nil {
			return fmt.Sprintf("search aborted after %d nodes: %v", e.Nodes, e.Cause)
		}
		return fmt.Sprintf("search aborted after %d nodes: budget exceeded", e.Nodes)
	default:
		return fmt.Sprintf("no complete schedule found after %d nodes (deepest partial %d)", e.Nodes, len(e.Partial))
	}
}

// Unwrap exposes the context error behind a BudgetExceeded failure.
func (e *InfeasibilityError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Proven reports whether the failure proves no schedule exists.
func (e *InfeasibilityError) Proven() bool {
	return e != nil && e.Kind != BudgetExceeded
}

// AsInfeasibility extracts an *InfeasibilityError from err.
func AsInfeasibility(err error) (*InfeasibilityError, bool) {
	var target *InfeasibilityError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// SnapshotError reports a malformed input snapshot.
type SnapshotError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Message)
}
