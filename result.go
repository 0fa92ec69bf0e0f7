package schemarecon

import (
	"fmt"
	"strings"
	"time"
)

// Status is what happened to a single operation during reconciliation.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusApplied   Status = "applied"
	StatusTolerated Status = "tolerated"
	StatusFailed    Status = "failed"
)

// Outcome records the fate of one operation.
type Outcome struct {
	Operation Operation
	Status    Status
	// Err is the driver error for tolerated and failed operations.
	Err      error
	Duration time.Duration
}

// Result is returned by [Reconciler.Reconcile]. Operations appear in exactly
// one of Skipped, Applied, Tolerated or Failed, in the order they ran.
// Operations after a failure are not attempted and appear nowhere.
type Result struct {
	Target string
	// AlreadyApplied is true when the ledger already held an entry for the
	// target and no operation was checked.
	AlreadyApplied bool
	Skipped        []Outcome
	Applied        []Outcome
	Tolerated      []Outcome
	Failed         []Outcome
	// LedgerWritten is true when the ledger entry was created or revived by
	// this run.
	LedgerWritten bool
}

// Attempted is the number of operations whose predicate was evaluated.
func (r Result) Attempted() int {
	return len(r.Skipped) + len(r.Applied) + len(r.Tolerated) + len(r.Failed)
}

// Succeeded reports whether every operation reached its target state.
func (r Result) Succeeded() bool {
	return len(r.Failed) == 0
}

func (r *Result) record(o Outcome) {
	switch o.Status {
	case StatusSkipped:
		r.Skipped = append(r.Skipped, o)
	case StatusApplied:
		r.Applied = append(r.Applied, o)
	case StatusTolerated:
		r.Tolerated = append(r.Tolerated, o)
	case StatusFailed:
		r.Failed = append(r.Failed, o)
	}
}

// Summary is a single-line description of the result, also stored in the
// logs column of the ledger.
func (r Result) Summary() string {
	if r.AlreadyApplied {
		return fmt.Sprintf("%s: already applied", r.Target)
	}
	parts := []string{
		fmt.Sprintf("%d applied", len(r.Applied)),
		fmt.Sprintf("%d skipped", len(r.Skipped)),
	}
	if len(r.Tolerated) > 0 {
		parts = append(parts, fmt.Sprintf("%d tolerated", len(r.Tolerated)))
	}
	if len(r.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(r.Failed)))
	}
	return fmt.Sprintf("%s: %s", r.Target, strings.Join(parts, ", "))
}

// OperationStatus is the state of one operation as reported by
// [Reconciler.Status].
type OperationStatus struct {
	Operation Operation
	Satisfied bool
}
