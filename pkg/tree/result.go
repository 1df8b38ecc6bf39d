package tree

import (
	"errors"
	"fmt"

	"tableflip.dev/tabtree/pkg/registry"
)

// Result is the outcome of a tree mutation. Stale references and invalid
// requests are reported here and never as errors.
type Result int

const (
	// Applied means the forest changed.
	Applied Result = iota
	// Unchanged means the request was valid and already satisfied.
	Unchanged
	// SkippedStale means a referenced tab no longer exists.
	SkippedStale
	// RejectedInvalid means the request would break the forest (a cycle,
	// a pinned tab, tabs of different windows).
	RejectedInvalid
	// Failed means the registry refused part of the operation.
	Failed
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	case SkippedStale:
		return "skipped-stale"
	case RejectedInvalid:
		return "rejected-invalid"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// OK reports whether the forest is in the requested state.
func (r Result) OK() bool {
	return r == Applied || r == Unchanged
}

// ErrVanished is recorded when a tab disappears while it is being moved.
var ErrVanished = errors.New("tree: tab vanished during move")

// MoveFailure records one registry move that did not happen.
type MoveFailure struct {
	Tab registry.TabID
	Err error
}

// MoveReport is the outcome of a subtree move.
type MoveReport struct {
	Result   Result
	Moved    []registry.TabID
	Failures []MoveFailure
}

// Err joins the recorded failures.
func (r MoveReport) Err() error {
	var errs []error
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("move %s: %w", f.Tab, f.Err))
	}
	return errors.Join(errs...)
}
