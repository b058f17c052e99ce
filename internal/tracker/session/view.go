// Package session holds the per-visitor view state of the tracker page.
//
// A View moves through pending input, searching, and one of the terminal
// phases. Every submission gets a ticket; only the latest ticket may settle
// the view, so a slow search can never overwrite the result of a newer one.
package session

import (
	"context"
	"sync"
	"time"

	"application-tracker/internal/common/errors"
	"application-tracker/internal/tracker/lookup"
)

type Phase int

const (
	PhasePending Phase = iota
	PhaseSearching
	PhaseFound
	PhaseNotFound
	PhaseDataUnavailable
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSearching:
		return "searching"
	case PhaseFound:
		return "found"
	case PhaseNotFound:
		return "not_found"
	case PhaseDataUnavailable:
		return "data_unavailable"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a copy of a View at one moment.
type State struct {
	Phase     Phase
	Query     lookup.Query
	Result    *lookup.Result
	Err       *errors.StandardError
	Seq       uint64
	UpdatedAt time.Time
}

// Searching reports whether a submission is still outstanding. The form's
// submit control is disabled while this holds.
func (s State) Searching() bool {
	return s.Phase == PhaseSearching
}

// Advisory reports whether the not-found message should be shown. An empty
// dataset and a missing row read the same to the visitor.
func (s State) Advisory() bool {
	return s.Phase == PhaseNotFound || s.Phase == PhaseDataUnavailable
}

// Ticket identifies one submission.
type Ticket struct {
	Seq uint64
	ctx context.Context
}

// Context is cancelled once a newer submission supersedes this one.
func (t Ticket) Context() context.Context {
	return t.ctx
}

type View struct {
	mu     sync.Mutex
	seq    uint64
	state  State
	cancel context.CancelFunc
}

func NewView() *View {
	return &View{state: State{Phase: PhasePending, UpdatedAt: time.Now()}}
}

// Begin records a submission and marks the view as searching. The search for
// any earlier ticket has its context cancelled.
func (v *View) Begin(ctx context.Context, q lookup.Query) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.seq++

	v.state = State{
		Phase:     PhaseSearching,
		Query:     q,
		Seq:       v.seq,
		UpdatedAt: time.Now(),
	}
	return Ticket{Seq: v.seq, ctx: searchCtx}
}

// Complete settles the view with the outcome of ticket t. It returns false and
// leaves the view untouched when t has been superseded.
func (v *View) Complete(t Ticket, result *lookup.Result, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.Seq != v.seq {
		return false
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}

	next := State{
		Query:     v.state.Query,
		Seq:       v.seq,
		UpdatedAt: time.Now(),
	}
	switch {
	case err != nil:
		next.Phase = PhaseError
		next.Err = errors.Normalize(err)
	case result == nil:
		next.Phase = PhaseNotFound
	default:
		r := *result
		next.Result = &r
		switch r.Outcome {
		case lookup.OutcomeFound:
			next.Phase = PhaseFound
		case lookup.OutcomeDataUnavailable:
			next.Phase = PhaseDataUnavailable
		default:
			next.Phase = PhaseNotFound
		}
	}
	v.state = next
	return true
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Reset returns the view to pending input and abandons any search in flight.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.seq++
	v.state = State{Phase: PhasePending, Seq: v.seq, UpdatedAt: time.Now()}
}

// SearchFunc performs one lookup.
type SearchFunc func(ctx context.Context, q lookup.Query) (*lookup.Result, error)

// Run begins a submission, performs it and settles the view. The returned
// state is the view after settling; applied is false when a newer submission
// won, in which case the state reflects that newer submission.
func (v *View) Run(ctx context.Context, q lookup.Query, search SearchFunc) (state State, applied bool) {
	ticket := v.Begin(ctx, q)
	result, err := search(ticket.Context(), q)
	applied = v.Complete(ticket, result, err)
	return v.Snapshot(), applied
}
