// Package vote converts toggle-style like/dislike gestures into signed
// score deltas and tracks each client's asserted vote per refinement.
package vote

import (
	"fmt"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/models"
)

// Value is a client's asserted vote on one refinement: +1, 0 or -1.
type Value int

const (
	Dislike Value = -1
	Neutral Value = 0
	Like    Value = 1
)

// Toggle applies a gesture to the current vote value. Repeating the same
// gesture retracts it; switching sign both removes the old vote and adds
// the new one, so the delta spans two units.
//
//	delta = requested − current
//	next  = 0 when requested == current, else requested
func Toggle(current, requested Value) (next Value, delta int) {
	if requested != Like && requested != Dislike {
		return current, 0
	}
	if requested == current {
		return Neutral, -int(requested)
	}
	return requested, int(requested) - int(current)
}

// Ledger is the client-local map of asserted votes keyed by
// routeId:refinementId. It outlives a session via the persister, so
// refreshing a client never loses toggle state. Votes on different
// refinements of the same route are independent entries.
type Ledger struct {
	values    map[string]Value
	persister Persister
}

// Persister durably stores the vote map between sessions.
type Persister interface {
	LoadVotes() (map[string]int, error)
	SaveVotes(map[string]int) error
}

// NewLedger loads the persisted vote map. A missing or unreadable map
// starts empty rather than failing: losing toggle state is recoverable,
// refusing to start is not.
func NewLedger(p Persister) *Ledger {
	l := &Ledger{values: make(map[string]Value), persister: p}
	if p == nil {
		return l
	}
	stored, err := p.LoadVotes()
	if err != nil {
		return l
	}
	for k, v := range stored {
		l.values[k] = Value(v)
	}
	return l
}

// Get returns the client's current vote for a refinement.
func (l *Ledger) Get(routeID, refinementID string) Value {
	return l.values[models.VoteKey(routeID, refinementID)]
}

// Apply runs the toggle machine for a gesture against the stored state,
// persists the new state, and returns the signed delta to send to the
// authority.
func (l *Ledger) Apply(routeID, refinementID string, requested Value) (delta int, err error) {
	key := models.VoteKey(routeID, refinementID)
	next, delta := Toggle(l.values[key], requested)
	if next == Neutral {
		delete(l.values, key)
	} else {
		l.values[key] = next
	}
	if l.persister != nil {
		if err := l.persister.SaveVotes(l.snapshot()); err != nil {
			return delta, fmt.Errorf("vote: persist ledger: %w", err)
		}
	}
	return delta, nil
}

// Revert undoes a previously applied gesture after the authority and the
// local fallback both failed, restoring the prior value.
func (l *Ledger) Revert(routeID, refinementID string, prior Value) error {
	key := models.VoteKey(routeID, refinementID)
	if prior == Neutral {
		delete(l.values, key)
	} else {
		l.values[key] = prior
	}
	if l.persister == nil {
		return nil
	}
	return l.persister.SaveVotes(l.snapshot())
}

func (l *Ledger) snapshot() map[string]int {
	out := make(map[string]int, len(l.values))
	for k, v := range l.values {
		out[k] = int(v)
	}
	return out
}

// ApplyLocal adjusts the targeted refinement's tally directly on a cached
// route. This is the degraded-mode fallback when the authority is
// unreachable: a best-effort approximation, not a merge — the remote
// response always overwrites it once connectivity returns.
func ApplyLocal(route models.Route, refinementID string, delta int) (models.Route, error) {
	out := route.Clone()
	for i := range out.RefinementHistory {
		if out.RefinementHistory[i].ID == refinementID {
			out.RefinementHistory[i].Score += delta
			out.RefinementHistory[i].Votes++
			if out.RefinementHistory[i].Votes < 0 {
				out.RefinementHistory[i].Votes = 0
			}
			return out, nil
		}
	}
	return models.Route{}, fmt.Errorf("%w: refinement %s on route %s", apperr.ErrNotFound, refinementID, route.ID)
}
