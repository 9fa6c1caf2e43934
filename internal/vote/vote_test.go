package vote

import (
	"errors"
	"testing"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/models"
)

func TestToggleTable(t *testing.T) {
	cases := []struct {
		name      string
		current   Value
		requested Value
		wantNext  Value
		wantDelta int
	}{
		{"like from neutral", Neutral, Like, Like, 1},
		{"unlike", Like, Like, Neutral, -1},
		{"like over dislike", Dislike, Like, Like, 2},
		{"dislike from neutral", Neutral, Dislike, Dislike, -1},
		{"undislike", Dislike, Dislike, Neutral, 1},
		{"dislike over like", Like, Dislike, Dislike, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, delta := Toggle(tc.current, tc.requested)
			if next != tc.wantNext || delta != tc.wantDelta {
				t.Errorf("Toggle(%d, %d) = (%d, %d), want (%d, %d)",
					tc.current, tc.requested, next, delta, tc.wantNext, tc.wantDelta)
			}
		})
	}
}

func TestToggleDoubleLikeNetsZero(t *testing.T) {
	next, d1 := Toggle(Neutral, Like)
	next, d2 := Toggle(next, Like)
	if next != Neutral {
		t.Errorf("state after like+like = %d, want neutral", next)
	}
	if d1+d2 != 0 {
		t.Errorf("net delta = %d, want 0", d1+d2)
	}
}

type memPersister struct {
	votes map[string]int
	fail  bool
}

func (m *memPersister) LoadVotes() (map[string]int, error) {
	if m.fail {
		return nil, errors.New("boom")
	}
	return m.votes, nil
}

func (m *memPersister) SaveVotes(v map[string]int) error {
	if m.fail {
		return errors.New("boom")
	}
	m.votes = v
	return nil
}

func TestLedgerPersistsAcrossSessions(t *testing.T) {
	p := &memPersister{}
	l := NewLedger(p)
	if _, err := l.Apply("route-1", "ref-1", Like); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// A new ledger over the same persister sees the vote.
	l2 := NewLedger(p)
	if got := l2.Get("route-1", "ref-1"); got != Like {
		t.Errorf("restored vote = %d, want like", got)
	}
}

func TestLedgerIndependentRefinements(t *testing.T) {
	l := NewLedger(&memPersister{})
	_, _ = l.Apply("route-1", "ref-1", Like)
	_, _ = l.Apply("route-1", "ref-2", Dislike)

	if l.Get("route-1", "ref-1") != Like || l.Get("route-1", "ref-2") != Dislike {
		t.Error("votes on sibling refinements should not interfere")
	}
}

func TestLedgerRevert(t *testing.T) {
	l := NewLedger(&memPersister{})
	_, _ = l.Apply("r", "f", Like)
	if err := l.Revert("r", "f", Neutral); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if l.Get("r", "f") != Neutral {
		t.Error("revert did not restore prior state")
	}
}

func TestApplyLocal(t *testing.T) {
	route := models.Route{
		ID: "r",
		RefinementHistory: []models.Refinement{
			{ID: "f", Score: 2, Votes: 2},
		},
	}
	got, err := ApplyLocal(route, "f", -1)
	if err != nil {
		t.Fatalf("ApplyLocal: %v", err)
	}
	if got.RefinementHistory[0].Score != 1 || got.RefinementHistory[0].Votes != 3 {
		t.Errorf("tally = %d/%d, want 1/3", got.RefinementHistory[0].Score, got.RefinementHistory[0].Votes)
	}
	// Input untouched.
	if route.RefinementHistory[0].Score != 2 {
		t.Error("ApplyLocal mutated its input")
	}
}

func TestApplyLocalMissingRefinement(t *testing.T) {
	_, err := ApplyLocal(models.Route{ID: "r"}, "ghost", 1)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
