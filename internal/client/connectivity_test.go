package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// flakyProbe fails while down is set.
type flakyProbe struct {
	down atomic.Bool
}

func (f *flakyProbe) probe(context.Context) error {
	if f.down.Load() {
		return errors.New("unreachable")
	}
	return nil
}

func waitFor(t *testing.T, ch chan ConnState, want bool) ConnState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state, ok := <-ch:
			if !ok {
				t.Fatal("subscriber channel closed")
			}
			if state.Connected == want {
				return state
			}
		case <-deadline:
			t.Fatalf("no transition to connected=%v", want)
		}
	}
}

func TestMonitorTwoFailureDebounce(t *testing.T) {
	p := &flakyProbe{}
	m := NewMonitor(p.probe, 10*time.Millisecond)
	defer m.Close()

	ch := m.Subscribe()

	p.down.Store(true)
	state := waitFor(t, ch, false)
	if state.Connected {
		t.Fatal("expected disconnected state")
	}

	p.down.Store(false)
	waitFor(t, ch, true)
}

func TestMonitorSingleBlipAbsorbed(t *testing.T) {
	var calls atomic.Int32
	probe := func(context.Context) error {
		// Fail exactly one probe.
		if calls.Add(1) == 1 {
			return errors.New("blip")
		}
		return nil
	}
	m := NewMonitor(probe, 10*time.Millisecond)
	defer m.Close()

	ch := m.Subscribe()
	select {
	case state := <-ch:
		t.Fatalf("unexpected transition %+v after a single blip", state)
	case <-time.After(100 * time.Millisecond):
	}
	if !m.State().Connected {
		t.Error("single failed probe should not flip the state")
	}
}

func TestMonitorNotifiesOnlyOnTransition(t *testing.T) {
	p := &flakyProbe{}
	p.down.Store(true)
	m := NewMonitor(p.probe, 10*time.Millisecond)
	defer m.Close()

	ch := m.Subscribe()
	waitFor(t, ch, false)

	// Still down: repeated failing probes must not re-notify.
	select {
	case state := <-ch:
		t.Fatalf("duplicate notification %+v while state unchanged", state)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorUnsubscribeCloses(t *testing.T) {
	m := NewMonitor(func(context.Context) error { return nil }, time.Hour)
	defer m.Close()

	ch := m.Subscribe()
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}
}
