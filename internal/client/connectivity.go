package client

import (
	"context"
	"sync/atomic"
	"time"
)

// ConnState is the coordinator's view of the remote store's reachability.
type ConnState struct {
	Connected   bool
	LastProbeAt time.Time
}

// Prober checks the remote store, typically by hitting its liveness route.
type Prober func(ctx context.Context) error

// Monitor polls a remote probe on a fixed interval and notifies subscribers
// on state transitions — not on every probe. Going down requires two
// consecutive failed probes so a single transient blip is absorbed; one
// success brings the state back up.
//
// Concurrency model follows the house broker style: a single internal loop
// goroutine owns all mutable state (subscribers, failure streak, current
// state) and public methods talk to it through channels.
type Monitor struct {
	probe    Prober
	interval time.Duration

	subscribeCh   chan chan ConnState
	unsubscribeCh chan chan ConnState
	stateReqCh    chan chan ConnState

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewMonitor creates a monitor that starts in the connected state and
// begins probing immediately.
func NewMonitor(probe Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	m := &Monitor{
		probe:         probe,
		interval:      interval,
		subscribeCh:   make(chan chan ConnState),
		unsubscribeCh: make(chan chan ConnState),
		stateReqCh:    make(chan chan ConnState),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	defer close(m.stopped)

	subscribers := make(map[chan ConnState]struct{})
	state := ConnState{Connected: true}
	failures := 0

	notify := func() {
		for ch := range subscribers {
			select {
			case ch <- state:
			default:
				// Subscriber buffer full; drop rather than block the loop.
			}
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			for ch := range subscribers {
				close(ch)
			}
			return

		case ch := <-m.subscribeCh:
			subscribers[ch] = struct{}{}

		case ch := <-m.unsubscribeCh:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}

		case resp := <-m.stateReqCh:
			resp <- state

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.interval)
			err := m.probe(ctx)
			cancel()

			state.LastProbeAt = time.Now()
			if err != nil {
				failures++
				if state.Connected && failures >= 2 {
					state.Connected = false
					notify()
				}
				continue
			}
			failures = 0
			if !state.Connected {
				state.Connected = true
				notify()
			}
		}
	}
}

// Subscribe registers a listener for state transitions. The returned
// channel is closed by Close or Unsubscribe.
func (m *Monitor) Subscribe() chan ConnState {
	ch := make(chan ConnState, 4)
	if m.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case m.subscribeCh <- ch:
	case <-m.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (m *Monitor) Unsubscribe(ch chan ConnState) {
	if m.closed.Load() {
		return
	}
	select {
	case m.unsubscribeCh <- ch:
	case <-m.stopped:
	}
}

// State returns the current connectivity state.
func (m *Monitor) State() ConnState {
	if m.closed.Load() {
		return ConnState{}
	}
	resp := make(chan ConnState, 1)
	select {
	case m.stateReqCh <- resp:
	case <-m.stopped:
		return ConnState{}
	}
	select {
	case s := <-resp:
		return s
	case <-m.stopped:
		return ConnState{}
	}
}

// Close stops the probe loop and closes all subscriber channels.
func (m *Monitor) Close() {
	if m.closed.CompareAndSwap(false, true) {
		close(m.stopCh)
	}
	<-m.stopped
}
