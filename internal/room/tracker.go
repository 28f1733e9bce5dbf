package room

import (
	"fmt"
	"slices"
	"sync"
)

// Tracker holds the connection state machine for the local peer. It is
// driven by provider events on the game loop and read from anywhere.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

func NewTracker() *Tracker {
	return &Tracker{status: Status{State: Disconnected}}
}

// Status returns a copy of the current status.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.status
	s.Players = slices.Clone(s.Players)
	if s.Room != nil {
		r := *s.Room
		r.Players = slices.Clone(r.Players)
		s.Room = &r
	}
	return s
}

// Transition moves to next. Moving to the current state is a no-op. err is
// recorded as the last error when next is Errored.
func (t *Tracker) Transition(next ConnState, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.status.State
	if cur == next {
		if next == Errored && err != nil {
			t.status.LastError = err.Error()
		}
		return nil
	}
	if !cur.CanTransition(next) {
		return fmt.Errorf("connection cannot go from %s to %s", cur, next)
	}

	t.status.State = next
	switch next {
	case Errored:
		if err != nil {
			t.status.LastError = err.Error()
		}
	case Connecting:
		t.status.LastError = ""
	case Disconnected:
		t.status.Room = nil
		t.status.Players = nil
	}
	return nil
}

// SetRoom records the room the peer belongs to.
func (t *Tracker) SetRoom(d Data) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d.Players = slices.Clone(d.Players)
	t.status.Room = &d
	t.status.Players = slices.Clone(d.Players)
}

// SetPlayers replaces the roster.
func (t *Tracker) SetPlayers(players []Player) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Players = slices.Clone(players)
	if t.status.Room != nil {
		t.status.Room.Players = slices.Clone(players)
	}
}

// ClearRoom forgets the room while keeping the connection state.
func (t *Tracker) ClearRoom() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Room = nil
	t.status.Players = nil
}

// Fail records err without requiring a state change.
func (t *Tracker) Fail(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastError = err.Error()
}
