package room

import (
	"fmt"
	"slices"
)

// Player is a participant connected to a room.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joined_at"`
}

// Data describes a room as seen by its members.
type Data struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	CreatedAt int64    `json:"created_at"`
	Players   []Player `json:"players"`
}

// ConnState is the connection state of the local peer.
type ConnState string

const (
	Disconnected ConnState = "disconnected"
	Connecting   ConnState = "connecting"
	Connected    ConnState = "connected"
	Errored      ConnState = "error"
)

var connTransitions = map[ConnState][]ConnState{
	Disconnected: {Connecting},
	Connecting:   {Connected, Errored, Disconnected},
	Connected:    {Disconnected, Errored, Connecting},
	Errored:      {Connecting, Connected, Disconnected},
}

// Valid reports whether s is a known state.
func (s ConnState) Valid() bool {
	_, ok := connTransitions[s]
	return ok
}

// CanTransition reports whether the tracker may move from s to next.
func (s ConnState) CanTransition(next ConnState) bool {
	return slices.Contains(connTransitions[s], next)
}

// Status is a point-in-time view of the local peer's multiplayer session.
type Status struct {
	State     ConnState
	Room      *Data
	Players   []Player
	LastError string
}

func (s Status) String() string {
	if s.Room == nil {
		return string(s.State)
	}
	return fmt.Sprintf("%s (%s, %d players)", s.State, s.Room.Code, len(s.Players))
}
