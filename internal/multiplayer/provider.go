// Package multiplayer replicates player actions and park snapshots between
// peers sharing a room.
//
// Every peer runs the same reducer over its own copy of the park. Actions are
// broadcast without a global order, so two peers may briefly disagree;
// periodic full snapshots bring them back together. Whichever snapshot a peer
// receives last wins.
package multiplayer

import (
	"context"

	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
)

// Provider is a connection to a multiplayer room.
type Provider interface {
	// CreateRoom opens a new room seeded with initial and joins it.
	CreateRoom(ctx context.Context, name string, initial park.WorldState) (string, error)
	// JoinRoom joins an existing room. The room's current park arrives later
	// as a SnapshotReceived event.
	JoinRoom(ctx context.Context, code string) (room.Data, error)
	// DispatchAction sends a locally applied action to every other peer.
	DispatchAction(a actions.Action) error
	// UpdateGameState broadcasts a full snapshot to every other peer.
	UpdateGameState(w park.WorldState) error
	// Leave exits the current room. No event is emitted after it returns;
	// events already buffered in Events are left for the consumer to discard.
	Leave() error
	// Close leaves any room, releases the transport and closes Events.
	Close() error
	// Events delivers everything that happens asynchronously.
	Events() <-chan Event
	// Self is the local player.
	Self() room.Player
}

// Event is one of ConnectionChanged, PlayersChanged, ActionReceived,
// SnapshotReceived or ErrorOccurred.
type Event interface {
	isEvent()
}

// ConnectionChanged reports a change in the transport's connectivity.
type ConnectionChanged struct {
	State room.ConnState
	Err   error
}

// PlayersChanged carries the full roster after someone joins or leaves.
type PlayersChanged struct {
	Players []room.Player
}

// ActionReceived carries an action dispatched by another peer.
type ActionReceived struct {
	Action actions.Action
}

// SnapshotReceived carries a full park from another peer.
type SnapshotReceived struct {
	From  string
	State park.WorldState
}

// ErrorOccurred reports a failure that did not belong to any call.
type ErrorOccurred struct {
	Err error
}

func (ConnectionChanged) isEvent() {}
func (PlayersChanged) isEvent()    {}
func (ActionReceived) isEvent()    {}
func (SnapshotReceived) isEvent()  {}
func (ErrorOccurred) isEvent()     {}
