package multiplayer

import (
	"time"

	"github.com/pixil98/go-park/internal/park"
)

type PeerOpt func(*Peer)

// WithJoinTimeout bounds how long JoinRoom waits for a member to answer.
func WithJoinTimeout(d time.Duration) PeerOpt {
	return func(p *Peer) {
		p.joinTimeout = d
	}
}

// WithSnapshotSource sets where the peer reads the current park when a new
// member asks for it. Without a source the last snapshot seen is used.
func WithSnapshotSource(fn func() park.WorldState) PeerOpt {
	return func(p *Peer) {
		p.source = fn
	}
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) PeerOpt {
	return func(p *Peer) {
		p.bufferSize = n
	}
}

// WithPlayerID fixes the local player's id instead of generating one.
func WithPlayerID(id string) PeerOpt {
	return func(p *Peer) {
		p.self.ID = id
	}
}
