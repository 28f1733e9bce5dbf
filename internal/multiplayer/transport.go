package multiplayer

import "github.com/pixil98/go-park/internal/room"

// Transport moves opaque messages between peers by subject. Implementations
// must deliver messages from one publisher to one subscriber in order and
// should not echo a connection's own publishes back to it.
type Transport interface {
	// Subscribe calls handler for every message on subject until the
	// returned function is called.
	Subscribe(subject string, handler func(data []byte)) (func(), error)
	Publish(subject string, data []byte) error
	Close() error
}

// StatusReporter is implemented by transports whose connection can drop and
// recover underneath the peer.
type StatusReporter interface {
	// OnStatus registers fn to be called on every connectivity change. A
	// non-nil err reported with Connected is a failure that left the link up.
	OnStatus(fn func(state room.ConnState, err error))
}

func roomSubject(code string) string {
	return "park.room." + code
}

func inboxSubject(playerID string) string {
	return "park.inbox." + playerID
}
