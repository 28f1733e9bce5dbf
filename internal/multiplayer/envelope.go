package multiplayer

import (
	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/room"
)

type kind string

const (
	kindJoin     kind = "join"
	kindWelcome  kind = "welcome"
	kindLeave    kind = "leave"
	kindAction   kind = "action"
	kindSnapshot kind = "snapshot"
)

// envelope is the wire format of every message between peers.
type envelope struct {
	Kind     kind            `json:"kind"`
	Room     string          `json:"room"`
	From     string          `json:"from"`
	ReplyTo  string          `json:"replyTo,omitempty"`
	Action   *actions.Action `json:"action,omitempty"`
	Snapshot string          `json:"snapshot,omitempty"`
	Player   *room.Player    `json:"player,omitempty"`
	Players  []room.Player   `json:"players,omitempty"`
	RoomData *room.Data      `json:"room_data,omitempty"`
}
