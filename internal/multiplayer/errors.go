package multiplayer

import "errors"

var (
	ErrClosed        = errors.New("provider is closed")
	ErrNotInRoom     = errors.New("not in a room")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrJoinTimeout   = errors.New("no response from room")
)
