package session

import (
	"time"

	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/multiplayer"
	"github.com/pixil98/go-park/internal/storage"
)

type GameOpt func(*Game)

// WithProvider enables multiplayer. The game takes ownership of p and closes
// it when Start returns.
func WithProvider(p multiplayer.Provider) GameOpt {
	return func(g *Game) {
		g.provider = p
	}
}

// WithRegistry replaces the built-in action handlers.
func WithRegistry(r *actions.Registry) GameOpt {
	return func(g *Game) {
		g.registry = r
	}
}

// WithStore sets where the park is saved and the slot autosaves go to. A
// store that is also an io.Closer is closed after the final save.
func WithStore(s storage.SnapshotStore, slot string) GameOpt {
	return func(g *Game) {
		g.store = s
		g.slot = slot
	}
}

// WithAutosaveInterval sets how often the park is saved. Zero disables autosave.
func WithAutosaveInterval(d time.Duration) GameOpt {
	return func(g *Game) {
		g.autosaveInterval = d
	}
}

// WithDriftInterval sets how often the full park is broadcast to the room.
// Zero disables drift correction.
func WithDriftInterval(d time.Duration) GameOpt {
	return func(g *Game) {
		g.driftInterval = d
	}
}

// WithJoinSnapshotWait bounds how long Join waits for the room's park to
// replace the local one.
func WithJoinSnapshotWait(d time.Duration) GameOpt {
	return func(g *Game) {
		g.joinSnapshotWait = d
	}
}

// WithLocalPlayer names the player used as the originator of actions when
// multiplayer is not configured.
func WithLocalPlayer(name string) GameOpt {
	return func(g *Game) {
		g.local.Name = name
	}
}
