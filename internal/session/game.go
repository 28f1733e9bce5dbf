// Package session owns the live park. A Game is the only goroutine that
// advances or mutates the park; everything else submits work to it and reads
// the latest published snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/multiplayer"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
	"github.com/pixil98/go-park/internal/storage"
)

const (
	DefaultAutosaveInterval = 2 * time.Minute
	DefaultDriftInterval    = 15 * time.Second
	defaultJoinSnapshotWait = 5 * time.Second
	finalSaveTimeout        = 10 * time.Second
)

var (
	ErrStopped = errors.New("park is not running")
	ErrNoStore = errors.New("saving is not configured")
	ErrOffline = errors.New("multiplayer is not configured")
)

type submission struct {
	action actions.Action
	reply  chan error
}

type Game struct {
	state    atomic.Pointer[park.WorldState]
	registry *actions.Registry
	provider multiplayer.Provider
	tracker  *room.Tracker
	local    room.Player

	store            storage.SnapshotStore
	slot             string
	autosaveInterval time.Duration
	driftInterval    time.Duration
	joinSnapshotWait time.Duration

	frames  chan time.Duration
	submits chan submission
	calls   chan func()
	done    chan struct{}
	started atomic.Bool
	// lifeMu orders Start against work that runs inline while the loop is down.
	lifeMu sync.Mutex

	// roomMu serializes Host, Join and Leave.
	roomMu   sync.Mutex
	joinWait atomic.Pointer[chan struct{}]

	metrics *metrics
}

func NewGame(initial park.WorldState, opts ...GameOpt) (*Game, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial park: %w", err)
	}

	g := &Game{
		registry:         actions.NewRegistry(),
		tracker:          room.NewTracker(),
		local:            room.Player{ID: uuid.NewString(), Name: "local"},
		slot:             "autosave",
		autosaveInterval: DefaultAutosaveInterval,
		driftInterval:    DefaultDriftInterval,
		joinSnapshotWait: defaultJoinSnapshotWait,
		frames:           make(chan time.Duration),
		submits:          make(chan submission),
		calls:            make(chan func()),
		done:             make(chan struct{}),
	}
	g.state.Store(&initial)

	for _, opt := range opts {
		opt(g)
	}

	m, err := newMetrics(g)
	if err != nil {
		return nil, err
	}
	g.metrics = m

	return g, nil
}

// Snapshot returns the latest published park. It is safe to call from any
// goroutine.
func (g *Game) Snapshot() park.WorldState {
	return *g.state.Load()
}

// Status reports the multiplayer connection.
func (g *Game) Status() room.Status {
	return g.tracker.Status()
}

// Self is the player local actions are attributed to.
func (g *Game) Self() room.Player {
	if g.provider != nil {
		return g.provider.Self()
	}
	return g.local
}

// Multiplayer reports whether a provider is configured.
func (g *Game) Multiplayer() bool {
	return g.provider != nil
}

func (g *Game) publish(w park.WorldState) {
	g.state.Store(&w)
}

// Start runs the game loop until ctx is cancelled. On the way out the park is
// saved and the room is left.
func (g *Game) Start(ctx context.Context) error {
	g.lifeMu.Lock()
	if !g.started.CompareAndSwap(false, true) {
		g.lifeMu.Unlock()
		return fmt.Errorf("game already started")
	}
	g.lifeMu.Unlock()
	defer close(g.done)

	slog.InfoContext(ctx, "park open", "park", g.Snapshot().Name, "player", g.Self().Name)

	var events <-chan multiplayer.Event
	if g.provider != nil {
		events = g.provider.Events()
	}

	autosave, stopAutosave := tickerC(g.autosaveInterval, g.store != nil)
	defer stopAutosave()
	drift, stopDrift := tickerC(g.driftInterval, g.provider != nil)
	defer stopDrift()

	saves := make(chan park.WorldState, 1)
	saverDone := make(chan struct{})
	go g.saver(ctx, saves, saverDone)

	for {
		select {
		case <-ctx.Done():
			close(saves)
			<-saverDone
			g.shutdown(ctx)
			return nil

		case elapsed := <-g.frames:
			g.advance(ctx, elapsed)

		case sub := <-g.submits:
			sub.reply <- g.applyLocal(ctx, sub.action)

		case fn := <-g.calls:
			fn()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			g.handleEvent(ctx, ev)

		case <-autosave:
			select {
			case saves <- g.Snapshot():
			default:
				slog.DebugContext(ctx, "previous autosave still running")
			}

		case <-drift:
			g.broadcastSnapshot(ctx)
		}
	}
}

func tickerC(d time.Duration, enabled bool) (<-chan time.Time, func()) {
	if d <= 0 || !enabled {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (g *Game) shutdown(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer cancel()

	if g.store != nil {
		if err := g.save(saveCtx, g.slot); err != nil {
			slog.ErrorContext(ctx, "final save failed", "slot", g.slot, "error", err)
		}
		if c, ok := g.store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.WarnContext(ctx, "closing save store", "error", err)
			}
		}
	}

	if g.provider != nil {
		if err := g.provider.Close(); err != nil {
			slog.WarnContext(ctx, "closing multiplayer", "error", err)
		}
		g.transition(ctx, room.Disconnected, nil)
	}

	slog.InfoContext(ctx, "park closed", "park", g.Snapshot().Name)
}

func (g *Game) saver(ctx context.Context, saves <-chan park.WorldState, done chan<- struct{}) {
	defer close(done)
	for w := range saves {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
		err := g.store.Save(saveCtx, g.slot, w, g.saveMeta())
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "autosave failed", "slot", g.slot, "error", err)
			continue
		}
		slog.DebugContext(ctx, "autosaved", "slot", g.slot, "tick", w.Tick)
	}
}

// Tick hands one frame to the game loop. It implements driver.Manager.
func (g *Game) Tick(ctx context.Context, elapsed time.Duration) error {
	select {
	case g.frames <- elapsed:
		return nil
	case <-g.done:
		return ErrStopped
	case <-ctx.Done():
		return nil
	}
}

func (g *Game) advance(ctx context.Context, elapsed time.Duration) {
	w := g.Snapshot()
	next := park.Advance(w, elapsed.Seconds())
	if next.Tick > w.Tick {
		g.metrics.ticks.Add(ctx, int64(next.Tick-w.Tick))
	}
	g.publish(next)
}

// Dispatch applies a locally issued action on the game loop and, if the
// player is in a room, broadcasts it. The returned error is the reducer's
// verdict; broadcast failures are reported through Status.
func (g *Game) Dispatch(ctx context.Context, a actions.Action) error {
	reply := make(chan error, 1)
	select {
	case g.submits <- submission{action: a, reply: reply}:
	case <-g.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-reply
}

func (g *Game) applyLocal(ctx context.Context, a actions.Action) error {
	next, err := g.registry.Apply(g.Snapshot(), a)
	if err != nil {
		g.metrics.rejected.Add(ctx, 1, actionAttrs("local", string(a.Type)))
		slog.DebugContext(ctx, "action rejected", "type", a.Type, "id", a.ID, "error", err)
		return err
	}
	g.publish(next)
	g.metrics.applied.Add(ctx, 1, actionAttrs("local", string(a.Type)))

	if g.provider == nil {
		return nil
	}
	err = g.provider.DispatchAction(a)
	if err != nil && !errors.Is(err, multiplayer.ErrNotInRoom) {
		slog.WarnContext(ctx, "broadcasting action", "type", a.Type, "id", a.ID, "error", err)
		g.tracker.Fail(err)
	}
	return nil
}

func (g *Game) handleEvent(ctx context.Context, ev multiplayer.Event) {
	switch ev := ev.(type) {
	case multiplayer.ActionReceived:
		a := ev.Action
		next, err := g.registry.Apply(g.Snapshot(), a)
		if err != nil {
			g.metrics.rejected.Add(ctx, 1, actionAttrs("remote", string(a.Type)))
			slog.DebugContext(ctx, "remote action rejected", "type", a.Type, "from", a.Originator, "error", err)
			return
		}
		g.publish(next)
		g.metrics.applied.Add(ctx, 1, actionAttrs("remote", string(a.Type)))

	case multiplayer.SnapshotReceived:
		g.publish(ev.State)
		g.metrics.snapshots.Add(ctx, 1)
		slog.DebugContext(ctx, "adopted park snapshot", "from", ev.From, "tick", ev.State.Tick)
		if ch := g.joinWait.Swap(nil); ch != nil {
			close(*ch)
		}

	case multiplayer.PlayersChanged:
		g.tracker.SetPlayers(ev.Players)

	case multiplayer.ConnectionChanged:
		g.transition(ctx, ev.State, ev.Err)

	case multiplayer.ErrorOccurred:
		slog.WarnContext(ctx, "multiplayer error", "error", ev.Err)
		g.tracker.Fail(ev.Err)
	}
}

func (g *Game) broadcastSnapshot(ctx context.Context) {
	err := g.provider.UpdateGameState(g.Snapshot())
	if err != nil && !errors.Is(err, multiplayer.ErrNotInRoom) {
		slog.WarnContext(ctx, "broadcasting park", "error", err)
		g.tracker.Fail(err)
	}
}

func (g *Game) transition(ctx context.Context, state room.ConnState, cause error) {
	if err := g.tracker.Transition(state, cause); err != nil {
		slog.DebugContext(ctx, "ignoring connection change", "error", err)
	}
}

// Host opens a new room seeded with the current park and returns its code.
func (g *Game) Host(ctx context.Context, name string) (string, error) {
	if g.provider == nil {
		return "", ErrOffline
	}

	g.roomMu.Lock()
	defer g.roomMu.Unlock()

	if err := g.checkNotInRoom(); err != nil {
		return "", err
	}

	g.transition(ctx, room.Connecting, nil)
	code, err := g.provider.CreateRoom(ctx, name, g.Snapshot())
	if err != nil {
		g.transition(ctx, room.Errored, err)
		return "", fmt.Errorf("hosting room: %w", err)
	}

	self := g.provider.Self()
	g.tracker.SetRoom(room.Data{
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
		Players:   []room.Player{self},
	})
	g.transition(ctx, room.Connected, nil)

	slog.InfoContext(ctx, "hosting room", "room", code, "name", name)
	return code, nil
}

// Join enters an existing room and waits for its park to replace the local one.
func (g *Game) Join(ctx context.Context, code string) (room.Data, error) {
	if g.provider == nil {
		return room.Data{}, ErrOffline
	}

	g.roomMu.Lock()
	defer g.roomMu.Unlock()

	if err := g.checkNotInRoom(); err != nil {
		return room.Data{}, err
	}

	adopted := make(chan struct{})
	g.joinWait.Store(&adopted)
	defer g.joinWait.CompareAndSwap(&adopted, nil)

	g.transition(ctx, room.Connecting, nil)
	data, err := g.provider.JoinRoom(ctx, code)
	if err != nil {
		g.transition(ctx, room.Errored, err)
		return room.Data{}, fmt.Errorf("joining room: %w", err)
	}
	g.tracker.SetRoom(data)
	g.transition(ctx, room.Connected, nil)

	timer := time.NewTimer(g.joinSnapshotWait)
	defer timer.Stop()
	select {
	case <-adopted:
	case <-timer.C:
		err := fmt.Errorf("%w %s: its park never arrived", multiplayer.ErrJoinTimeout, data.Code)
		slog.WarnContext(ctx, "abandoning join", "room", data.Code, "error", err)
		g.abandonJoin(ctx, room.Errored, err)
		return room.Data{}, fmt.Errorf("joining room: %w", err)
	case <-ctx.Done():
		g.abandonJoin(ctx, room.Disconnected, nil)
		return room.Data{}, ctx.Err()
	case <-g.done:
		return room.Data{}, ErrStopped
	}

	slog.InfoContext(ctx, "joined room", "room", data.Code, "players", len(data.Players))
	return data, nil
}

// abandonJoin leaves a room whose park never arrived and settles the tracker
// in state without a room, so a later Host or Join is allowed.
func (g *Game) abandonJoin(ctx context.Context, state room.ConnState, cause error) {
	_ = g.onLoop(context.WithoutCancel(ctx), func() {
		if err := g.provider.Leave(); err != nil {
			slog.DebugContext(ctx, "leaving abandoned room", "error", err)
		}
		g.discardEvents(ctx)
		g.transition(ctx, state, cause)
		g.tracker.ClearRoom()
	})
}

func (g *Game) checkNotInRoom() error {
	st := g.tracker.Status()
	if st.Room != nil && st.State != room.Disconnected {
		return fmt.Errorf("%w %s", multiplayer.ErrAlreadyInRoom, st.Room.Code)
	}
	return nil
}

// Leave exits the current room. The local park keeps running.
func (g *Game) Leave(ctx context.Context) error {
	if g.provider == nil {
		return ErrOffline
	}

	g.roomMu.Lock()
	defer g.roomMu.Unlock()

	var err error
	if lerr := g.onLoop(ctx, func() {
		err = g.provider.Leave()
		g.discardEvents(ctx)
		g.transition(ctx, room.Disconnected, nil)
	}); lerr != nil {
		return lerr
	}
	if err != nil {
		return fmt.Errorf("leaving room: %w", err)
	}
	slog.InfoContext(ctx, "left room")
	return nil
}

// onLoop runs fn where it cannot interleave with event handling: on the game
// loop while it runs, inline otherwise.
func (g *Game) onLoop(ctx context.Context, fn func()) error {
	g.lifeMu.Lock()
	if !g.started.Load() || g.stopped() {
		defer g.lifeMu.Unlock()
		fn()
		return nil
	}
	g.lifeMu.Unlock()

	ran := make(chan struct{})
	select {
	case g.calls <- func() { fn(); close(ran) }:
	case <-g.done:
		return g.onLoop(ctx, fn)
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

func (g *Game) stopped() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// discardEvents drops whatever the provider buffered before it left the
// room. Nothing new arrives once Leave has returned.
func (g *Game) discardEvents(ctx context.Context) {
	events := g.provider.Events()
	dropped := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
			dropped++
		default:
			if dropped > 0 {
				slog.DebugContext(ctx, "dropped events from the old room", "count", dropped)
			}
			return
		}
	}
}

// Save writes the current park to slot, or to the autosave slot when slot is empty.
func (g *Game) Save(ctx context.Context, slot string) error {
	if slot == "" {
		slot = g.slot
	}
	return g.save(ctx, slot)
}

func (g *Game) save(ctx context.Context, slot string) error {
	if g.store == nil {
		return ErrNoStore
	}
	w := g.Snapshot()
	if err := g.store.Save(ctx, slot, w, g.saveMeta()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "park saved", "slot", slot, "tick", w.Tick)
	return nil
}

// Saves lists the stored parks.
func (g *Game) Saves(ctx context.Context) ([]storage.SlotInfo, error) {
	if g.store == nil {
		return nil, ErrNoStore
	}
	return g.store.List(ctx)
}

func (g *Game) saveMeta() storage.Meta {
	var meta storage.Meta
	_ = meta.Set("player", g.Self().Name)
	if st := g.tracker.Status(); st.Room != nil {
		_ = meta.Set("room", st.Room.Code)
	}
	return meta
}
