package multiplayer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
)

const (
	defaultJoinTimeout = 5 * time.Second
	defaultEventBuffer = 256
	// seenCapacity is how many recent action ids are remembered for dedup.
	seenCapacity = 4096
)

// membership is one stay in one room. Transport handlers hold on to the
// membership they were subscribed for, so a late message for a room the
// peer already left is recognized and dropped.
type membership struct {
	code    string
	data    room.Data
	players []room.Player
	latest  string
	joined  bool
	welcome chan struct{}
	done    chan struct{}
	stop    sync.Once
	unsubs  []func()
}

func newMembership(code string) *membership {
	return &membership{
		code:    code,
		data:    room.Data{Code: code},
		welcome: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (m *membership) close() {
	m.stop.Do(func() { close(m.done) })
}

// Peer implements Provider over any Transport.
type Peer struct {
	transport   Transport
	self        room.Player
	joinTimeout time.Duration
	source      func() park.WorldState
	bufferSize  int

	events chan Event

	// emitMu is held for reading while an event is delivered and for
	// writing while a membership is torn down or Events is closed.
	emitMu       sync.RWMutex
	eventsClosed bool

	mu     sync.Mutex
	member *membership
	seen   *seenSet
	closed bool
}

var _ Provider = (*Peer)(nil)

// NewPeer creates a peer for a player called name. The snapshot source, if
// any, is called from transport goroutines and must be safe for concurrent use.
func NewPeer(t Transport, name string, opts ...PeerOpt) *Peer {
	p := &Peer{
		transport:   t,
		self:        room.Player{Name: name},
		joinTimeout: defaultJoinTimeout,
		bufferSize:  defaultEventBuffer,
		seen:        newSeenSet(seenCapacity),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.self.ID == "" {
		p.self.ID = uuid.NewString()
	}
	p.events = make(chan Event, max(0, p.bufferSize))

	if sr, ok := t.(StatusReporter); ok {
		sr.OnStatus(p.onStatus)
	}
	return p
}

func (p *Peer) Self() room.Player {
	return p.self
}

func (p *Peer) Events() <-chan Event {
	return p.events
}

func (p *Peer) CreateRoom(ctx context.Context, name string, initial park.WorldState) (string, error) {
	snap, err := park.Encode(initial)
	if err != nil {
		return "", fmt.Errorf("encoding initial park: %w", err)
	}
	code, err := room.NewCode()
	if err != nil {
		return "", err
	}

	now := time.Now().UnixMilli()
	self := p.self
	self.JoinedAt = now

	m := newMembership(code)
	m.data = room.Data{Code: code, Name: name, CreatedAt: now, Players: []room.Player{self}}
	m.players = []room.Player{self}
	m.latest = snap
	m.joined = true
	close(m.welcome)

	if err := p.attach(m); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "room created", "room", code, "player", p.self.ID)
	return code, nil
}

func (p *Peer) JoinRoom(ctx context.Context, code string) (room.Data, error) {
	code, err := room.Validate(code)
	if err != nil {
		return room.Data{}, err
	}

	self := p.self
	self.JoinedAt = time.Now().UnixMilli()

	m := newMembership(code)
	m.players = []room.Player{self}

	if err := p.attach(m); err != nil {
		return room.Data{}, err
	}

	err = p.publish(m, envelope{Kind: kindJoin, Player: &self, ReplyTo: inboxSubject(p.self.ID)})
	if err != nil {
		p.detach(m)
		return room.Data{}, fmt.Errorf("announcing join: %w", err)
	}

	timer := time.NewTimer(p.joinTimeout)
	defer timer.Stop()

	select {
	case <-m.welcome:
	case <-timer.C:
		_ = p.leave(m)
		return room.Data{}, fmt.Errorf("%w %s", ErrJoinTimeout, code)
	case <-ctx.Done():
		_ = p.leave(m)
		return room.Data{}, ctx.Err()
	}

	p.mu.Lock()
	data := m.data
	data.Players = slices.Clone(m.players)
	p.mu.Unlock()

	slog.InfoContext(ctx, "room joined", "room", code, "player", p.self.ID, "players", len(data.Players))
	return data, nil
}

func (p *Peer) DispatchAction(a actions.Action) error {
	m, err := p.current()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.seen.add(a.ID)
	p.mu.Unlock()

	return p.publish(m, envelope{Kind: kindAction, Action: &a})
}

func (p *Peer) UpdateGameState(w park.WorldState) error {
	m, err := p.current()
	if err != nil {
		return err
	}

	snap, err := park.Encode(w)
	if err != nil {
		return fmt.Errorf("encoding park: %w", err)
	}

	p.mu.Lock()
	m.latest = snap
	p.mu.Unlock()

	return p.publish(m, envelope{Kind: kindSnapshot, Snapshot: snap})
}

func (p *Peer) Leave() error {
	m, err := p.current()
	if err != nil {
		return err
	}
	return p.leave(m)
}

func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	m := p.member
	p.mu.Unlock()

	el := errors.NewErrorList()
	if m != nil {
		el.Add(p.leave(m))
	}
	el.Add(p.transport.Close())

	p.emitMu.Lock()
	p.eventsClosed = true
	close(p.events)
	p.emitMu.Unlock()

	return el.Err()
}

func (p *Peer) current() (*membership, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.member == nil {
		return nil, ErrNotInRoom
	}
	return p.member, nil
}

// attach subscribes to the room and the peer's inbox and makes m current.
func (p *Peer) attach(m *membership) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.member != nil {
		return fmt.Errorf("%w %s", ErrAlreadyInRoom, p.member.code)
	}

	for _, subject := range []string{roomSubject(m.code), inboxSubject(p.self.ID)} {
		unsub, err := p.transport.Subscribe(subject, func(data []byte) { p.receive(m, data) })
		if err != nil {
			for _, u := range m.unsubs {
				u()
			}
			m.unsubs = nil
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		m.unsubs = append(m.unsubs, unsub)
	}

	p.member = m
	return nil
}

// leave announces departure and tears down the membership.
func (p *Peer) leave(m *membership) error {
	self := p.self
	err := p.publish(m, envelope{Kind: kindLeave, Player: &self})
	p.detach(m)
	if err != nil {
		return fmt.Errorf("announcing leave: %w", err)
	}
	return nil
}

// detach stops event delivery for m and unsubscribes it. Once it returns no
// handler subscribed for m can emit.
func (p *Peer) detach(m *membership) {
	p.mu.Lock()
	if p.member == m {
		p.member = nil
	}
	unsubs := m.unsubs
	m.unsubs = nil
	p.mu.Unlock()

	m.close()

	// Taking the write lock waits out any emit that saw done still open.
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

func (p *Peer) emit(m *membership, ev Event) {
	p.emitMu.RLock()
	defer p.emitMu.RUnlock()

	if p.eventsClosed {
		return
	}
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case p.events <- ev:
	case <-m.done:
	}
}

func (p *Peer) publish(m *membership, env envelope) error {
	env.Room = m.code
	return p.send(roomSubject(m.code), env)
}

func (p *Peer) send(subject string, env envelope) error {
	env.From = p.self.ID
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshalling %s message: %w", env.Kind, err)
	}
	return p.transport.Publish(subject, data)
}

func (p *Peer) receive(m *membership, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("dropping malformed message", "room", m.code, "error", err)
		p.emit(m, ErrorOccurred{Err: fmt.Errorf("decoding message: %w", err)})
		return
	}
	if env.From == p.self.ID || env.Room != m.code {
		return
	}

	switch env.Kind {
	case kindJoin:
		p.onJoin(m, env)
	case kindWelcome:
		p.onWelcome(m, env)
	case kindLeave:
		p.onLeave(m, env)
	case kindAction:
		p.onAction(m, env)
	case kindSnapshot:
		p.onSnapshot(m, env)
	default:
		slog.Debug("ignoring message", "room", m.code, "kind", env.Kind, "from", env.From)
	}
}

func (p *Peer) onJoin(m *membership, env envelope) {
	if env.Player == nil || env.Player.ID != env.From {
		return
	}

	p.mu.Lock()
	if p.member != m {
		p.mu.Unlock()
		return
	}
	m.players = upsertPlayer(m.players, *env.Player)
	m.data.Players = slices.Clone(m.players)
	players := slices.Clone(m.players)
	data := m.data
	data.Players = slices.Clone(m.players)
	snap := m.latest
	joined := m.joined
	p.mu.Unlock()

	if !joined {
		return
	}
	p.emit(m, PlayersChanged{Players: players})

	if env.ReplyTo == "" {
		return
	}
	if p.source != nil {
		enc, err := park.Encode(p.source())
		if err != nil {
			p.emit(m, ErrorOccurred{Err: fmt.Errorf("encoding park for %s: %w", env.From, err)})
			return
		}
		snap = enc
	}

	err := p.send(env.ReplyTo, envelope{
		Kind:     kindWelcome,
		Room:     m.code,
		RoomData: &data,
		Players:  players,
		Snapshot: snap,
	})
	if err != nil {
		p.emit(m, ErrorOccurred{Err: fmt.Errorf("welcoming %s: %w", env.From, err)})
	}
}

func (p *Peer) onWelcome(m *membership, env envelope) {
	p.mu.Lock()
	if p.member != m || m.joined {
		p.mu.Unlock()
		return
	}
	m.joined = true
	if env.RoomData != nil {
		m.data = *env.RoomData
		m.data.Code = m.code
	}
	for _, pl := range env.Players {
		m.players = upsertPlayer(m.players, pl)
	}
	m.data.Players = slices.Clone(m.players)
	players := slices.Clone(m.players)
	if env.Snapshot != "" {
		m.latest = env.Snapshot
	}
	close(m.welcome)
	p.mu.Unlock()

	p.emit(m, PlayersChanged{Players: players})
	if env.Snapshot != "" {
		p.deliverSnapshot(m, env.From, env.Snapshot)
	}
}

func (p *Peer) onLeave(m *membership, env envelope) {
	p.mu.Lock()
	if p.member != m {
		p.mu.Unlock()
		return
	}
	before := len(m.players)
	m.players = slices.DeleteFunc(m.players, func(pl room.Player) bool { return pl.ID == env.From })
	changed := len(m.players) != before
	m.data.Players = slices.Clone(m.players)
	players := slices.Clone(m.players)
	joined := m.joined
	p.mu.Unlock()

	if changed && joined {
		p.emit(m, PlayersChanged{Players: players})
	}
}

func (p *Peer) onAction(m *membership, env envelope) {
	if env.Action == nil {
		return
	}

	p.mu.Lock()
	fresh := p.member == m && p.seen.add(env.Action.ID)
	p.mu.Unlock()

	if !fresh {
		return
	}
	p.emit(m, ActionReceived{Action: *env.Action})
}

func (p *Peer) onSnapshot(m *membership, env envelope) {
	if env.Snapshot == "" {
		return
	}
	p.deliverSnapshot(m, env.From, env.Snapshot)
}

func (p *Peer) deliverSnapshot(m *membership, from, snap string) {
	w, err := park.Decode(snap)
	if err != nil {
		slog.Warn("dropping bad snapshot", "room", m.code, "from", from, "error", err)
		p.emit(m, ErrorOccurred{Err: fmt.Errorf("snapshot from %s: %w", from, err)})
		return
	}

	p.mu.Lock()
	if p.member == m {
		m.latest = snap
	}
	p.mu.Unlock()

	p.emit(m, SnapshotReceived{From: from, State: w})
}

func (p *Peer) onStatus(state room.ConnState, err error) {
	p.mu.Lock()
	m := p.member
	p.mu.Unlock()

	if m == nil {
		return
	}
	if state == room.Connected && err != nil {
		p.emit(m, ErrorOccurred{Err: err})
		return
	}
	p.emit(m, ConnectionChanged{State: state, Err: err})
}

func upsertPlayer(players []room.Player, pl room.Player) []room.Player {
	i := slices.IndexFunc(players, func(x room.Player) bool { return x.ID == pl.ID })
	if i >= 0 {
		players[i] = pl
		return players
	}
	return append(players, pl)
}

// seenSet remembers the most recent ids in a fixed-size ring.
type seenSet struct {
	ids   map[string]struct{}
	order []string
	next  int
}

func newSeenSet(n int) *seenSet {
	return &seenSet{ids: make(map[string]struct{}, n), order: make([]string, n)}
}

// add records id and reports whether it was not already present.
func (s *seenSet) add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	if old := s.order[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.order[s.next] = id
	s.next = (s.next + 1) % len(s.order)
	s.ids[id] = struct{}{}
	return true
}
