package multiplayer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
	"github.com/pixil98/go-testutil"
)

const waitFor = 2 * time.Second

// next waits for the first event of type T, skipping others.
func next[T Event](t *testing.T, p Provider) T {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				t.Fatalf("events closed while waiting for %T", *new(T))
			}
			if e, ok := ev.(T); ok {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %T", *new(T))
		}
	}
}

func hostAndGuest(t *testing.T, initial park.WorldState) (*Peer, *Peer, string) {
	t.Helper()
	bus := NewLocalBus()
	host := NewPeer(bus.Connect(), "host", WithJoinTimeout(time.Second))
	guest := NewPeer(bus.Connect(), "guest", WithJoinTimeout(time.Second))
	t.Cleanup(func() {
		_ = host.Close()
		_ = guest.Close()
	})

	code, err := host.CreateRoom(context.Background(), "Test Room", initial)
	if err != nil {
		t.Fatalf("creating room: %v", err)
	}
	if _, err := guest.JoinRoom(context.Background(), code); err != nil {
		t.Fatalf("joining room: %v", err)
	}
	return host, guest, code
}

func TestPeer_JoinReceivesSnapshot(t *testing.T) {
	initial := park.New(park.Options{Name: "Shared", Seed: 4})
	initial = park.Advance(initial, 1)

	bus := NewLocalBus()
	host := NewPeer(bus.Connect(), "host")
	guest := NewPeer(bus.Connect(), "guest")
	defer host.Close()
	defer guest.Close()

	code, err := host.CreateRoom(context.Background(), "Test Room", initial)
	if err != nil {
		t.Fatalf("creating room: %v", err)
	}
	testutil.AssertEqual(t, "code length", len(code), room.CodeLength)

	data, err := guest.JoinRoom(context.Background(), "  "+code+" ")
	if err != nil {
		t.Fatalf("joining room: %v", err)
	}
	testutil.AssertEqual(t, "room code", data.Code, code)
	testutil.AssertEqual(t, "room name", data.Name, "Test Room")
	testutil.AssertEqual(t, "players", len(data.Players), 2)

	snap := next[SnapshotReceived](t, guest)
	testutil.AssertEqual(t, "from", snap.From, host.Self().ID)
	if !reflect.DeepEqual(snap.State, initial) {
		t.Error("joined snapshot differs from the host's park")
	}

	roster := next[PlayersChanged](t, host)
	testutil.AssertEqual(t, "host roster", len(roster.Players), 2)
}

func TestPeer_SnapshotSource(t *testing.T) {
	current := park.New(park.Options{Name: "Live", Seed: 8})
	current.Finances.Cash = 1234

	bus := NewLocalBus()
	host := NewPeer(bus.Connect(), "host", WithSnapshotSource(func() park.WorldState { return current }))
	guest := NewPeer(bus.Connect(), "guest")
	defer host.Close()
	defer guest.Close()

	code, err := host.CreateRoom(context.Background(), "Room", park.New(park.Options{}))
	if err != nil {
		t.Fatalf("creating room: %v", err)
	}
	if _, err := guest.JoinRoom(context.Background(), code); err != nil {
		t.Fatalf("joining room: %v", err)
	}

	snap := next[SnapshotReceived](t, guest)
	testutil.AssertEqual(t, "cash", snap.State.Finances.Cash, 1234.0)
	testutil.AssertEqual(t, "name", snap.State.Name, "Live")
}

func TestPeer_ConcurrentActionsConverge(t *testing.T) {
	initial := park.New(park.Options{Seed: 12})
	initial.Funding = 0.1
	host, guest, _ := hostAndGuest(t, initial)

	hostState := initial
	guestState := next[SnapshotReceived](t, guest).State

	funding, _ := actions.NewSetFunding(host.Self().ID, 0.5)
	speed, _ := actions.NewSetSpeed(guest.Self().ID, 2)

	var err error
	hostState, err = actions.Apply(hostState, funding)
	if err != nil {
		t.Fatalf("applying locally: %v", err)
	}
	guestState, err = actions.Apply(guestState, speed)
	if err != nil {
		t.Fatalf("applying locally: %v", err)
	}

	errs := make(chan error, 2)
	go func() { errs <- host.DispatchAction(funding) }()
	go func() { errs <- guest.DispatchAction(speed) }()
	for range 2 {
		if err := <-errs; err != nil {
			t.Fatalf("dispatching: %v", err)
		}
	}

	fromGuest := next[ActionReceived](t, host)
	hostState, _ = actions.Apply(hostState, fromGuest.Action)
	fromHost := next[ActionReceived](t, guest)
	guestState, _ = actions.Apply(guestState, fromHost.Action)

	hostEnc, _ := park.Encode(hostState)
	guestEnc, _ := park.Encode(guestState)
	if hostEnc != guestEnc {
		t.Errorf("peers diverged:\nhost:  funding %v speed %d\nguest: funding %v speed %d",
			hostState.Funding, hostState.Speed, guestState.Funding, guestState.Speed)
	}
	testutil.AssertEqual(t, "funding", hostState.Funding, 0.5)
	testutil.AssertEqual(t, "speed", hostState.Speed, 2)
}

func TestPeer_DropsDuplicateActions(t *testing.T) {
	host, guest, _ := hostAndGuest(t, park.New(park.Options{}))
	next[SnapshotReceived](t, guest)

	a, _ := actions.NewSetSpeed(host.Self().ID, 3)
	b, _ := actions.NewSetSpeed(host.Self().ID, 1)
	for _, act := range []actions.Action{a, a, b} {
		if err := host.DispatchAction(act); err != nil {
			t.Fatalf("dispatching: %v", err)
		}
	}

	first := next[ActionReceived](t, guest)
	second := next[ActionReceived](t, guest)
	testutil.AssertEqual(t, "first", first.Action.ID, a.ID)
	testutil.AssertEqual(t, "second", second.Action.ID, b.ID)
}

func TestPeer_DriftSnapshot(t *testing.T) {
	host, guest, _ := hostAndGuest(t, park.New(park.Options{}))
	next[SnapshotReceived](t, guest)

	drifted := park.New(park.Options{Name: "Corrected", Seed: 99})
	if err := guest.UpdateGameState(drifted); err != nil {
		t.Fatalf("broadcasting: %v", err)
	}

	snap := next[SnapshotReceived](t, host)
	testutil.AssertEqual(t, "from", snap.From, guest.Self().ID)
	testutil.AssertEqual(t, "name", snap.State.Name, "Corrected")
}

func TestPeer_LeaveUpdatesRoster(t *testing.T) {
	host, guest, _ := hostAndGuest(t, park.New(park.Options{}))
	joined := next[PlayersChanged](t, host)
	testutil.AssertEqual(t, "players after join", len(joined.Players), 2)

	if err := guest.Leave(); err != nil {
		t.Fatalf("leaving: %v", err)
	}

	left := next[PlayersChanged](t, host)
	testutil.AssertEqual(t, "players after leave", len(left.Players), 1)
	testutil.AssertEqual(t, "remaining", left.Players[0].ID, host.Self().ID)

	err := guest.DispatchAction(actions.Action{ID: "x", Type: actions.TypeSetSpeed})
	testutil.AssertEqual(t, "not in room", errors.Is(err, ErrNotInRoom), true)
}

func TestPeer_NoEventsAfterLeave(t *testing.T) {
	host, guest, _ := hostAndGuest(t, park.New(park.Options{}))

	stop := make(chan struct{})
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			a, _ := actions.NewSetSpeed(host.Self().ID, i%4)
			_ = host.DispatchAction(a)
			if i%8 == 0 {
				_ = host.UpdateGameState(park.New(park.Options{}))
			}
		}
	}()

	time.Sleep(20 * time.Millisecond)
	if err := guest.Leave(); err != nil {
		t.Fatalf("leaving: %v", err)
	}
	buffered := len(guest.Events())

	time.Sleep(100 * time.Millisecond)
	close(stop)
	<-sent

	testutil.AssertEqual(t, "events after leave", len(guest.Events()), buffered)
}

func TestPeer_JoinErrors(t *testing.T) {
	tests := map[string]struct {
		code   string
		expErr error
	}{
		"malformed code": {code: "nope", expErr: room.ErrInvalidCode},
		"nobody home":    {code: "ZZZZZZ", expErr: ErrJoinTimeout},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := NewPeer(NewLocalBus().Connect(), "lonely", WithJoinTimeout(50*time.Millisecond))
			defer p.Close()

			_, err := p.JoinRoom(context.Background(), tt.code)
			testutil.AssertEqual(t, "error", errors.Is(err, tt.expErr), true)

			// A failed join leaves the peer free to try again.
			_, err = p.CreateRoom(context.Background(), "mine", park.New(park.Options{}))
			if err != nil {
				t.Fatalf("creating after failed join: %v", err)
			}
		})
	}
}

func TestPeer_JoinCancelled(t *testing.T) {
	p := NewPeer(NewLocalBus().Connect(), "impatient", WithJoinTimeout(time.Minute))
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.JoinRoom(ctx, "ABCDEF")
	testutil.AssertEqual(t, "cancelled", errors.Is(err, context.Canceled), true)
}

func TestPeer_AlreadyInRoom(t *testing.T) {
	p := NewPeer(NewLocalBus().Connect(), "host")
	defer p.Close()

	if _, err := p.CreateRoom(context.Background(), "one", park.New(park.Options{})); err != nil {
		t.Fatalf("creating room: %v", err)
	}
	_, err := p.CreateRoom(context.Background(), "two", park.New(park.Options{}))
	testutil.AssertEqual(t, "already in room", errors.Is(err, ErrAlreadyInRoom), true)
}

func TestPeer_Close(t *testing.T) {
	p := NewPeer(NewLocalBus().Connect(), "host")
	if _, err := p.CreateRoom(context.Background(), "one", park.New(park.Options{})); err != nil {
		t.Fatalf("creating room: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("closing twice: %v", err)
	}

	select {
	case _, ok := <-p.Events():
		testutil.AssertEqual(t, "events open", ok, false)
	case <-time.After(waitFor):
		t.Fatal("events not closed")
	}

	err := p.UpdateGameState(park.New(park.Options{}))
	testutil.AssertEqual(t, "closed", errors.Is(err, ErrClosed), true)
}

func TestPeer_BadMessages(t *testing.T) {
	bus := NewLocalBus()
	p := NewPeer(bus.Connect(), "host")
	defer p.Close()

	code, err := p.CreateRoom(context.Background(), "room", park.New(park.Options{}))
	if err != nil {
		t.Fatalf("creating room: %v", err)
	}

	rogue := bus.Connect()
	defer rogue.Close()

	tests := map[string]struct {
		data   string
		expErr string
	}{
		"not json": {
			data:   "{{{",
			expErr: "decoding message",
		},
		"corrupt snapshot": {
			data:   `{"kind":"snapshot","room":"` + code + `","from":"rogue","snapshot":"p1.garbage"}`,
			expErr: "malformed snapshot",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if err := rogue.Publish(roomSubject(code), []byte(tt.data)); err != nil {
				t.Fatalf("publishing: %v", err)
			}
			ev := next[ErrorOccurred](t, p)
			testutil.AssertErrorContains(t, ev.Err, tt.expErr)
		})
	}
}

func TestSeenSet(t *testing.T) {
	s := newSeenSet(2)
	testutil.AssertEqual(t, "a new", s.add("a"), true)
	testutil.AssertEqual(t, "a again", s.add("a"), false)
	testutil.AssertEqual(t, "b new", s.add("b"), true)
	testutil.AssertEqual(t, "c new", s.add("c"), true)
	testutil.AssertEqual(t, "a forgotten", s.add("a"), true)
	testutil.AssertEqual(t, "c remembered", s.add("c"), false)
}

// reportingConn lets a test drive the status callbacks a real transport makes.
type reportingConn struct {
	*LocalConn
	onStatus func(room.ConnState, error)
}

func (r *reportingConn) OnStatus(fn func(room.ConnState, error)) {
	r.onStatus = fn
}

func TestPeer_TransportStatus(t *testing.T) {
	tests := map[string]struct {
		state    room.ConnState
		err      error
		expError bool
	}{
		"link lost": {
			state: room.Connecting,
			err:   errors.New("connection reset"),
		},
		"link restored": {
			state: room.Connected,
		},
		"failure on a live link": {
			state:    room.Connected,
			err:      errors.New("slow consumer"),
			expError: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			conn := &reportingConn{LocalConn: NewLocalBus().Connect()}
			p := NewPeer(conn, "host")
			t.Cleanup(func() { _ = p.Close() })

			if _, err := p.CreateRoom(context.Background(), "Status Room", park.New(park.Options{})); err != nil {
				t.Fatalf("creating room: %v", err)
			}
			conn.onStatus(tt.state, tt.err)

			select {
			case ev := <-p.Events():
				if tt.expError {
					e, ok := ev.(ErrorOccurred)
					if !ok {
						t.Fatalf("expected ErrorOccurred, got %T", ev)
					}
					testutil.AssertEqual(t, "error", e.Err, tt.err, cmpopts.EquateErrors())
					return
				}
				e, ok := ev.(ConnectionChanged)
				if !ok {
					t.Fatalf("expected ConnectionChanged, got %T", ev)
				}
				testutil.AssertEqual(t, "state", e.State, tt.state)
			case <-time.After(waitFor):
				t.Fatal("no event")
			}
		})
	}
}
