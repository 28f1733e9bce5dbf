package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-park/internal/multiplayer"
	"github.com/pixil98/go-park/internal/room"
)

const (
	sendChSize    = 1024
	mailboxSize   = 256
	maxReconnect  = 10
	clientMaxRead = 8 << 20
)

var ErrClosed = errors.New("relay connection closed")

type ConnOpt func(*Conn)

// WithBackoff sets the first and the longest pause between reconnect attempts.
func WithBackoff(initial, limit time.Duration) ConnOpt {
	return func(c *Conn) {
		c.backoff = initial
		c.maxBackoff = limit
	}
}

// WithHandshakeTimeout bounds each websocket dial.
func WithHandshakeTimeout(d time.Duration) ConnOpt {
	return func(c *Conn) {
		c.dialer.HandshakeTimeout = d
	}
}

// WithLazyConnect makes Dial return immediately and connect in the
// background. Subscriptions and publishes made in the meantime are queued.
func WithLazyConnect() ConnOpt {
	return func(c *Conn) {
		c.lazy = true
	}
}

// Conn is a client of a relay Server. A single goroutine owns the websocket
// for writing; when the socket drops the client redials with exponential
// backoff and restores its subscriptions.
type Conn struct {
	url        string
	dialer     websocket.Dialer
	backoff    time.Duration
	maxBackoff time.Duration
	lazy       bool

	sendCh chan []byte
	done   chan struct{}

	mu       sync.Mutex
	closed   bool
	ws       *websocket.Conn
	subs     map[string]map[*subscription]struct{}
	onStatus []func(room.ConnState, error)
	wg       sync.WaitGroup
}

var (
	_ multiplayer.Transport      = (*Conn)(nil)
	_ multiplayer.StatusReporter = (*Conn)(nil)
)

// Dial connects to the relay at url, for example ws://host:4280/relay.
func Dial(url string, opts ...ConnOpt) (*Conn, error) {
	c := &Conn{
		url:        url,
		dialer:     websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
		sendCh:     make(chan []byte, sendChSize),
		done:       make(chan struct{}),
		subs:       make(map[string]map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	var ws *websocket.Conn
	if !c.lazy {
		var err error
		ws, err = c.dialOnce()
		if err != nil {
			return nil, err
		}
		c.ws = ws
	}

	c.wg.Add(1)
	go c.run(ws)
	return c, nil
}

func (c *Conn) dialOnce() (*websocket.Conn, error) {
	ws, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing relay %s: %w", c.url, err)
	}
	ws.SetReadLimit(clientMaxRead)
	return ws, nil
}

func (c *Conn) OnStatus(fn func(state room.ConnState, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

func (c *Conn) notify(state room.ConnState, err error) {
	c.mu.Lock()
	fns := slices.Clone(c.onStatus)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(state, err)
	}
}

// run serves one socket at a time until the connection is closed or the
// reconnect attempts are exhausted. A nil ws starts by connecting.
func (c *Conn) run(ws *websocket.Conn) {
	defer c.wg.Done()

	immediate := true
	for {
		if ws == nil {
			ws = c.reconnect(immediate)
			if ws == nil {
				if c.isClosed() {
					c.notify(room.Disconnected, nil)
					return
				}
				c.notify(room.Errored, fmt.Errorf("relay %s unreachable after %d attempts", c.url, maxReconnect))
				return
			}
			c.notify(room.Connected, nil)
		}
		immediate = false

		stop := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			c.writeLoop(ws, stop)
		}()

		err := c.readLoop(ws)
		close(stop)
		<-writerDone
		_ = ws.Close()
		ws = nil

		if c.isClosed() {
			c.notify(room.Disconnected, nil)
			return
		}

		slog.Warn("relay connection lost", "url", c.url, "error", err)
		c.notify(room.Connecting, err)
	}
}

// reconnect dials until it succeeds, the attempts run out or the conn is
// closed. With immediate set the first attempt does not wait.
func (c *Conn) reconnect(immediate bool) *websocket.Conn {
	backoff := c.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		wait := backoff
		if immediate && attempt == 1 {
			wait = 0
		}
		select {
		case <-c.done:
			return nil
		case <-time.After(wait):
		}

		ws, err := c.dialOnce()
		if err != nil {
			slog.Warn("relay reconnect failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = ws.Close()
			return nil
		}
		c.ws = ws
		subjects := make([]string, 0, len(c.subs))
		for subject := range c.subs {
			subjects = append(subjects, subject)
		}
		c.mu.Unlock()

		// Subscriptions go out ahead of anything queued while disconnected.
		ok := true
		for _, subject := range subjects {
			if err := writeFrame(ws, frame{Op: opSubscribe, Subject: subject}); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			_ = ws.Close()
			continue
		}

		slog.Info("relay reconnected", "url", c.url, "attempt", attempt)
		return ws
	}
	return nil
}

func (c *Conn) readLoop(ws *websocket.Conn) error {
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(payload, &f); err != nil || f.Op != opMessage {
			slog.Debug("discarding relay frame", "raw", string(payload))
			continue
		}

		c.mu.Lock()
		targets := make([]*subscription, 0, len(c.subs[f.Subject]))
		for s := range c.subs[f.Subject] {
			targets = append(targets, s)
		}
		c.mu.Unlock()

		for _, s := range targets {
			s.deliver(f.Data)
		}
	}
}

func (c *Conn) writeLoop(ws *websocket.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case data := <-c.sendCh:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("relay write failed", "error", err)
				_ = ws.Close()
				return
			}
		}
	}
}

func writeFrame(ws *websocket.Conn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) enqueue(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshalling frame: %w", err)
	}
	if c.isClosed() {
		return ErrClosed
	}
	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return fmt.Errorf("relay send queue full, dropping %s to %s", f.Op, f.Subject)
	}
}

func (c *Conn) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	if !validSubject(subject) {
		return nil, fmt.Errorf("invalid subject %q", subject)
	}

	s := newSubscription(handler)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		s.cancel()
		return nil, ErrClosed
	}
	set, existing := c.subs[subject]
	if !existing {
		set = make(map[*subscription]struct{})
		c.subs[subject] = set
	}
	set[s] = struct{}{}
	c.mu.Unlock()

	if !existing {
		if err := c.enqueue(frame{Op: opSubscribe, Subject: subject}); err != nil {
			c.remove(subject, s)
			return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
		}
	}

	return func() { c.remove(subject, s) }, nil
}

// remove drops s and tells the relay once nothing local wants subject.
func (c *Conn) remove(subject string, s *subscription) {
	s.cancel()

	c.mu.Lock()
	set, ok := c.subs[subject]
	if !ok {
		c.mu.Unlock()
		return
	}
	if _, ok := set[s]; !ok {
		c.mu.Unlock()
		return
	}
	delete(set, s)
	last := len(set) == 0
	if last {
		delete(c.subs, subject)
	}
	closed := c.closed
	c.mu.Unlock()

	if last && !closed {
		_ = c.enqueue(frame{Op: opUnsubscribe, Subject: subject})
	}
}

func (c *Conn) Publish(subject string, data []byte) error {
	if !validSubject(subject) {
		return fmt.Errorf("invalid subject %q", subject)
	}
	return c.enqueue(frame{Op: opPublish, Subject: subject, Data: data})
}

// Close sends a close frame, stops every goroutine and waits for them.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	ws := c.ws
	subs := c.subs
	c.subs = make(map[string]map[*subscription]struct{})
	c.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.cancel()
		}
	}

	if ws != nil {
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = ws.Close()
	}
	c.wg.Wait()
	return nil
}

// subscription hands messages to its handler from a dedicated goroutine so a
// slow handler never stalls the socket.
type subscription struct {
	mailbox chan []byte
	stop    chan struct{}
	once    sync.Once
}

func newSubscription(handler func([]byte)) *subscription {
	s := &subscription{
		mailbox: make(chan []byte, mailboxSize),
		stop:    make(chan struct{}),
	}
	go func() {
		for {
			select {
			case data := <-s.mailbox:
				handler(data)
			case <-s.stop:
				return
			}
		}
	}()
	return s
}

func (s *subscription) deliver(data []byte) {
	select {
	case s.mailbox <- data:
	case <-s.stop:
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() { close(s.stop) })
}
