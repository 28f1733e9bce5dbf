package multiplayer

import (
	"errors"
	"sync"
)

const mailboxSize = 256

var errBusClosed = errors.New("connection closed")

// LocalBus is an in-process message hub. Each Connect returns an
// independent Transport; together they behave like clients of one broker.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*localSub]struct{}
	nextID int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[*localSub]struct{})}
}

// Connect returns a new connection to the bus.
func (b *LocalBus) Connect() *LocalConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return &LocalConn{bus: b, id: b.nextID, subs: make(map[*localSub]struct{})}
}

type localSub struct {
	subject string
	owner   int
	mailbox chan []byte
	stop    chan struct{}
	once    sync.Once
}

func (s *localSub) run(handler func([]byte)) {
	for {
		select {
		case data := <-s.mailbox:
			handler(data)
		case <-s.stop:
			return
		}
	}
}

func (s *localSub) cancel() {
	s.once.Do(func() { close(s.stop) })
}

func (b *LocalBus) remove(s *localSub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[s.subject]
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, s.subject)
	}
}

// LocalConn is one client of a LocalBus. It never receives its own publishes.
type LocalConn struct {
	bus *LocalBus
	id  int

	mu     sync.Mutex
	subs   map[*localSub]struct{}
	closed bool
}

var _ Transport = (*LocalConn)(nil)

func (c *LocalConn) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errBusClosed
	}

	s := &localSub{
		subject: subject,
		owner:   c.id,
		mailbox: make(chan []byte, mailboxSize),
		stop:    make(chan struct{}),
	}
	c.subs[s] = struct{}{}

	c.bus.mu.Lock()
	if c.bus.subs[subject] == nil {
		c.bus.subs[subject] = make(map[*localSub]struct{})
	}
	c.bus.subs[subject][s] = struct{}{}
	c.bus.mu.Unlock()

	go s.run(handler)

	return func() {
		c.mu.Lock()
		delete(c.subs, s)
		c.mu.Unlock()
		c.bus.remove(s)
		s.cancel()
	}, nil
}

// Publish queues data for every other connection subscribed to subject.
func (c *LocalConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errBusClosed
	}

	c.bus.mu.RLock()
	targets := make([]*localSub, 0, len(c.bus.subs[subject]))
	for s := range c.bus.subs[subject] {
		if s.owner != c.id {
			targets = append(targets, s)
		}
	}
	c.bus.mu.RUnlock()

	for _, s := range targets {
		msg := append([]byte(nil), data...)
		select {
		case s.mailbox <- msg:
		case <-s.stop:
		}
	}
	return nil
}

func (c *LocalConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for s := range subs {
		c.bus.remove(s)
		s.cancel()
	}
	return nil
}
