package messaging

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pixil98/go-park/internal/multiplayer"
	"github.com/pixil98/go-park/internal/room"
)

type ConnOpt func(*connConfig)

type connConfig struct {
	name          string
	reconnectWait time.Duration
	timeout       time.Duration
	retryConnect  bool
}

// WithClientName labels the connection in the server's monitoring output.
func WithClientName(name string) ConnOpt {
	return func(c *connConfig) {
		c.name = name
	}
}

// WithReconnectWait sets the pause between reconnect attempts.
func WithReconnectWait(d time.Duration) ConnOpt {
	return func(c *connConfig) {
		c.reconnectWait = d
	}
}

// WithDialTimeout bounds the initial connection attempt.
func WithDialTimeout(d time.Duration) ConnOpt {
	return func(c *connConfig) {
		c.timeout = d
	}
}

// WithRetryOnFailedConnect lets Dial return before the server is reachable,
// for example when it is embedded and started alongside the client.
func WithRetryOnFailedConnect() ConnOpt {
	return func(c *connConfig) {
		c.retryConnect = true
	}
}

// Conn is a multiplayer transport over a NATS client connection. It never
// receives its own publishes and keeps reconnecting until closed.
type Conn struct {
	nc      *nats.Conn
	timeout time.Duration

	mu       sync.Mutex
	onStatus []func(room.ConnState, error)
}

var (
	_ multiplayer.Transport      = (*Conn)(nil)
	_ multiplayer.StatusReporter = (*Conn)(nil)
)

// Dial connects to the NATS server at url.
func Dial(url string, opts ...ConnOpt) (*Conn, error) {
	cfg := connConfig{
		name:          "go-park",
		reconnectWait: time.Second,
		timeout:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Conn{timeout: cfg.timeout}
	nc, err := nats.Connect(url,
		nats.Name(cfg.name),
		nats.NoEcho(),
		nats.Timeout(cfg.timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.reconnectWait),
		nats.RetryOnFailedConnect(cfg.retryConnect),
		nats.ConnectHandler(func(nc *nats.Conn) {
			slog.Info("nats connected", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats connection lost", "url", url, "error", err)
			c.notify(room.Connecting, err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats connection restored", "url", nc.ConnectedUrl())
			c.notify(room.Connected, nil)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.notify(room.Disconnected, nil)
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Warn("nats async error", "subject", subject, "error", err)
			// Errors like a slow consumer leave the connection usable.
			if nc.IsConnected() {
				c.notify(room.Connected, err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	c.nc = nc

	return c, nil
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

// Subscribe calls handler for each message on subject. Messages on one
// subscription are delivered in order from a single goroutine.
func (c *Conn) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	// The subscription must be live on the server before the caller publishes
	// anything that expects a reply on it.
	if err := c.nc.FlushTimeout(c.timeout); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
			slog.Warn("unsubscribing", "subject", subject, "error", err)
		}
	}, nil
}

func (c *Conn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

// Close flushes pending publishes and closes the connection.
func (c *Conn) Close() error {
	if c.nc.IsClosed() {
		return nil
	}
	if err := c.nc.FlushTimeout(time.Second); err != nil && err != nats.ErrConnectionClosed {
		slog.Debug("flushing nats connection", "error", err)
	}
	c.nc.Close()
	return nil
}
