package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
)

// Server relays published messages to every other client subscribed to the
// same subject.
type Server struct {
	addr         string
	path         string
	sendBuffer   int
	maxMessage   int64
	pingInterval time.Duration

	upgrader websocket.Upgrader

	mu       sync.RWMutex
	subjects map[string]map[*client]struct{}
	clients  map[*client]struct{}
}

func NewServer(opts ...ServerOpt) *Server {
	s := &Server{
		addr:         "127.0.0.1:4280",
		path:         "/relay",
		sendBuffer:   512,
		maxMessage:   4 << 20,
		pingInterval: 30 * time.Second,
		subjects:     make(map[string]map[*client]struct{}),
		clients:      make(map[*client]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.path, s)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	slog.InfoContext(ctx, "relay listening", "addr", ln.Addr().String(), "path", s.path)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving relay: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	s.disconnectAll()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutting down relay: %w", err)
	}
	slog.InfoContext(ctx, "relay stopped")
	return nil
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "relay upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, s.sendBuffer),
		done:   make(chan struct{}),
		server: s,
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	slog.DebugContext(r.Context(), "relay client connected", "client", c.id, "remote", r.RemoteAddr)

	go c.writeLoop(s.pingInterval)
	c.readLoop(r.Context(), s.maxMessage, s.pingInterval)

	s.drop(c)
	slog.DebugContext(r.Context(), "relay client disconnected", "client", c.id)
}

func (s *Server) subscribe(c *client, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; !ok {
		return
	}
	set, ok := s.subjects[subject]
	if !ok {
		set = make(map[*client]struct{})
		s.subjects[subject] = set
	}
	set[c] = struct{}{}
}

func (s *Server) unsubscribe(c *client, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c, subject)
}

func (s *Server) removeLocked(c *client, subject string) {
	set := s.subjects[subject]
	delete(set, c)
	if len(set) == 0 {
		delete(s.subjects, subject)
	}
}

func (s *Server) publish(from *client, subject string, data []byte) {
	msg, err := json.Marshal(frame{Op: opMessage, Subject: subject, Data: data})
	if err != nil {
		slog.Warn("relay marshalling message", "subject", subject, "error", err)
		return
	}

	s.mu.RLock()
	targets := make([]*client, 0, len(s.subjects[subject]))
	for c := range s.subjects[subject] {
		if c != from {
			targets = append(targets, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			slog.Warn("relay client too slow, dropping", "client", c.id, "subject", subject)
			s.drop(c)
		}
	}
}

// drop removes c from every subject and closes its connection.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c)
	for subject := range s.subjects {
		s.removeLocked(c, subject)
	}
	s.mu.Unlock()

	c.close()
}

func (s *Server) disconnectAll() {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		s.drop(c)
	}
}

// client is one websocket connection to the relay.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	server *Server
}

func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) readLoop(ctx context.Context, maxMessage int64, pingInterval time.Duration) {
	pongWait := pingInterval * 2
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "relay read failed", "client", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			slog.DebugContext(ctx, "discarding malformed frame", "client", c.id, "error", err)
			continue
		}
		if !validSubject(f.Subject) {
			slog.DebugContext(ctx, "discarding frame with bad subject", "client", c.id, "subject", f.Subject)
			continue
		}

		switch f.Op {
		case opSubscribe:
			c.server.subscribe(c, f.Subject)
		case opUnsubscribe:
			c.server.unsubscribe(c, f.Subject)
		case opPublish:
			c.server.publish(c, f.Subject, f.Data)
		default:
			slog.DebugContext(ctx, "discarding unknown frame", "client", c.id, "op", f.Op)
		}
	}
}

func (c *client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.server.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.server.drop(c)
				return
			}
		}
	}
}
