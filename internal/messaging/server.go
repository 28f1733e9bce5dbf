package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// NatsServer is an embedded NATS broker that players in a room rendezvous on.
// Any park instance can host one; the others Dial its ClientURL.
type NatsServer struct {
	ns *server.Server

	startupTimeout time.Duration
	host           string
	port           int
	maxPayload     int32
}

func NewNatsServer(opts ...NatsServerOpt) (*NatsServer, error) {
	s := &NatsServer{
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
		port:           server.DEFAULT_PORT,
	}

	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:       s.host,
		Port:       s.port,
		MaxPayload: s.maxPayload,
		NoSigs:     true, // Let the application handle signals
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	s.ns = ns

	return s, nil
}

func (n *NatsServer) Start(ctx context.Context) error {
	n.ns.Start()

	if !n.ns.ReadyForConnections(n.startupTimeout) {
		n.ns.Shutdown()
		return fmt.Errorf("nats server not ready for connections")
	}

	slog.InfoContext(ctx, "nats server listening", "addr", n.ns.Addr())

	<-ctx.Done()
	n.ns.Shutdown()
	n.ns.WaitForShutdown()

	slog.InfoContext(ctx, "nats server stopped")
	return nil
}

// Ready blocks until the server accepts clients or d elapses.
func (n *NatsServer) Ready(d time.Duration) bool {
	return n.ns.ReadyForConnections(d)
}

// ClientURL is the address clients should Dial. It is only meaningful once
// the server is ready.
func (n *NatsServer) ClientURL() string {
	return n.ns.ClientURL()
}
