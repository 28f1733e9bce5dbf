package listener

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/pixil98/go-park/internal/console"
)

// ConnectionManager runs a console session for each accepted connection.
type ConnectionManager struct {
	handler *console.Handler
	opts    []console.SessionOpt
	active  atomic.Int64
}

func NewConnectionManager(h *console.Handler, opts ...console.SessionOpt) *ConnectionManager {
	return &ConnectionManager{
		handler: h,
		opts:    opts,
	}
}

// Active reports how many consoles are connected.
func (m *ConnectionManager) Active() int {
	return int(m.active.Load())
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	slog.InfoContext(ctx, "console connected", "active", n)

	if err := console.NewSession(conn, m.handler, m.opts...).Run(ctx); err != nil {
		slog.WarnContext(ctx, "console session", "error", err)
	}
	slog.InfoContext(ctx, "console disconnected")
}
