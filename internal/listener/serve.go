package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
)

// sessionGroup tracks the consoles opened through one listener. Consoles
// outlive the listener's own context so they can say goodbye, and stop
// ends them all together.
type sessionGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSessionGroup(parent context.Context) *sessionGroup {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &sessionGroup{ctx: ctx, cancel: cancel}
}

// run serves one console on the calling goroutine.
func (g *sessionGroup) run(fn func(context.Context)) {
	g.wg.Add(1)
	defer g.wg.Done()
	fn(g.ctx)
}

func (g *sessionGroup) stop() {
	g.cancel()
	g.wg.Wait()
}

// acceptLoop hands every connection on ln to serveConn until ctx ends, then
// closes ln and waits for the open consoles to finish.
func acceptLoop(ctx context.Context, ln net.Listener, serveConn func(context.Context, net.Conn)) {
	group := newSessionGroup(ctx)
	defer group.stop()

	unwatch := context.AfterFunc(ctx, func() { ln.Close() })
	defer unwatch()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.WarnContext(ctx, "accepting console connection", "addr", ln.Addr().String(), "error", err)
			continue
		}

		go group.run(func(ctx context.Context) {
			defer conn.Close()
			serveConn(ctx, conn)
		})
	}
}

func listenError(addr string, err error) error {
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("%s is already in use (another park running?)", addr)
	}
	return fmt.Errorf("listening on %s: %w", addr, err)
}
