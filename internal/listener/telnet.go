package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/iammegalith/telnet"
)

// TelnetListener serves the console over telnet. Option negotiation is left
// to the telnet server; consoles see plain lines.
type TelnetListener struct {
	addr string
	cm   *ConnectionManager
}

func NewTelnetListener(host string, port uint16, cm *ConnectionManager) *TelnetListener {
	return &TelnetListener{
		addr: net.JoinHostPort(host, strconv.Itoa(int(port))),
		cm:   cm,
	}
}

func (l *TelnetListener) Start(ctx context.Context) error {
	consoles := &telnetConsoles{group: newSessionGroup(ctx), cm: l.cm}
	svr := telnet.NewServer(l.addr, consoles)

	unwatch := context.AfterFunc(ctx, func() { svr.Stop() })
	defer unwatch()

	slog.InfoContext(ctx, "console listening", "protocol", "telnet", "addr", l.addr)

	err := svr.ListenAndServe()
	consoles.group.stop()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("serving telnet: %w", listenError(l.addr, err))
	}
	return nil
}

// telnetConsoles runs a console for each telnet client.
type telnetConsoles struct {
	group *sessionGroup
	cm    *ConnectionManager
}

func (t *telnetConsoles) HandleTelnet(conn *telnet.Connection) {
	t.group.run(func(ctx context.Context) {
		defer func() {
			if err := conn.Close(); err != nil {
				slog.DebugContext(ctx, "closing telnet connection", "error", err)
			}
		}()
		t.cm.AcceptConnection(ctx, conn)
	})
}
