package command

import (
	"fmt"
	"net"
	"strings"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/relay"
)

const defaultRelayAddr = "127.0.0.1:4280"

// RelayConfig runs a websocket relay inside this process, for players who
// cannot reach a NATS broker.
type RelayConfig struct {
	Embedded     bool   `json:"embedded"`
	Addr         string `json:"addr"`
	Path         string `json:"path"`
	SendBuffer   int    `json:"send_buffer"`
	MaxMessage   int64  `json:"max_message"`
	PingInterval string `json:"ping_interval"`
}

func (c *RelayConfig) validate() error {
	if !c.Embedded {
		return nil
	}

	el := errors.NewErrorList()

	if c.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Addr); err != nil {
			el.Add(fmt.Errorf("relay: addr: %w", err))
		}
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		el.Add(fmt.Errorf("relay: path must start with /"))
	}
	if c.SendBuffer < 0 {
		el.Add(fmt.Errorf("relay: send_buffer cannot be negative"))
	}
	if c.MaxMessage < 0 {
		el.Add(fmt.Errorf("relay: max_message cannot be negative"))
	}
	el.Add(validDuration("relay: ping_interval", c.PingInterval, 0))

	return el.Err()
}

func (c *RelayConfig) clientURL() string {
	addr := c.Addr
	if addr == "" {
		addr = defaultRelayAddr
	}
	if host, port, err := net.SplitHostPort(addr); err == nil && (host == "" || host == "0.0.0.0") {
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	path := c.Path
	if path == "" {
		path = "/relay"
	}
	return "ws://" + addr + path
}

func (c *RelayConfig) buildServer() *relay.Server {
	var opts []relay.ServerOpt
	if c.Addr != "" {
		opts = append(opts, relay.WithAddr(c.Addr))
	}
	if c.Path != "" {
		opts = append(opts, relay.WithPath(c.Path))
	}
	if c.SendBuffer != 0 {
		opts = append(opts, relay.WithSendBuffer(c.SendBuffer))
	}
	if c.MaxMessage != 0 {
		opts = append(opts, relay.WithMaxMessage(c.MaxMessage))
	}
	if d, ok := optionalDuration(c.PingInterval); ok {
		opts = append(opts, relay.WithPingInterval(d))
	}
	return relay.NewServer(opts...)
}
