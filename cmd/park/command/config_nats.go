package command

import (
	"fmt"
	"net"
	"strconv"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/messaging"
)

// NatsConfig runs a NATS broker inside this process so other parks can
// join rooms hosted here.
type NatsConfig struct {
	Embedded     bool   `json:"embedded"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
	MaxPayload   int32  `json:"max_payload"`
}

func (c *NatsConfig) validate() error {
	if !c.Embedded {
		return nil
	}

	el := errors.NewErrorList()

	el.Add(validDuration("nats: start_timeout", c.StartTimeout, 0))
	if c.Port < 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("nats: port %d is out of range", c.Port))
	}
	if c.MaxPayload < 0 {
		el.Add(fmt.Errorf("nats: max_payload cannot be negative"))
	}

	return el.Err()
}

func (c *NatsConfig) clientURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = server.DEFAULT_PORT
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if d, ok := optionalDuration(c.StartTimeout); ok {
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}
	if c.MaxPayload != 0 {
		opts = append(opts, messaging.WithMaxPayload(c.MaxPayload))
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}
