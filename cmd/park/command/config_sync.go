package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/messaging"
	"github.com/pixil98/go-park/internal/multiplayer"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/relay"
	"github.com/pixil98/go-park/internal/session"
)

type TransportType int

const (
	TransportNone TransportType = iota
	TransportNats
	TransportRelay
)

func (tt *TransportType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "none":
		*tt = TransportNone
	case "nats":
		*tt = TransportNats
	case "relay":
		*tt = TransportRelay
	default:
		return fmt.Errorf("unknown sync transport: %s", text)
	}
	return nil
}

// SyncConfig selects how this park reaches other players. An empty URL
// points at the embedded broker of the same kind.
type SyncConfig struct {
	Transport        TransportType `json:"transport"`
	URL              string        `json:"url"`
	JoinTimeout      string        `json:"join_timeout"`
	JoinSnapshotWait string        `json:"join_snapshot_wait"`
	DriftInterval    string        `json:"drift_interval"`
}

func (c *SyncConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(validDuration("sync: join_timeout", c.JoinTimeout, 0))
	el.Add(validDuration("sync: join_snapshot_wait", c.JoinSnapshotWait, 0))
	el.Add(validDuration("sync: drift_interval", c.DriftInterval, 0))
	return el.Err()
}

func (c *SyncConfig) transportURL(cfg *Config) (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	switch c.Transport {
	case TransportNats:
		if cfg.Nats.Embedded {
			return cfg.Nats.clientURL(), nil
		}
	case TransportRelay:
		if cfg.Relay.Embedded {
			return cfg.Relay.clientURL(), nil
		}
	}
	return "", fmt.Errorf("sync: url is required without an embedded broker")
}

// buildProvider returns nil when multiplayer is off. The brokers this may
// point at are started alongside the game, so neither transport insists on
// reaching them right away.
func (c *SyncConfig) buildProvider(cfg *Config, snapshot func() park.WorldState) (multiplayer.Provider, error) {
	if c.Transport == TransportNone {
		return nil, nil
	}

	url, err := c.transportURL(cfg)
	if err != nil {
		return nil, err
	}

	var t multiplayer.Transport
	switch c.Transport {
	case TransportNats:
		t, err = messaging.Dial(url, messaging.WithClientName(cfg.Park.Name), messaging.WithRetryOnFailedConnect())
	case TransportRelay:
		t, err = relay.Dial(url, relay.WithLazyConnect())
	default:
		return nil, fmt.Errorf("unknown sync transport: %v", c.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}

	opts := []multiplayer.PeerOpt{multiplayer.WithSnapshotSource(snapshot)}
	if d, ok := optionalDuration(c.JoinTimeout); ok {
		opts = append(opts, multiplayer.WithJoinTimeout(d))
	}

	return multiplayer.NewPeer(t, cfg.Park.playerName(), opts...), nil
}

func (c *SyncConfig) gameOpts(p multiplayer.Provider) []session.GameOpt {
	if p == nil {
		return nil
	}

	opts := []session.GameOpt{session.WithProvider(p)}
	if d, ok := optionalDuration(c.DriftInterval); ok {
		opts = append(opts, session.WithDriftInterval(d))
	}
	if d, ok := optionalDuration(c.JoinSnapshotWait); ok {
		opts = append(opts, session.WithJoinSnapshotWait(d))
	}
	return opts
}
