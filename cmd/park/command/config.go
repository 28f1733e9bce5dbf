package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/driver"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/session"
)

type Config struct {
	Park      ParkConfig       `json:"park"`
	Driver    DriverConfig     `json:"driver"`
	Storage   StorageConfig    `json:"storage"`
	Sync      SyncConfig       `json:"sync"`
	Nats      NatsConfig       `json:"nats"`
	Relay     RelayConfig      `json:"relay"`
	Listeners []ListenerConfig `json:"listeners"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Park.validate())
	el.Add(c.Driver.validate())
	el.Add(c.Storage.validate())
	el.Add(c.Sync.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Relay.validate())

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	return el.Err()
}

// ParkConfig describes the park created when there is no save to restore.
type ParkConfig struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Cash   float64 `json:"cash"`
	Seed   uint64  `json:"seed"`
	Player string  `json:"player"`
}

func (c *ParkConfig) validate() error {
	el := errors.NewErrorList()

	if c.Name == "" {
		el.Add(fmt.Errorf("park: name is required"))
	}
	if c.Width < 0 || c.Height < 0 {
		el.Add(fmt.Errorf("park: width and height cannot be negative"))
	}
	if c.Cash < 0 {
		el.Add(fmt.Errorf("park: cash cannot be negative"))
	}

	return el.Err()
}

func (c *ParkConfig) options() park.Options {
	return park.Options{
		Name:   c.Name,
		Width:  c.Width,
		Height: c.Height,
		Cash:   c.Cash,
		Seed:   c.Seed,
	}
}

func (c *ParkConfig) gameOpts() []session.GameOpt {
	if c.Player == "" {
		return nil
	}
	return []session.GameOpt{session.WithLocalPlayer(c.Player)}
}

type DriverConfig struct {
	FrameLength string `json:"frame_length"`
	MaxFrame    string `json:"max_frame"`
}

func (c *DriverConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(validDuration("driver: frame_length", c.FrameLength, time.Millisecond))
	el.Add(validDuration("driver: max_frame", c.MaxFrame, time.Millisecond))
	return el.Err()
}

func (c *DriverConfig) buildDriver(managers ...driver.Manager) *driver.Driver {
	var opts []driver.DriverOpt
	if d, ok := optionalDuration(c.FrameLength); ok {
		opts = append(opts, driver.WithFrameLength(d))
	}
	if d, ok := optionalDuration(c.MaxFrame); ok {
		opts = append(opts, driver.WithMaxFrame(d))
	}
	return driver.NewDriver(managers, opts...)
}

// validDuration accepts an empty value, which keeps the default.
func validDuration(name, value string, min time.Duration) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	if d < min {
		return fmt.Errorf("%s must be at least %s", name, min)
	}
	return nil
}

// optionalDuration is only called on validated config.
func optionalDuration(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (c *ParkConfig) playerName() string {
	if c.Player == "" {
		return "player"
	}
	return c.Player
}
