package driver

import (
	"context"
	"time"
)

const (
	DefaultFrameLength = time.Second / 20
	// DefaultMaxFrame caps the elapsed time reported for one frame, so a
	// process that was suspended does not fast-forward the park.
	DefaultMaxFrame = time.Second
)

// Manager is advanced once per frame by the time elapsed since the last one.
type Manager interface {
	Tick(ctx context.Context, elapsed time.Duration) error
}

type Driver struct {
	frameLength time.Duration
	maxFrame    time.Duration
	managers    []Manager
	now         func() time.Time
}

func NewDriver(managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		frameLength: DefaultFrameLength,
		maxFrame:    DefaultMaxFrame,
		managers:    managers,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.frameLength)
	defer ticker.Stop()

	last := d.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := d.now()
			err := d.Tick(ctx, now.Sub(last))
			if err != nil {
				return err
			}
			last = now
		}
	}
}

// Tick advances every manager by elapsed, clamped to [0, maxFrame].
func (d *Driver) Tick(ctx context.Context, elapsed time.Duration) error {
	elapsed = min(max(elapsed, 0), d.maxFrame)
	for _, m := range d.managers {
		if err := m.Tick(ctx, elapsed); err != nil {
			return err
		}
	}
	return nil
}
