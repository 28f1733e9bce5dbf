package driver

import "time"

type DriverOpt func(*Driver)

func WithFrameLength(frameLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.frameLength = frameLength
	}
}

func WithMaxFrame(maxFrame time.Duration) DriverOpt {
	return func(d *Driver) {
		d.maxFrame = maxFrame
	}
}

// WithClock replaces the time source used to measure frames.
func WithClock(now func() time.Time) DriverOpt {
	return func(d *Driver) {
		d.now = now
	}
}
