package park

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestDispatchCapacity(t *testing.T) {
	tests := map[string]struct {
		capacity int
		uptime   float64
		exp      int
	}{
		"full uptime":       {capacity: 20, uptime: 1, exp: 10},
		"worn":              {capacity: 20, uptime: 0.8, exp: 8},
		"never below one":   {capacity: 1, uptime: 0.01, exp: 1},
		"zero uptime":       {capacity: 6, uptime: 0, exp: 1},
		"uptime clamped":    {capacity: 10, uptime: 3, exp: 5},
		"zero capacity":     {capacity: 0, uptime: 1, exp: 0},
		"negative capacity": {capacity: -4, uptime: 1, exp: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "dispatch", DispatchCapacity(tt.capacity, tt.uptime), tt.exp)
		})
	}
}

func TestEstimateQueueWaitMinutes(t *testing.T) {
	tests := map[string]struct {
		queue       int
		rideSeconds float64
		capacity    int
		uptime      float64
		exp         int
	}{
		"typical ride": {
			queue: 8, rideSeconds: 90, capacity: 20, uptime: 0.8,
			exp: 2,
		},
		"empty queue": {
			queue: 0, rideSeconds: 90, capacity: 20, uptime: 0.8,
			exp: 0,
		},
		"short ride counts as a minute": {
			queue: 10, rideSeconds: 5, capacity: 20, uptime: 1,
			exp: 1,
		},
		"long queue": {
			queue: 100, rideSeconds: 120, capacity: 8, uptime: 1,
			exp: 50,
		},
		"no capacity": {
			queue: 30, rideSeconds: 60, capacity: 0, uptime: 1,
			exp: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := EstimateQueueWaitMinutes(tt.queue, tt.rideSeconds, tt.capacity, tt.uptime)
			testutil.AssertEqual(t, "wait", got, tt.exp)
		})
	}
}

func TestEstimateQueueWaitMinutes_Monotonic(t *testing.T) {
	for _, capacity := range []int{1, 4, 12, 32} {
		for _, uptime := range []float64{0.2, 0.6, 1} {
			prev := 0
			for q := range 200 {
				got := EstimateQueueWaitMinutes(q, 75, capacity, uptime)
				if got < 0 {
					t.Fatalf("capacity %d uptime %v queue %d: negative wait %d", capacity, uptime, q, got)
				}
				if got < prev {
					t.Fatalf("capacity %d uptime %v queue %d: wait dropped from %d to %d", capacity, uptime, q, prev, got)
				}
				prev = got
			}
		}
	}
}

func TestRide_WaitMinutes(t *testing.T) {
	r := Ride{
		Capacity:    20,
		Uptime:      0.8,
		RideSeconds: 90,
		Queue:       []string{"a", "b", "c", "d", "e", "f", "g", "h"},
	}

	testutil.AssertEqual(t, "dispatch", r.DispatchCapacity(), 8)
	testutil.AssertEqual(t, "wait", r.WaitMinutes(), 2)
}
