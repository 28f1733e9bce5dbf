package park

import (
	"fmt"
	"math"
	"slices"
)

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	RideTesting RideStatus = "testing"
	RideOpen    RideStatus = "open"
	RideClosed  RideStatus = "closed"
	RideBroken  RideStatus = "broken"
)

// rideTransitions lists every status change a ride may make.
// Nothing ever transitions back into testing.
var rideTransitions = map[RideStatus][]RideStatus{
	RideTesting: {RideOpen, RideClosed},
	RideOpen:    {RideClosed, RideBroken},
	RideClosed:  {RideOpen},
	RideBroken:  {RideOpen, RideClosed},
}

// Valid reports whether s is a known status.
func (s RideStatus) Valid() bool {
	_, ok := rideTransitions[s]
	return ok
}

// CanTransition reports whether a ride may move from s to next.
func (s RideStatus) CanTransition(next RideStatus) bool {
	return slices.Contains(rideTransitions[s], next)
}

// Tested reports whether the ride has run its test cycles by elapsedMs of park
// time. A ride closed while testing still has to wait out the dwell.
func (r Ride) Tested(elapsedMs int64) bool {
	return elapsedMs-r.CreatedAtMs >= TestingDwellMs
}

// Operating reports whether vehicles run and guests board.
func (s RideStatus) Operating() bool {
	return s == RideTesting || s == RideOpen
}

// UnmarshalText rejects unknown statuses.
func (s *RideStatus) UnmarshalText(text []byte) error {
	st := RideStatus(text)
	if !st.Valid() {
		return fmt.Errorf("unknown ride status: %s", text)
	}
	*s = st
	return nil
}

const (
	// TestingDwellMs is how long a new ride runs test cycles before opening.
	TestingDwellMs = 20000

	breakdownUptime = 0.35
	recoveredUptime = 0.75
	// wearPerSecond is the uptime lost per second of operation.
	wearPerSecond = 0.0005
)

// Point is a position in tile coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ride is a placed attraction with its own guest queue.
type Ride struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Name        string     `json:"name"`
	X           int        `json:"x"`
	Y           int        `json:"y"`
	Status      RideStatus `json:"status"`
	Capacity    int        `json:"capacity"`
	Uptime      float64    `json:"uptime"`
	RideSeconds float64    `json:"ride_seconds"`
	Price       float64    `json:"price"`
	Upkeep      float64    `json:"upkeep"`
	Trains      int        `json:"trains"`
	Track       []Point    `json:"track"`
	CreatedAtMs int64      `json:"created_at_ms"`
	CycleTimer  float64    `json:"cycle_timer"`

	// Queue holds guest ids in arrival order. Ids are references, not
	// ownership: a guest that has left simply no longer resolves.
	Queue       []string `json:"queue"`
	Riders      []string `json:"riders"`
	TotalRiders int      `json:"total_riders"`
}

// QueueLength is the number of entries waiting, including any that no longer resolve.
func (r Ride) QueueLength() int {
	return len(r.Queue)
}

// DispatchCapacity is the number of guests the ride boards per cycle.
func (r Ride) DispatchCapacity() int {
	return DispatchCapacity(r.Capacity, r.Uptime)
}

// WaitMinutes estimates how long a guest joining the queue now will wait.
func (r Ride) WaitMinutes() int {
	return EstimateQueueWaitMinutes(r.QueueLength(), r.RideSeconds, r.Capacity, r.Uptime)
}

// transition moves the ride to next if the table allows it.
func (r Ride) transition(next RideStatus) (Ride, bool) {
	if !r.Status.CanTransition(next) {
		return r, false
	}
	r.Status = next
	return r, true
}

// Transition is the exported form used by player actions.
func (r Ride) Transition(next RideStatus) (Ride, error) {
	nr, ok := r.transition(next)
	if !ok {
		return r, fmt.Errorf("ride %s cannot go from %s to %s", r.ID, r.Status, next)
	}
	return nr, nil
}

// DefaultTrack builds a rectangular loop around the ride's footprint.
func DefaultTrack(x, y int) []Point {
	fx, fy := float64(x), float64(y)
	return []Point{
		{fx, fy},
		{fx + 3, fy},
		{fx + 3, fy + 2},
		{fx, fy + 2},
	}
}

// trackLength returns the closed loop length of a track.
func trackLength(track []Point) float64 {
	if len(track) < 2 {
		return 0
	}
	total := 0.0
	for i := range track {
		a, b := track[i], track[(i+1)%len(track)]
		total += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return total
}

// pointAlong returns the position at progress ∈ [0,1) around a closed track.
func pointAlong(track []Point, progress float64) Point {
	switch len(track) {
	case 0:
		return Point{}
	case 1:
		return track[0]
	}
	dist := progress * trackLength(track)
	for i := range track {
		a, b := track[i], track[(i+1)%len(track)]
		seg := math.Hypot(b.X-a.X, b.Y-a.Y)
		if dist <= seg && seg > 0 {
			t := dist / seg
			return Point{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
		}
		dist -= seg
	}
	return track[0]
}

// updateRides runs status transitions, wear, queue pruning and boarding.
func updateRides(w WorldState, dt float64) WorldState {
	if len(w.Rides) == 0 {
		return w
	}

	rides := make([]Ride, len(w.Rides))
	copy(rides, w.Rides)
	guests := slices.Clone(w.Guests)
	gidx := w.guestIndex()

	for i := range rides {
		r := rides[i]

		switch r.Status {
		case RideTesting:
			if r.Tested(w.ElapsedMs) {
				r, _ = r.transition(RideOpen)
			}
		case RideOpen:
			if r.Uptime < breakdownUptime {
				r, _ = r.transition(RideBroken)
			}
		case RideBroken:
			if r.Uptime >= recoveredUptime {
				r, _ = r.transition(RideOpen)
			}
		}

		r.Queue = pruneQueue(r.Queue, r.ID, guests, gidx)

		if r.Status.Operating() {
			r.Uptime = clamp01(r.Uptime - wearPerSecond*dt)
		}

		if r.Status == RideOpen {
			r.CycleTimer -= dt
			if r.CycleTimer <= 0 {
				r = finishCycle(r, guests, gidx)
				r = boardRiders(r, guests, gidx, &w.Finances)
				r.CycleTimer = max(1, r.RideSeconds)
			}
		}

		rides[i] = r
	}

	w.Rides = rides
	w.Guests = guests
	return w
}

// pruneQueue drops ids of guests who are gone or no longer waiting for this ride.
func pruneQueue(queue []string, rideID string, guests []Guest, gidx map[string]int) []string {
	if len(queue) == 0 {
		return queue
	}
	kept := make([]string, 0, len(queue))
	for _, id := range queue {
		i, ok := gidx[id]
		if !ok {
			continue
		}
		g := guests[i]
		if g.State != GuestQueueing || g.RideID != rideID {
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

// finishCycle releases the riders of the previous cycle.
func finishCycle(r Ride, guests []Guest, gidx map[string]int) Ride {
	for _, id := range r.Riders {
		i, ok := gidx[id]
		if !ok {
			continue
		}
		g := guests[i]
		if g.State != GuestRiding || g.RideID != r.ID {
			continue
		}
		g.State = GuestWalking
		g.RideID = ""
		g.Timer = 0
		g.Happiness = clampNeed(g.Happiness + rideJoy)
		g.X, g.Y = float64(r.X), float64(r.Y)
		guests[i] = g
	}
	r.Riders = nil
	return r
}

// boardRiders moves up to DispatchCapacity guests from the front of the queue onto the ride.
func boardRiders(r Ride, guests []Guest, gidx map[string]int, fin *Finances) Ride {
	n := min(r.DispatchCapacity(), len(r.Queue))
	if n == 0 {
		return r
	}
	riders := make([]string, 0, n)
	for _, id := range r.Queue[:n] {
		i := gidx[id]
		g := guests[i]
		if g.Wallet < r.Price {
			g.State = GuestWalking
			g.RideID = ""
			g.Happiness = clampNeed(g.Happiness - priceAnger)
			guests[i] = g
			continue
		}
		g.Wallet -= r.Price
		fin.Earn(r.Price)
		g.State = GuestRiding
		g.Timer = r.RideSeconds
		guests[i] = g
		riders = append(riders, id)
	}
	r.Queue = slices.Clone(r.Queue[n:])
	r.Riders = riders
	r.TotalRiders += len(riders)
	return r
}
