package park

import "math"

// MaxDeltaSeconds caps a single frame so a stalled caller cannot fast-forward the park.
const MaxDeltaSeconds = 5.0

// Subsystem advances one slice of the world by dt scaled seconds.
type Subsystem func(w WorldState, dt float64) WorldState

// subsystems run in this order on every tick.
var subsystems = []Subsystem{
	syncVehicles,
	moveVehicles,
	updateRides,
	updateGuests,
	updateStaff,
	updateClouds,
	updateRating,
}

// Advance produces the snapshot that follows w after deltaSeconds of real
// time. A paused park is returned unchanged.
func Advance(w WorldState, deltaSeconds float64) WorldState {
	if w.Speed <= 0 {
		return w
	}
	if deltaSeconds < 0 || math.IsNaN(deltaSeconds) {
		deltaSeconds = 0
	}
	deltaSeconds = min(deltaSeconds, MaxDeltaSeconds)

	next := w
	next.Tick++
	next.ElapsedMs += int64(math.Round(deltaSeconds * 1000))

	cal, days := AdvanceCalendar(w.Calendar(), deltaSeconds, w.Speed)
	next.setCalendar(cal)
	for range days {
		next = settleDay(next)
	}

	scaled := deltaSeconds * float64(w.Speed)
	for _, step := range subsystems {
		next = step(next, scaled)
	}
	return next
}
