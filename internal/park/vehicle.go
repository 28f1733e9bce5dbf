package park

import "fmt"

// Vehicle is a train or car running on a ride's track.
type Vehicle struct {
	ID       string  `json:"id"`
	RideID   string  `json:"ride_id"`
	Progress float64 `json:"progress"`
	Velocity float64 `json:"velocity"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

const (
	// cruiseSpeed is in tiles per second.
	cruiseSpeed = 4.0
	// brakeRate is how fast a vehicle on a stopped ride slows down, in tiles/s².
	brakeRate = 6.0
)

// syncVehicles matches the vehicle set to the rides: vehicles of removed
// rides are dropped, missing trains are spawned at even spacing and each
// vehicle's velocity follows its ride's operating state.
func syncVehicles(w WorldState, dt float64) WorldState {
	if len(w.Vehicles) == 0 && len(w.Rides) == 0 {
		return w
	}

	vehicles := make([]Vehicle, 0, len(w.Vehicles))
	counts := make(map[string]int, len(w.Rides))

	for _, v := range w.Vehicles {
		r, ok := w.Ride(v.RideID)
		if !ok || counts[r.ID] >= r.Trains {
			continue
		}
		counts[r.ID]++

		if r.Status.Operating() {
			v.Velocity = cruiseSpeed
		} else {
			v.Velocity = max(0, v.Velocity-brakeRate*dt)
		}
		p := pointAlong(r.Track, v.Progress)
		v.X, v.Y = p.X, p.Y
		vehicles = append(vehicles, v)
	}

	for _, r := range w.Rides {
		for n := counts[r.ID]; n < r.Trains; n++ {
			progress := float64(n) / float64(r.Trains)
			p := pointAlong(r.Track, progress)
			vehicles = append(vehicles, Vehicle{
				ID:       fmt.Sprintf("%s-train-%d", r.ID, n),
				RideID:   r.ID,
				Progress: progress,
				X:        p.X,
				Y:        p.Y,
			})
		}
	}

	w.Vehicles = vehicles
	return w
}

// moveVehicles integrates each vehicle along its ride's track.
func moveVehicles(w WorldState, dt float64) WorldState {
	if len(w.Vehicles) == 0 {
		return w
	}

	vehicles := make([]Vehicle, len(w.Vehicles))
	copy(vehicles, w.Vehicles)

	for i, v := range vehicles {
		r, ok := w.Ride(v.RideID)
		if !ok {
			continue
		}
		length := trackLength(r.Track)
		if length == 0 || v.Velocity == 0 {
			continue
		}
		v.Progress += v.Velocity * dt / length
		v.Progress -= float64(int(v.Progress))
		p := pointAlong(r.Track, v.Progress)
		v.X, v.Y = p.X, p.Y
		vehicles[i] = v
	}

	w.Vehicles = vehicles
	return w
}
