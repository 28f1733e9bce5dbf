package actions

import (
	"slices"
	"strings"

	"github.com/pixil98/go-park/internal/park"
)

func setRidePrice(w park.WorldState, t Type, p ridePricePayload) (park.WorldState, error) {
	i, err := findRide(w, t, p.RideID)
	if err != nil {
		return w, err
	}
	if !(p.Price >= 0 && p.Price <= MaxRidePrice) {
		return w, invalidf(t, "ride price must be between 0 and %d", MaxRidePrice)
	}
	rides := slices.Clone(w.Rides)
	rides[i].Price = p.Price
	w.Rides = rides
	return w, nil
}

func placeRide(w park.WorldState, t Type, p placeRidePayload) (park.WorldState, error) {
	if p.RideID == "" {
		return w, invalid(t, "missing ride id")
	}
	if _, exists := w.Ride(p.RideID); exists {
		return w, invalidf(t, "ride %s already exists", p.RideID)
	}
	spec, ok := rideSpec(p.Kind)
	if !ok {
		return w, invalidf(t, "unknown ride kind %q", p.Kind)
	}
	if len(w.Rides) >= MaxRides {
		return w, invalidf(t, "the park already has %d rides", MaxRides)
	}
	if !w.Grid.Contains(p.X, p.Y) || !w.Grid.Contains(p.X+RideWidth-1, p.Y+RideHeight-1) {
		return w, invalidf(t, "a %s does not fit at %d,%d", spec.Name, p.X, p.Y)
	}
	for _, r := range w.Rides {
		if overlaps(r.X, r.Y, p.X, p.Y) {
			return w, invalidf(t, "%s is in the way", r.Name)
		}
	}
	if w.Finances.Cash < spec.Cost {
		return w, invalidf(t, "a %s costs %.0f", spec.Name, spec.Cost)
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = spec.Name
	}

	w.Finances.Spend(spec.Cost)
	rides := make([]park.Ride, len(w.Rides), len(w.Rides)+1)
	copy(rides, w.Rides)
	w.Rides = append(rides, park.Ride{
		ID:          p.RideID,
		Kind:        spec.Kind,
		Name:        name,
		X:           p.X,
		Y:           p.Y,
		Status:      park.RideTesting,
		Capacity:    spec.Capacity,
		Uptime:      1,
		RideSeconds: spec.RideSeconds,
		Price:       spec.Price,
		Upkeep:      spec.Upkeep,
		Trains:      spec.Trains,
		Track:       park.DefaultTrack(p.X, p.Y),
		CreatedAtMs: w.ElapsedMs,
	})
	return w, nil
}

// overlaps reports whether two ride footprints anchored at the given corners intersect.
func overlaps(ax, ay, bx, by int) bool {
	return ax < bx+RideWidth && bx < ax+RideWidth && ay < by+RideHeight && by < ay+RideHeight
}

func removeRide(w park.WorldState, t Type, p rideRefPayload) (park.WorldState, error) {
	i, err := findRide(w, t, p.RideID)
	if err != nil {
		return w, err
	}
	// Guests and vehicles still pointing at the ride are cleaned up by the
	// next tick.
	w.Rides = slices.Delete(slices.Clone(w.Rides), i, i+1)
	return w, nil
}

func openRide(w park.WorldState, t Type, p rideRefPayload) (park.WorldState, error) {
	i, err := findRide(w, t, p.RideID)
	if err != nil {
		return w, err
	}
	r := w.Rides[i]
	switch {
	case r.Status == park.RideTesting, !r.Tested(w.ElapsedMs):
		return w, invalidf(t, "%s is still testing", r.Name)
	case r.Status == park.RideBroken:
		return w, invalidf(t, "%s needs a mechanic", r.Name)
	}
	return setRideStatus(w, t, i, park.RideOpen)
}

func closeRide(w park.WorldState, t Type, p rideRefPayload) (park.WorldState, error) {
	i, err := findRide(w, t, p.RideID)
	if err != nil {
		return w, err
	}
	return setRideStatus(w, t, i, park.RideClosed)
}

func setRideStatus(w park.WorldState, t Type, i int, status park.RideStatus) (park.WorldState, error) {
	r, err := w.Rides[i].Transition(status)
	if err != nil {
		return w, invalid(t, err.Error())
	}
	rides := slices.Clone(w.Rides)
	rides[i] = r
	w.Rides = rides
	return w, nil
}

func findRide(w park.WorldState, t Type, id string) (int, error) {
	if id == "" {
		return -1, invalid(t, "missing ride id")
	}
	for i, r := range w.Rides {
		if r.ID == id {
			return i, nil
		}
	}
	return -1, invalidf(t, "no ride %s", id)
}
