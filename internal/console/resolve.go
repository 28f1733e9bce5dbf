package console

import (
	"strings"

	"github.com/pixil98/go-park/internal/park"
)

// resolveRide finds a ride by id, id prefix or name.
func resolveRide(w park.WorldState, ref string) (park.Ride, error) {
	var matches []park.Ride
	for _, r := range w.Rides {
		if r.ID == ref {
			return r, nil
		}
		if strings.HasPrefix(r.ID, ref) || strings.EqualFold(r.Name, ref) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return park.Ride{}, userErrorf("No ride matches %q.", ref)
	case 1:
		return matches[0], nil
	default:
		return park.Ride{}, userErrorf("%q matches %d rides, be more specific.", ref, len(matches))
	}
}

// resolveStaff finds a staff member by id or id prefix.
func resolveStaff(w park.WorldState, ref string) (park.Staff, error) {
	var matches []park.Staff
	for _, st := range w.Staff {
		if st.ID == ref {
			return st, nil
		}
		if strings.HasPrefix(st.ID, ref) {
			matches = append(matches, st)
		}
	}

	switch len(matches) {
	case 0:
		return park.Staff{}, userErrorf("Nobody on staff matches %q.", ref)
	case 1:
		return matches[0], nil
	default:
		return park.Staff{}, userErrorf("%q matches %d staff, be more specific.", ref, len(matches))
	}
}
