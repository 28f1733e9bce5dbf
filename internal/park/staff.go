package park

import (
	"fmt"
	"math"
	"slices"
)

// StaffRole is the job a staff member is hired for.
type StaffRole string

const (
	RoleHandyman    StaffRole = "handyman"
	RoleMechanic    StaffRole = "mechanic"
	RoleEntertainer StaffRole = "entertainer"
)

// Wages are charged once per in-game day.
var roleWages = map[StaffRole]float64{
	RoleHandyman:    50,
	RoleMechanic:    80,
	RoleEntertainer: 60,
}

// Wage returns the daily wage for the role.
func (r StaffRole) Wage() float64 {
	return roleWages[r]
}

// UnmarshalText rejects unknown roles.
func (r *StaffRole) UnmarshalText(text []byte) error {
	role := StaffRole(text)
	if _, ok := roleWages[role]; !ok {
		return fmt.Errorf("unknown staff role: %s", text)
	}
	*r = role
	return nil
}

// Staff is an employee walking the park.
type Staff struct {
	ID      string    `json:"id"`
	Role    StaffRole `json:"role"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	TargetX float64   `json:"target_x"`
	TargetY float64   `json:"target_y"`
	Task    string    `json:"task,omitempty"`
	Wage    float64   `json:"wage"`
}

const (
	staffSpeed         = 2.0
	repairPerSecond    = 0.05
	repairReach        = 1.0
	entertainRadius    = 3.0
	entertainPerSecond = 2.0
	patrolReach        = 0.5
)

// updateStaff assigns tasks and moves staff toward them.
// Mechanics repair the ride with the lowest uptime.
func updateStaff(w WorldState, dt float64) WorldState {
	if len(w.Staff) == 0 {
		return w
	}

	rng := tickRand(w, saltStaff)
	staff := make([]Staff, len(w.Staff))
	copy(staff, w.Staff)
	var rides []Ride

	for i := range staff {
		s := staff[i]

		switch s.Role {
		case RoleMechanic:
			target := worstRide(w.Rides)
			if target < 0 {
				s.Task = ""
				break
			}
			r := w.Rides[target]
			s.Task = r.ID
			s.TargetX, s.TargetY = float64(r.X), float64(r.Y)
			s = stepStaff(s, dt)
			if math.Hypot(s.X-s.TargetX, s.Y-s.TargetY) <= repairReach {
				if rides == nil {
					rides = slices.Clone(w.Rides)
				}
				rides[target].Uptime = clamp01(rides[target].Uptime + repairPerSecond*dt)
			}
		default:
			if s.Task == "" || math.Hypot(s.X-s.TargetX, s.Y-s.TargetY) <= patrolReach {
				s.TargetX = float64(rng.IntN(max(1, w.Grid.Width)))
				s.TargetY = float64(rng.IntN(max(1, w.Grid.Height)))
				s.Task = "patrol"
			}
			s = stepStaff(s, dt)
		}

		staff[i] = s
	}

	w.Staff = staff
	if rides != nil {
		w.Rides = rides
	}
	return w
}

// worstRide returns the index of the ride most in need of repair, or -1.
func worstRide(rides []Ride) int {
	best := -1
	for i, r := range rides {
		if r.Uptime >= 1 {
			continue
		}
		if best < 0 || r.Uptime < rides[best].Uptime {
			best = i
		}
	}
	return best
}

func stepStaff(s Staff, dt float64) Staff {
	dx, dy := s.TargetX-s.X, s.TargetY-s.Y
	d := math.Hypot(dx, dy)
	step := staffSpeed * dt
	if d <= step || d == 0 {
		s.X, s.Y = s.TargetX, s.TargetY
		return s
	}
	s.X += dx / d * step
	s.Y += dy / d * step
	return s
}
