package actions

import (
	"slices"

	"github.com/pixil98/go-park/internal/park"
)

func hireStaff(w park.WorldState, t Type, p hirePayload) (park.WorldState, error) {
	if p.StaffID == "" {
		return w, invalid(t, "missing staff id")
	}
	if p.Role.Wage() == 0 {
		return w, invalidf(t, "unknown role %q", p.Role)
	}
	if len(w.Staff) >= MaxStaff {
		return w, invalidf(t, "the park already employs %d staff", MaxStaff)
	}
	for _, s := range w.Staff {
		if s.ID == p.StaffID {
			return w, invalidf(t, "staff %s already hired", p.StaffID)
		}
	}

	gate := w.Grid.Entrance()
	staff := make([]park.Staff, len(w.Staff), len(w.Staff)+1)
	copy(staff, w.Staff)
	w.Staff = append(staff, park.Staff{
		ID:      p.StaffID,
		Role:    p.Role,
		X:       gate.X,
		Y:       gate.Y,
		TargetX: gate.X,
		TargetY: gate.Y,
		Wage:    p.Role.Wage(),
	})
	return w, nil
}

func fireStaff(w park.WorldState, t Type, p staffRefPayload) (park.WorldState, error) {
	i := slices.IndexFunc(w.Staff, func(s park.Staff) bool { return s.ID == p.StaffID })
	if p.StaffID == "" || i < 0 {
		return w, invalidf(t, "no staff %q", p.StaffID)
	}
	w.Staff = slices.Delete(slices.Clone(w.Staff), i, i+1)
	return w, nil
}
