package console

import (
	"strings"

	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
)

type statusView struct {
	Park        park.WorldState
	Room        room.Status
	Multiplayer bool
}

type roomView struct {
	Status room.Status
	Self   room.Player
}

type rideView struct {
	ID     string
	Name   string
	Status park.RideStatus
	Queue  int
	Wait   int
	Price  float64
	Uptime float64
}

func rideViews(w park.WorldState) []rideView {
	views := make([]rideView, 0, len(w.Rides))
	for _, r := range w.Rides {
		views = append(views, rideView{
			ID:     shortID(r.ID),
			Name:   r.Name,
			Status: r.Status,
			Queue:  r.QueueLength(),
			Wait:   park.EstimateQueueWaitMinutes(r.QueueLength(), r.RideSeconds, r.Capacity, r.Uptime),
			Price:  r.Price,
			Uptime: r.Uptime,
		})
	}
	return views
}

type staffView struct {
	ID   string
	Role park.StaffRole
	Wage float64
	Task string
}

func staffViews(w park.WorldState) []staffView {
	views := make([]staffView, 0, len(w.Staff))
	for _, st := range w.Staff {
		views = append(views, staffView{ID: shortID(st.ID), Role: st.Role, Wage: st.Wage, Task: st.Task})
	}
	return views
}

// shortID keeps the kind prefix and the first eight characters after it,
// which is enough to tell entities apart on screen.
func shortID(id string) string {
	i := strings.IndexByte(id, '-')
	if i < 0 || len(id) <= i+9 {
		return id
	}
	return id[:i+9]
}
