package park

import (
	"math"
	"math/rand/v2"
	"slices"
)

// GuestState is what a guest is currently doing.
type GuestState string

const (
	GuestWalking  GuestState = "walking"
	GuestQueueing GuestState = "queueing"
	GuestRiding   GuestState = "riding"
	GuestEating   GuestState = "eating"
	GuestDrinking GuestState = "drinking"
	GuestLeaving  GuestState = "leaving"
)

// Guest is a visitor inside the park.
type Guest struct {
	ID        string     `json:"id"`
	Happiness float64    `json:"happiness"`
	Hunger    float64    `json:"hunger"`
	Thirst    float64    `json:"thirst"`
	State     GuestState `json:"state"`
	Wallet    float64    `json:"wallet"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	RideID    string     `json:"ride_id,omitempty"`
	Timer     float64    `json:"timer"`
	Age       float64    `json:"age"`
}

const (
	MaxGuests = 400

	// spawnChancePerSecond is the base arrival rate at full funding.
	spawnChancePerSecond = 0.6
	// priceSensitivity is the entry price at which nobody comes in.
	priceSensitivity = 60

	hungerPerSecond  = 1.2
	thirstPerSecond  = 1.6
	boredomPerSecond = 0.4

	hungryAt  = 170
	thirstyAt = 170
	unhappyAt = 40

	foodPrice   = 4
	drinkPrice  = 3
	mealSeconds = 6

	rideJoy    = 35
	priceAnger = 15

	// maxVisitSeconds is how long a guest stays before heading home.
	maxVisitSeconds = 600
	walkSpeed       = 1.5
	exitReach       = 0.5
	riderGrace      = 30
)

// Entrance is where guests spawn and leave.
func (g Grid) Entrance() Point {
	return Point{X: 0, Y: float64(g.Height / 2)}
}

// updateGuests spawns arrivals, decays needs and advances each guest's activity.
func updateGuests(w WorldState, dt float64) WorldState {
	rng := tickRand(w, saltGuests)

	guests := make([]Guest, 0, len(w.Guests)+1)
	rides := slices.Clone(w.Rides)
	entrance := w.Grid.Entrance()

	for _, g := range w.Guests {
		g.Age += dt
		g.Hunger = clampNeed(g.Hunger + hungerPerSecond*dt)
		g.Thirst = clampNeed(g.Thirst + thirstPerSecond*dt)
		if g.Hunger >= hungryAt || g.Thirst >= thirstyAt {
			g.Happiness = clampNeed(g.Happiness - boredomPerSecond*dt*2)
		}

		g = entertain(g, w.Staff, dt)

		switch g.State {
		case GuestWalking:
			g = walk(g, w.Grid, rides, &w.Finances, rng, dt)
		case GuestQueueing:
			if r, ok := rideByID(rides, g.RideID); !ok || !r.Status.Operating() {
				g.State = GuestWalking
				g.RideID = ""
				g.Happiness = clampNeed(g.Happiness - priceAnger)
			} else {
				g.Happiness = clampNeed(g.Happiness - boredomPerSecond*dt)
			}
		case GuestRiding:
			g.Timer -= dt
			if _, ok := rideByID(rides, g.RideID); !ok || g.Timer < -riderGrace {
				g.State = GuestWalking
				g.RideID = ""
				g.Timer = 0
			}
		case GuestEating, GuestDrinking:
			g.Timer -= dt
			if g.Timer <= 0 {
				if g.State == GuestEating {
					g.Hunger = 0
				} else {
					g.Thirst = 0
				}
				g.Happiness = clampNeed(g.Happiness + 10)
				g.State = GuestWalking
				g.Timer = 0
			}
		case GuestLeaving:
			g = moveToward(g, entrance, walkSpeed*dt)
			if math.Hypot(g.X-entrance.X, g.Y-entrance.Y) <= exitReach {
				continue
			}
		}

		if g.State != GuestLeaving && g.State != GuestRiding && wantsToLeave(g) {
			g.State = GuestLeaving
			g.RideID = ""
		}

		guests = append(guests, g)
	}

	if len(guests) < MaxGuests && rng.Float64() < arrivalChance(w)*dt {
		wallet := 20 + float64(rng.IntN(80))
		if wallet > w.EntryPrice {
			wallet -= w.EntryPrice
			w.Finances.Earn(w.EntryPrice)
			guests = append(guests, Guest{
				ID:        w.nextID("guest"),
				Happiness: float64(150 + rng.IntN(60)),
				Hunger:    float64(rng.IntN(80)),
				Thirst:    float64(rng.IntN(80)),
				State:     GuestWalking,
				Wallet:    wallet,
				X:         entrance.X,
				Y:         entrance.Y,
			})
		}
	}

	w.Guests = guests
	w.Rides = rides
	return w
}

// arrivalChance is the per-second chance of a new guest arriving.
func arrivalChance(w WorldState) float64 {
	elasticity := max(0, 1-w.EntryPrice/priceSensitivity)
	appeal := float64(w.Rating) / 100
	return spawnChancePerSecond * (0.25 + 0.75*clamp01(w.Funding)) * elasticity * appeal
}

func wantsToLeave(g Guest) bool {
	return g.Happiness < unhappyAt || g.Wallet <= 0 || g.Age >= maxVisitSeconds
}

// walk decides the next activity for an idle guest and moves them around.
func walk(g Guest, grid Grid, rides []Ride, fin *Finances, rng *rand.Rand, dt float64) Guest {
	switch {
	case g.Hunger >= hungryAt && g.Wallet >= foodPrice:
		g.Wallet -= foodPrice
		fin.Earn(foodPrice)
		g.State = GuestEating
		g.Timer = mealSeconds
		return g
	case g.Thirst >= thirstyAt && g.Wallet >= drinkPrice:
		g.Wallet -= drinkPrice
		fin.Earn(drinkPrice)
		g.State = GuestDrinking
		g.Timer = mealSeconds
		return g
	}

	if open := openRides(rides); len(open) > 0 && rng.Float64() < 0.25*dt {
		i := open[rng.IntN(len(open))]
		r := rides[i]
		if g.Wallet >= r.Price && r.WaitMinutes() < 30 {
			g.State = GuestQueueing
			g.RideID = r.ID
			g.X, g.Y = float64(r.X), float64(r.Y)
			r.Queue = append(slices.Clone(r.Queue), g.ID)
			rides[i] = r
			return g
		}
	}

	angle := rng.Float64() * 2 * math.Pi
	g.X = min(float64(grid.Width-1), max(0, g.X+math.Cos(angle)*walkSpeed*dt))
	g.Y = min(float64(grid.Height-1), max(0, g.Y+math.Sin(angle)*walkSpeed*dt))
	return g
}

func openRides(rides []Ride) []int {
	var idx []int
	for i, r := range rides {
		if r.Status == RideOpen {
			idx = append(idx, i)
		}
	}
	return idx
}

func rideByID(rides []Ride, id string) (Ride, bool) {
	for _, r := range rides {
		if r.ID == id {
			return r, true
		}
	}
	return Ride{}, false
}

// entertain raises happiness for guests near an entertainer.
func entertain(g Guest, staff []Staff, dt float64) Guest {
	for _, s := range staff {
		if s.Role != RoleEntertainer {
			continue
		}
		if math.Hypot(s.X-g.X, s.Y-g.Y) <= entertainRadius {
			g.Happiness = clampNeed(g.Happiness + entertainPerSecond*dt)
			return g
		}
	}
	return g
}

func moveToward(g Guest, p Point, step float64) Guest {
	dx, dy := p.X-g.X, p.Y-g.Y
	d := math.Hypot(dx, dy)
	if d <= step || d == 0 {
		g.X, g.Y = p.X, p.Y
		return g
	}
	g.X += dx / d * step
	g.Y += dy / d * step
	return g
}
