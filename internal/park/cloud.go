package park

// Cloud is a purely decorative entity drifting over the park.
type Cloud struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale"`
}

const (
	CloudSpawnInterval = 8.0
	// CloudCullMargin is how far past the grid edge a cloud may drift before removal.
	CloudCullMargin = 4.0
	maxClouds       = 12
)

// updateClouds drifts clouds, culls those that left the grid and spawns new
// ones at the west edge on a fixed interval.
func updateClouds(w WorldState, dt float64) WorldState {
	clouds := make([]Cloud, 0, len(w.Clouds)+1)
	for _, c := range w.Clouds {
		c.X += c.VX * dt
		c.Y += c.VY * dt
		if outOfBounds(c, w.Grid) {
			continue
		}
		clouds = append(clouds, c)
	}

	w.CloudTimer += dt
	if w.CloudTimer >= CloudSpawnInterval {
		w.CloudTimer -= CloudSpawnInterval
		if len(clouds) < maxClouds {
			rng := tickRand(w, saltClouds)
			clouds = append(clouds, Cloud{
				ID:      w.nextID("cloud"),
				X:       -CloudCullMargin / 2,
				Y:       rng.Float64() * float64(w.Grid.Height),
				VX:      0.3 + rng.Float64()*0.7,
				VY:      (rng.Float64() - 0.5) * 0.2,
				Opacity: 0.3 + rng.Float64()*0.5,
				Scale:   0.8 + rng.Float64()*0.8,
			})
		}
	}

	w.Clouds = clouds
	return w
}

func outOfBounds(c Cloud, g Grid) bool {
	return c.X < -CloudCullMargin || c.Y < -CloudCullMargin ||
		c.X > float64(g.Width)+CloudCullMargin || c.Y > float64(g.Height)+CloudCullMargin
}
