package park

import "math"

const (
	minRating = 10
	maxRating = 100

	happinessWeight = 0.6
	varietyWeight   = 25.0
	// rideSaturation is the number of rides at which variety stops mattering.
	rideSaturation  = 8
	sceneryPerPoint = 4.0
	maxSceneryBonus = 15.0

	neutralHappiness = 50.0
)

// Rating blends guest happiness, ride variety and scenery into a 10–100 score.
func Rating(w WorldState) int {
	happiness := neutralHappiness
	if len(w.Guests) > 0 {
		total := 0.0
		for _, g := range w.Guests {
			total += g.Happiness
		}
		happiness = total / float64(len(w.Guests)) / MaxNeed * 100
	}

	variety := min(1, float64(len(w.Rides))/rideSaturation)
	scenery := min(maxSceneryBonus, float64(w.Grid.SceneryCount())/sceneryPerPoint)

	score := happinessWeight*happiness + varietyWeight*variety + scenery
	return min(maxRating, max(minRating, int(math.Round(score))))
}

func updateRating(w WorldState, _ float64) WorldState {
	w.Rating = Rating(w)
	return w
}
