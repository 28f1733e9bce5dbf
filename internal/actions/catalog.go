package actions

import (
	"slices"

	"github.com/pixil98/go-park/internal/park"
)

const (
	// RideWidth and RideHeight are the tile footprint of every ride.
	RideWidth  = 4
	RideHeight = 3

	MaxRides          = 32
	MaxStaff          = 50
	MaxEntryPrice     = 100
	MaxRidePrice      = 20
	MaxParkNameLength = 40
	// MaxTileElements limits how much scenery can be stacked on one tile.
	MaxTileElements = 4
)

// RideSpec describes a buildable ride.
type RideSpec struct {
	Kind        string
	Name        string
	Cost        float64
	Capacity    int
	RideSeconds float64
	Price       float64
	Upkeep      float64
	Trains      int
}

var rideCatalog = []RideSpec{
	{Kind: "carousel", Name: "Carousel", Cost: 800, Capacity: 12, RideSeconds: 60, Price: 2, Upkeep: 15, Trains: 1},
	{Kind: "coaster", Name: "Roller Coaster", Cost: 3000, Capacity: 16, RideSeconds: 90, Price: 6, Upkeep: 60, Trains: 2},
	{Kind: "dodgems", Name: "Dodgems", Cost: 1000, Capacity: 10, RideSeconds: 75, Price: 3, Upkeep: 20, Trains: 4},
	{Kind: "drop", Name: "Drop Tower", Cost: 2000, Capacity: 8, RideSeconds: 45, Price: 5, Upkeep: 40, Trains: 1},
	{Kind: "wheel", Name: "Ferris Wheel", Cost: 1200, Capacity: 24, RideSeconds: 120, Price: 3, Upkeep: 25, Trains: 1},
}

// Rides lists the buildable rides ordered by kind.
func Rides() []RideSpec {
	return slices.Clone(rideCatalog)
}

func rideSpec(kind string) (RideSpec, bool) {
	for _, s := range rideCatalog {
		if s.Kind == kind {
			return s, true
		}
	}
	return RideSpec{}, false
}

var sceneryCosts = map[string]float64{
	park.ElementPath:    2,
	park.ElementTree:    10,
	park.ElementFlowers: 5,
	park.ElementFence:   8,
	park.ElementBench:   15,
}

// SceneryCost returns the price of placing one element of kind.
func SceneryCost(kind string) (float64, bool) {
	c, ok := sceneryCosts[kind]
	return c, ok
}
