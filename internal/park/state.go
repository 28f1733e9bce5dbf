package park

import (
	"fmt"
	"math"

	"github.com/pixil98/go-errors"
)

const (
	MaxNeed = 255

	DefaultGridWidth  = 48
	DefaultGridHeight = 32
	DefaultCash       = 10000
	DefaultEntryPrice = 10
	DefaultFunding    = 0.5
)

// WorldState is a complete snapshot of a park at one point in time.
// Values are never mutated once published; every tick and every action
// produces a new WorldState.
type WorldState struct {
	Name string `json:"name"`

	Hour  float64 `json:"hour"`
	Day   int     `json:"day"`
	Month int     `json:"month"`
	Year  int     `json:"year"`

	Tick      uint64 `json:"tick"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Speed     int    `json:"speed"`

	Finances   Finances `json:"finances"`
	Funding    float64  `json:"funding"`
	EntryPrice float64  `json:"entry_price"`

	Grid     Grid      `json:"grid"`
	Guests   []Guest   `json:"guests"`
	Staff    []Staff   `json:"staff"`
	Rides    []Ride    `json:"rides"`
	Vehicles []Vehicle `json:"vehicles"`
	Clouds   []Cloud   `json:"clouds"`

	Rating int `json:"rating"`

	Seed       uint64  `json:"seed"`
	NextID     uint64  `json:"next_id"`
	CloudTimer float64 `json:"cloud_timer"`
}

// Finances tracks the park's cash and the running totals for the current day.
type Finances struct {
	Cash           float64 `json:"cash"`
	DailyIncome    float64 `json:"daily_income"`
	DailyExpense   float64 `json:"daily_expense"`
	LastDayIncome  float64 `json:"last_day_income"`
	LastDayExpense float64 `json:"last_day_expense"`
}

// Earn adds income to cash and the daily accumulator.
func (f *Finances) Earn(amount float64) {
	if amount <= 0 {
		return
	}
	f.Cash += amount
	f.DailyIncome += amount
}

// Spend removes amount from cash, clamping at zero.
func (f *Finances) Spend(amount float64) {
	if amount <= 0 {
		return
	}
	f.DailyExpense += amount
	f.Cash = max(0, f.Cash-amount)
}

// Grid is the park's tile map stored row-major.
type Grid struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"`
}

// Tile holds the decorative or structural elements placed on one grid cell.
type Tile struct {
	Elements []Element `json:"elements"`
}

// Element is a single placed item on a tile.
type Element struct {
	Kind string `json:"kind"`
}

const (
	ElementPath    = "path"
	ElementTree    = "tree"
	ElementFlowers = "flowers"
	ElementFence   = "fence"
	ElementBench   = "bench"
)

// IsScenery reports whether the element contributes to the scenery rating.
func (e Element) IsScenery() bool {
	switch e.Kind {
	case ElementTree, ElementFlowers, ElementBench:
		return true
	}
	return false
}

// NewGrid returns an empty grid of the given size.
func NewGrid(w, h int) Grid {
	return Grid{Width: w, Height: h, Tiles: make([]Tile, w*h)}
}

// Contains reports whether the tile coordinate is on the grid.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// At returns the tile at x,y. The coordinate must be on the grid.
func (g Grid) At(x, y int) Tile {
	return g.Tiles[y*g.Width+x]
}

// SceneryCount counts scenery elements across the grid.
func (g Grid) SceneryCount() int {
	n := 0
	for _, t := range g.Tiles {
		for _, e := range t.Elements {
			if e.IsScenery() {
				n++
			}
		}
	}
	return n
}

// WithElement returns a copy of the grid with el appended to the tile at x,y.
func (g Grid) WithElement(x, y int, el Element) Grid {
	tiles := make([]Tile, len(g.Tiles))
	copy(tiles, g.Tiles)
	i := y*g.Width + x
	elems := make([]Element, len(tiles[i].Elements), len(tiles[i].Elements)+1)
	copy(elems, tiles[i].Elements)
	tiles[i] = Tile{Elements: append(elems, el)}
	g.Tiles = tiles
	return g
}

// WithoutElements returns a copy of the grid with the tile at x,y cleared.
func (g Grid) WithoutElements(x, y int) Grid {
	tiles := make([]Tile, len(g.Tiles))
	copy(tiles, g.Tiles)
	tiles[y*g.Width+x] = Tile{}
	g.Tiles = tiles
	return g
}

// Options configure a new park.
type Options struct {
	Name   string
	Width  int
	Height int
	Cash   float64
	Seed   uint64
}

// New creates the initial state for a fresh park.
func New(opts Options) WorldState {
	if opts.Width <= 0 {
		opts.Width = DefaultGridWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultGridHeight
	}
	if opts.Cash <= 0 {
		opts.Cash = DefaultCash
	}
	if opts.Name == "" {
		opts.Name = "New Park"
	}

	return WorldState{
		Name:       opts.Name,
		Hour:       9,
		Day:        1,
		Month:      1,
		Year:       1,
		Speed:      1,
		Finances:   Finances{Cash: opts.Cash},
		Funding:    DefaultFunding,
		EntryPrice: DefaultEntryPrice,
		Grid:       NewGrid(opts.Width, opts.Height),
		Rating:     minRating,
		Seed:       opts.Seed,
		NextID:     1,
	}
}

// Validate checks the invariants every published snapshot must satisfy.
func (w WorldState) Validate() error {
	el := errors.NewErrorList()

	if w.Hour < 0 || w.Hour >= HoursPerDay {
		el.Add(fmt.Errorf("hour %v out of range", w.Hour))
	}
	if w.Day < 1 || w.Day > DaysPerMonth {
		el.Add(fmt.Errorf("day %d out of range", w.Day))
	}
	if w.Month < 1 || w.Month > MonthsPerYear {
		el.Add(fmt.Errorf("month %d out of range", w.Month))
	}
	if w.Speed < 0 || w.Speed > MaxSpeed {
		el.Add(fmt.Errorf("speed %d out of range", w.Speed))
	}
	if w.Finances.Cash < 0 {
		el.Add(fmt.Errorf("cash is negative"))
	}
	if w.Grid.Width < 0 || w.Grid.Height < 0 || len(w.Grid.Tiles) != w.Grid.Width*w.Grid.Height {
		el.Add(fmt.Errorf("grid is %dx%d with %d tiles", w.Grid.Width, w.Grid.Height, len(w.Grid.Tiles)))
	}
	for _, g := range w.Guests {
		if !inNeedRange(g.Happiness) || !inNeedRange(g.Hunger) || !inNeedRange(g.Thirst) {
			el.Add(fmt.Errorf("guest %s needs out of range", g.ID))
		}
	}
	for _, r := range w.Rides {
		if !r.Status.Valid() {
			el.Add(fmt.Errorf("ride %s has invalid status %q", r.ID, r.Status))
		}
	}

	return el.Err()
}

// Ride returns the ride with the given id.
func (w WorldState) Ride(id string) (Ride, bool) {
	i := w.rideIndex(id)
	if i < 0 {
		return Ride{}, false
	}
	return w.Rides[i], true
}

// Guest returns the guest with the given id.
func (w WorldState) Guest(id string) (Guest, bool) {
	for _, g := range w.Guests {
		if g.ID == id {
			return g, true
		}
	}
	return Guest{}, false
}

func (w WorldState) rideIndex(id string) int {
	for i := range w.Rides {
		if w.Rides[i].ID == id {
			return i
		}
	}
	return -1
}

func (w WorldState) guestIndex() map[string]int {
	idx := make(map[string]int, len(w.Guests))
	for i, g := range w.Guests {
		idx[g.ID] = i
	}
	return idx
}

// nextID mints a deterministic id for an entity spawned by the simulation.
func (w *WorldState) nextID(prefix string) string {
	id := fmt.Sprintf("%s-%d", prefix, w.NextID)
	w.NextID++
	return id
}

func clampNeed(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(MaxNeed, max(0, v))
}

func inNeedRange(v float64) bool {
	return v >= 0 && v <= MaxNeed
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
