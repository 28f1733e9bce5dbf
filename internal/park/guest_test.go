package park

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

// quietPark has no arrivals so guest behavior can be observed in isolation.
func quietPark(guests ...Guest) WorldState {
	w := New(Options{Seed: 9})
	w.EntryPrice = priceSensitivity
	w.Finances.Cash = 0
	w.Guests = guests
	return w
}

func TestUpdateGuests_Activities(t *testing.T) {
	tests := map[string]struct {
		guest     Guest
		rides     []Ride
		expState  GuestState
		expWallet float64
		expCash   float64
	}{
		"hungry guest buys food": {
			guest:     Guest{ID: "g", State: GuestWalking, Happiness: 150, Hunger: 200, Wallet: 10, X: 5, Y: 5},
			expState:  GuestEating,
			expWallet: 10 - foodPrice,
			expCash:   foodPrice,
		},
		"thirsty guest buys a drink": {
			guest:     Guest{ID: "g", State: GuestWalking, Happiness: 150, Thirst: 200, Wallet: 10, X: 5, Y: 5},
			expState:  GuestDrinking,
			expWallet: 10 - drinkPrice,
			expCash:   drinkPrice,
		},
		"miserable guest leaves": {
			guest:     Guest{ID: "g", State: GuestWalking, Happiness: 10, Wallet: 10, X: 5, Y: 5},
			expState:  GuestLeaving,
			expWallet: 10,
		},
		"broke guest leaves": {
			guest:     Guest{ID: "g", State: GuestWalking, Happiness: 150, Wallet: 0, X: 5, Y: 5},
			expState:  GuestLeaving,
			expWallet: 0,
		},
		"queue for a closed ride is abandoned": {
			guest:     Guest{ID: "g", State: GuestQueueing, RideID: "r", Happiness: 150, Wallet: 10, X: 5, Y: 5},
			rides:     []Ride{{ID: "r", Status: RideClosed}},
			expState:  GuestWalking,
			expWallet: 10,
		},
		"queue for an open ride is kept": {
			guest:     Guest{ID: "g", State: GuestQueueing, RideID: "r", Happiness: 150, Wallet: 10, X: 5, Y: 5},
			rides:     []Ride{{ID: "r", Status: RideOpen}},
			expState:  GuestQueueing,
			expWallet: 10,
		},
		"rider of a removed ride walks off": {
			guest:     Guest{ID: "g", State: GuestRiding, RideID: "gone", Happiness: 150, Wallet: 10, Timer: 20, X: 5, Y: 5},
			expState:  GuestWalking,
			expWallet: 10,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := quietPark(tt.guest)
			w.Rides = tt.rides

			got := updateGuests(w, 0.1)

			g, ok := got.Guest("g")
			testutil.AssertEqual(t, "present", ok, true)
			testutil.AssertEqual(t, "state", g.State, tt.expState)
			testutil.AssertEqual(t, "wallet", g.Wallet, tt.expWallet)
			testutil.AssertEqual(t, "cash", got.Finances.Cash, tt.expCash)
		})
	}
}

func TestUpdateGuests_LeavingAtEntrance(t *testing.T) {
	w := quietPark()
	entrance := w.Grid.Entrance()
	w.Guests = []Guest{
		{ID: "at-gate", State: GuestLeaving, Happiness: 10, X: entrance.X, Y: entrance.Y},
		{ID: "far-away", State: GuestLeaving, Happiness: 10, X: 30, Y: entrance.Y},
	}

	got := updateGuests(w, 1)

	_, ok := got.Guest("at-gate")
	testutil.AssertEqual(t, "guest at gate removed", ok, false)

	g, ok := got.Guest("far-away")
	testutil.AssertEqual(t, "far guest kept", ok, true)
	testutil.AssertEqual(t, "far guest moved", g.X, 30-walkSpeed)
}

func TestUpdateGuests_NeedsStayInRange(t *testing.T) {
	w := quietPark(
		Guest{ID: "starving", State: GuestQueueing, RideID: "r", Happiness: 1, Hunger: 254, Thirst: 254, Wallet: 100},
		Guest{ID: "elated", State: GuestWalking, Happiness: 254, Wallet: 100, X: 5, Y: 5},
	)
	w.Rides = []Ride{{ID: "r", Status: RideOpen}}
	w.Staff = []Staff{{ID: "s", Role: RoleEntertainer, X: 5, Y: 5}}

	for i := range 200 {
		w = updateGuests(w, 5)
		for _, g := range w.Guests {
			if !inNeedRange(g.Happiness) || !inNeedRange(g.Hunger) || !inNeedRange(g.Thirst) {
				t.Fatalf("step %d: guest %s out of range: %+v", i, g.ID, g)
			}
		}
	}
}

func TestUpdateGuests_EntertainerCheers(t *testing.T) {
	w := quietPark(Guest{ID: "g", State: GuestEating, Timer: 100, Happiness: 100, Wallet: 10, X: 5, Y: 5})
	w.Staff = []Staff{{ID: "s", Role: RoleEntertainer, X: 6, Y: 5}}

	got := updateGuests(w, 1)

	g, _ := got.Guest("g")
	testutil.AssertEqual(t, "happiness", g.Happiness, 100+entertainPerSecond)
}

func TestUpdateGuests_Spawning(t *testing.T) {
	w := New(Options{Seed: 21})
	w.Rating = maxRating
	w.Funding = 1
	w.EntryPrice = 0

	for range 200 {
		w = updateGuests(w, 1)
		w.Tick++
	}

	if len(w.Guests) == 0 {
		t.Fatal("no guests arrived")
	}
	seen := map[string]bool{}
	for _, g := range w.Guests {
		if seen[g.ID] {
			t.Fatalf("duplicate guest id %s", g.ID)
		}
		seen[g.ID] = true
	}
}

func TestArrivalChance(t *testing.T) {
	tests := map[string]struct {
		price   float64
		funding float64
		rating  int
		expZero bool
	}{
		"free entry":       {price: 0, funding: 1, rating: 100},
		"priced out":       {price: priceSensitivity, funding: 1, rating: 100, expZero: true},
		"no marketing":     {price: 10, funding: 0, rating: 50},
		"dreadful reviews": {price: 10, funding: 1, rating: 0, expZero: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := New(Options{})
			w.EntryPrice = tt.price
			w.Funding = tt.funding
			w.Rating = tt.rating

			got := arrivalChance(w)

			testutil.AssertEqual(t, "zero", got == 0, tt.expZero)
			if got < 0 || got > spawnChancePerSecond {
				t.Errorf("chance %v out of range", got)
			}
		})
	}
}
