package park

import (
	"math"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestAdvanceCalendar(t *testing.T) {
	tests := map[string]struct {
		cal     Calendar
		elapsed float64
		speed   int
		exp     Calendar
		expDays int
	}{
		"within the hour": {
			cal:     Calendar{Hour: 9, Day: 1, Month: 1, Year: 1},
			elapsed: 5,
			speed:   1,
			exp:     Calendar{Hour: 9.5, Day: 1, Month: 1, Year: 1},
		},
		"speed multiplies": {
			cal:     Calendar{Hour: 9, Day: 1, Month: 1, Year: 1},
			elapsed: 5,
			speed:   2,
			exp:     Calendar{Hour: 10, Day: 1, Month: 1, Year: 1},
		},
		"paused": {
			cal:     Calendar{Hour: 9, Day: 1, Month: 1, Year: 1},
			elapsed: 100,
			speed:   0,
			exp:     Calendar{Hour: 9, Day: 1, Month: 1, Year: 1},
		},
		"hour rolls into day": {
			cal:     Calendar{Hour: 23.5, Day: 4, Month: 2, Year: 1},
			elapsed: 10,
			speed:   1,
			exp:     Calendar{Hour: 0.5, Day: 5, Month: 2, Year: 1},
			expDays: 1,
		},
		"day rolls into month": {
			cal:     Calendar{Hour: 23, Day: 30, Month: 6, Year: 2},
			elapsed: 20,
			speed:   1,
			exp:     Calendar{Hour: 1, Day: 1, Month: 7, Year: 2},
			expDays: 1,
		},
		"month rolls into year": {
			cal:     Calendar{Hour: 23, Day: 30, Month: 12, Year: 2},
			elapsed: 10,
			speed:   1,
			exp:     Calendar{Hour: 0, Day: 1, Month: 1, Year: 3},
			expDays: 1,
		},
		"several days at once": {
			cal:     Calendar{Hour: 12, Day: 29, Month: 12, Year: 1},
			elapsed: 240 * 3,
			speed:   3,
			exp:     Calendar{Hour: 12, Day: 8, Month: 1, Year: 2},
			expDays: 9,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, days := AdvanceCalendar(tt.cal, tt.elapsed, tt.speed)

			if math.Abs(got.Hour-tt.exp.Hour) > 1e-9 {
				t.Errorf("hour = %v, expected %v", got.Hour, tt.exp.Hour)
			}
			testutil.AssertEqual(t, "day", got.Day, tt.exp.Day)
			testutil.AssertEqual(t, "month", got.Month, tt.exp.Month)
			testutil.AssertEqual(t, "year", got.Year, tt.exp.Year)
			testutil.AssertEqual(t, "days crossed", days, tt.expDays)
		})
	}
}

func TestAdvanceCalendar_ExactCarry(t *testing.T) {
	cal := Calendar{Hour: 23.9, Day: 10, Month: 3, Year: 1}

	// 2 seconds at speed 1 is 0.2 in-game hours.
	got, days := AdvanceCalendar(cal, 2, 1)

	testutil.AssertEqual(t, "day", got.Day, 11)
	testutil.AssertEqual(t, "days crossed", days, 1)
	if math.Abs(got.Hour-0.1) > 1e-9 {
		t.Errorf("hour = %v, expected ~0.1", got.Hour)
	}
}

func TestAdvanceCalendar_AlwaysNormalized(t *testing.T) {
	cal := Calendar{Hour: 0, Day: 1, Month: 1, Year: 1}
	for i := range 5000 {
		speed := 1 + i%3
		elapsed := float64(i%97) / 7
		cal, _ = AdvanceCalendar(cal, elapsed, speed)

		if cal.Hour < 0 || cal.Hour >= HoursPerDay {
			t.Fatalf("step %d: hour %v out of range", i, cal.Hour)
		}
		if cal.Day < 1 || cal.Day > DaysPerMonth {
			t.Fatalf("step %d: day %d out of range", i, cal.Day)
		}
		if cal.Month < 1 || cal.Month > MonthsPerYear {
			t.Fatalf("step %d: month %d out of range", i, cal.Month)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]struct {
		cal Calendar
		exp Calendar
	}{
		"zero value": {
			cal: Calendar{},
			exp: Calendar{Hour: 0, Day: 1, Month: 1, Year: 1},
		},
		"overflowing everything": {
			cal: Calendar{Hour: 49, Day: 61, Month: 25, Year: 1},
			exp: Calendar{Hour: 1, Day: 3, Month: 3, Year: 3},
		},
		"negative hour": {
			cal: Calendar{Hour: -3, Day: 2, Month: 2, Year: 2},
			exp: Calendar{Hour: 0, Day: 2, Month: 2, Year: 2},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "calendar", Normalize(tt.cal), tt.exp)
		})
	}
}

func TestSettleDay(t *testing.T) {
	tests := map[string]struct {
		cash       float64
		income     float64
		staff      []Staff
		rides      []Ride
		funding    float64
		expCash    float64
		expLastExp float64
	}{
		"upkeep deducted": {
			cash:       1000,
			income:     120,
			staff:      []Staff{{ID: "s1", Role: RoleMechanic, Wage: 80}},
			rides:      []Ride{{ID: "r1", Status: RideOpen, Upkeep: 20}},
			funding:    0.5,
			expCash:    650,
			expLastExp: 350,
		},
		"clamped at zero": {
			cash:       100,
			staff:      []Staff{{ID: "s1", Role: RoleMechanic, Wage: 80}},
			rides:      []Ride{{ID: "r1", Status: RideOpen, Upkeep: 20}},
			funding:    1,
			expCash:    0,
			expLastExp: 600,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := New(Options{})
			w.Finances = Finances{Cash: tt.cash, DailyIncome: tt.income}
			w.Staff = tt.staff
			w.Rides = tt.rides
			w.Funding = tt.funding

			got := settleDay(w)

			testutil.AssertEqual(t, "cash", got.Finances.Cash, tt.expCash)
			testutil.AssertEqual(t, "last day income", got.Finances.LastDayIncome, tt.income)
			testutil.AssertEqual(t, "last day expense", got.Finances.LastDayExpense, tt.expLastExp)
			testutil.AssertEqual(t, "daily income", got.Finances.DailyIncome, 0.0)
			testutil.AssertEqual(t, "daily expense", got.Finances.DailyExpense, 0.0)
		})
	}
}
