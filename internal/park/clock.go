package park

import "math"

const (
	HoursPerDay   = 24
	DaysPerMonth  = 30
	MonthsPerYear = 12

	// GameHoursPerSecond is how many in-game hours pass per real second at speed 1.
	GameHoursPerSecond = 0.1

	MaxSpeed = 3

	// MarketingBudget is the daily cost of running at full funding.
	MarketingBudget = 500
)

// Calendar is the in-game date and time of day.
type Calendar struct {
	Hour  float64
	Day   int
	Month int
	Year  int
}

// Calendar returns the calendar fields of the snapshot.
func (w WorldState) Calendar() Calendar {
	return Calendar{Hour: w.Hour, Day: w.Day, Month: w.Month, Year: w.Year}
}

func (w *WorldState) setCalendar(c Calendar) {
	w.Hour, w.Day, w.Month, w.Year = c.Hour, c.Day, c.Month, c.Year
}

// AdvanceCalendar moves the calendar forward by elapsed real seconds at the
// given speed and returns the normalized calendar along with the number of
// day boundaries crossed.
func AdvanceCalendar(c Calendar, elapsedSeconds float64, speed int) (Calendar, int) {
	if speed <= 0 || elapsedSeconds <= 0 {
		return Normalize(c), 0
	}
	c = Normalize(c)
	start := dayOrdinal(c)
	c.Hour += elapsedSeconds * GameHoursPerSecond * float64(speed)
	c = Normalize(c)
	return c, dayOrdinal(c) - start
}

// Normalize carries each overflowing field into the next larger unit.
func Normalize(c Calendar) Calendar {
	if c.Day < 1 {
		c.Day = 1
	}
	if c.Month < 1 {
		c.Month = 1
	}
	if c.Year < 1 {
		c.Year = 1
	}
	if c.Hour < 0 || math.IsNaN(c.Hour) {
		c.Hour = 0
	}

	for c.Hour >= HoursPerDay {
		c.Hour -= HoursPerDay
		c.Day++
	}
	for c.Day > DaysPerMonth {
		c.Day -= DaysPerMonth
		c.Month++
	}
	for c.Month > MonthsPerYear {
		c.Month -= MonthsPerYear
		c.Year++
	}
	return c
}

func dayOrdinal(c Calendar) int {
	return ((c.Year-1)*MonthsPerYear+(c.Month-1))*DaysPerMonth + (c.Day - 1)
}

// DailyUpkeep is the total cost charged at each day boundary.
func DailyUpkeep(w WorldState) float64 {
	total := 0.0
	for _, s := range w.Staff {
		total += s.Wage
	}
	for _, r := range w.Rides {
		total += r.Upkeep
	}
	total += clamp01(w.Funding) * MarketingBudget
	return total
}

// settleDay charges upkeep and rolls the daily accumulators.
func settleDay(w WorldState) WorldState {
	upkeep := DailyUpkeep(w)
	w.Finances.Spend(upkeep)
	w.Finances.LastDayIncome = w.Finances.DailyIncome
	w.Finances.LastDayExpense = w.Finances.DailyExpense
	w.Finances.DailyIncome = 0
	w.Finances.DailyExpense = 0
	return w
}
