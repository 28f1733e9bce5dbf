package display

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money formats an amount with thousands separators, e.g. "$12,345.50".
func Money(amount float64) string {
	if amount < 0 {
		return printer.Sprintf("-$%.2f", -amount)
	}
	return printer.Sprintf("$%.2f", amount)
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Percent formats a fraction in [0,1] as a whole percentage.
func Percent(f float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(f*100)))
}

// Clock formats a fractional hour of the day as HH:MM.
func Clock(hour float64) string {
	h := int(hour)
	m := int((hour - float64(h)) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}
