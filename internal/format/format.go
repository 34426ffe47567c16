// Package format renders day distances and Hijri dates as display strings.
// Output is fixed English; pluralization is the plain singular/plural suffix.
package format

import (
	"math"
	"strconv"

	"hijrical/internal/hijri"
)

// Delta renders a signed day distance: "Today", "in 3 days", "1 day ago".
func Delta(days int) string {
	switch {
	case days == 0:
		return "Today"
	case days > 0:
		return "in " + dayCount(days)
	case days == math.MinInt:
		return dayCount(math.MaxInt) + " ago"
	default:
		return dayCount(-days) + " ago"
	}
}

// EventDate renders a Hijri month/day pair, e.g. "10 Muharram".
func EventDate(month, day int) string {
	return strconv.Itoa(day) + " " + hijri.MonthName(month)
}

// HijriDate renders a full Hijri date, e.g. "1 Shawwal 1447 AH".
func HijriDate(d hijri.Date) string {
	return strconv.Itoa(d.Day) + " " + d.MonthName + " " + strconv.Itoa(d.Year) + " AH"
}

// Inline is the single-line lock-screen form, e.g. "🌙 1 Shawwal".
func Inline(d hijri.Date) string {
	return "🌙 " + strconv.Itoa(d.Day) + " " + d.MonthName
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}
