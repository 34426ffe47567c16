// Package hijri converts civil dates to the Umm al-Qura Hijri calendar and
// computes day-of-year ordinals within a Hijri year.
//
// The Umm al-Qura calendar is table driven: month lengths come from the
// official Saudi tables rather than an arithmetic leap-year rule, so month
// boundaries can differ by a day from the tabular Islamic calendar. The
// table used here covers 1 Muharram 1356 AH (14 March 1937) through the end
// of 1500 AH (16 November 2077).
package hijri

import (
	"math"
	"time"

	hj "github.com/hablullah/go-hijri"
)

const (
	// MinYear and MaxYear bound the years covered by the Umm al-Qura table.
	MinYear = 1356
	MaxYear = 1500

	// InvalidOrdinal is returned by OrdinalInYear for dates the calendar
	// cannot place. It sorts after every real ordinal.
	InvalidOrdinal = math.MaxInt

	// GregorianLabelLayout is the full-date style in fixed English,
	// e.g. "Thursday, March 20, 2026".
	GregorianLabelLayout = "Monday, January 2, 2006"
)

var monthNames = [12]string{
	"Muharram",
	"Safar",
	"Rabi al-Awwal",
	"Rabi al-Thani",
	"Jumada al-Ula",
	"Jumada al-Thaniyah",
	"Rajab",
	"Shaaban",
	"Ramadan",
	"Shawwal",
	"Dhu al-Qidah",
	"Dhu al-Hijjah",
}

// Date is an immutable snapshot of a civil day in Hijri terms.
//
// A Date that could not be resolved has Day 0, Month 1 (with the first
// month's name) and Year 0; callers must tolerate it.
type Date struct {
	Day            int    `json:"day"`
	Month          int    `json:"month"`
	MonthName      string `json:"month_name"`
	Year           int    `json:"year"`
	GregorianLabel string `json:"gregorian_label"`
}

// Valid reports whether the date was resolved by the calendar.
func (d Date) Valid() bool {
	return d.Year != 0 && d.Day != 0
}

// MonthName returns the canonical English name of a Hijri month (1-12).
// Out-of-range months return an empty string.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// MonthNames returns the twelve canonical month names in calendar order.
func MonthNames() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames[:])
	return out
}

// MonthIndex is the inverse of MonthName. It returns 0 for unknown names.
func MonthIndex(name string) int {
	for i, n := range monthNames {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// ToHijri converts the civil date of t, as observed in t's own location,
// into a Hijri date. Instants outside the table yield the degenerate Date
// with only the Gregorian label set.
func ToHijri(t time.Time) Date {
	out := Date{
		Month:          1,
		MonthName:      monthNames[0],
		GregorianLabel: t.Format(GregorianLabelLayout),
	}

	// The library normalizes to UTC noon, so hand it the local civil day.
	civil := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
	uq, err := hj.CreateUmmAlQuraDate(civil)
	if err != nil {
		return out
	}

	out.Day = int(uq.Day)
	out.Month = int(uq.Month)
	out.MonthName = MonthName(out.Month)
	out.Year = int(uq.Year)
	return out
}

// ToGregorian returns UTC midnight of the civil day matching the given Hijri
// date. ok is false when the triple is not a real Umm al-Qura date.
func ToGregorian(year, month, day int) (t time.Time, ok bool) {
	if day < 1 || day > DaysInMonth(year, month) {
		return time.Time{}, false
	}
	return monthStart(year, month).AddDate(0, 0, day-1), true
}

// DaysInMonth returns 29 or 30 for a month covered by the table, 0 otherwise.
func DaysInMonth(year, month int) int {
	if !inTable(year, month) {
		return 0
	}
	ny, nm := year, month+1
	if nm > 12 {
		ny, nm = year+1, 1
	}
	return daysBetween(monthStart(year, month), monthStart(ny, nm))
}

// YearLength returns 354 or 355 for a year covered by the table, 0 otherwise.
func YearLength(year int) int {
	if year < MinYear || year > MaxYear {
		return 0
	}
	return daysBetween(monthStart(year, 1), monthStart(year+1, 1))
}

// OrdinalInYear returns the 1-based day count from 1 Muharram of year up to
// and including the given month/day, or InvalidOrdinal if the date cannot
// be placed in that year.
func OrdinalInYear(year, month, day int) int {
	date, ok := ToGregorian(year, month, day)
	if !ok {
		return InvalidOrdinal
	}
	return daysBetween(monthStart(year, 1), date) + 1
}

// TodayOrdinal returns the ordinal of t's Hijri date within its own Hijri
// year. A date the calendar cannot resolve yields 0.
func TodayOrdinal(t time.Time) int {
	d := ToHijri(t)
	if !d.Valid() {
		return 0
	}
	return OrdinalInYear(d.Year, d.Month, d.Day)
}

// OrdinalFrom returns the day position of t's civil date counted from
// 1 Muharram of year (1 on that day). It is negative or beyond YearLength
// when t lies outside year. ok is false if year is outside the table.
func OrdinalFrom(year int, t time.Time) (ord int, ok bool) {
	if year < MinYear || year > MaxYear {
		return 0, false
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return daysBetween(monthStart(year, 1), day) + 1, true
}

func inTable(year, month int) bool {
	return year >= MinYear && year <= MaxYear && month >= 1 && month <= 12
}

// monthStart is UTC midnight of day 1 of the month. The table carries one
// lunation past MaxYear, so 1 Muharram MaxYear+1 is still addressable.
func monthStart(year, month int) time.Time {
	g := hj.UmmAlQuraDate{Year: int64(year), Month: int64(month), Day: 1}.ToGregorian()
	return time.Date(g.Year(), g.Month(), g.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
