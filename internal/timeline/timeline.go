// Package timeline classifies catalog events relative to today.
package timeline

import (
	"fmt"
	"math"

	"hijrical/internal/events"
	"hijrical/internal/format"
)

// Status is where an event sits relative to today. It is always derived
// from (event ordinal, today ordinal) and never stored.
type Status int

const (
	Past Status = iota
	Current
	Future
)

func (s Status) String() string {
	switch s {
	case Past:
		return "past"
	case Current:
		return "current"
	case Future:
		return "future"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status as its lower-case name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is one classified event.
type Entry struct {
	Event     events.Event `json:"event"`
	Status    Status       `json:"status"`
	DaysDelta int          `json:"days_delta"`
}

// Distance renders DaysDelta, e.g. "in 3 days".
func (e Entry) Distance() string {
	return format.Delta(e.DaysDelta)
}

// StatusFor applies the status rule to a day distance.
func StatusFor(daysDelta int) Status {
	switch {
	case daysDelta < 0:
		return Past
	case daysDelta == 0:
		return Current
	default:
		return Future
	}
}

// Classify computes status and day distance for every event against
// todayOrdinal, keeping the input order. Events sharing an ordinal are all
// classified; nothing is deduplicated.
func Classify(evs []events.Event, todayOrdinal int) []Entry {
	out := make([]Entry, 0, len(evs))
	for _, ev := range evs {
		d := delta(ev.Ordinal, todayOrdinal)
		out = append(out, Entry{
			Event:     ev,
			Status:    StatusFor(d),
			DaysDelta: d,
		})
	}
	return out
}

// Next returns the first entry that is current or still ahead.
func Next(entries []Entry) (Entry, bool) {
	for _, e := range entries {
		if e.Status != Past {
			return e, true
		}
	}
	return Entry{}, false
}

// Counts tallies entries by status.
func Counts(entries []Entry) (past, current, future int) {
	for _, e := range entries {
		switch e.Status {
		case Past:
			past++
		case Current:
			current++
		default:
			future++
		}
	}
	return past, current, future
}

// delta is a-b saturated to [-math.MaxInt, math.MaxInt], so the
// invalid-ordinal sentinel (math.MaxInt) stays "future" for any today and
// the result can always be negated.
func delta(a, b int) int {
	d := a - b
	switch {
	case b < 0 && d < a:
		return math.MaxInt
	case b > 0 && d > a:
		return -math.MaxInt
	}
	if d == math.MinInt {
		return -math.MaxInt
	}
	return d
}
