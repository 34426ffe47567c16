// Package events holds the catalog of significant dates in a Hijri year.
package events

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"hijrical/internal/format"
	"hijrical/internal/hijri"
)

// DefaultYear is the Hijri year the catalog was curated for.
const DefaultYear = 1447

// namespace scopes the name-based event IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("events.hijrical"))

// Definition is a literal (month, day, title, description) tuple. Extra
// definitions can also come from the config file.
type Definition struct {
	Month       int    `yaml:"month" json:"month" validate:"min=1,max=12"`
	Day         int    `yaml:"day" json:"day" validate:"min=1,max=30"`
	Title       string `yaml:"title" json:"title" validate:"required"`
	Description string `yaml:"description" json:"description"`
}

var canonical = []Definition{
	{1, 10, "ʿĀshūrāʾ", "Commemoration of Prophet Musa’s deliverance"},
	{3, 12, "Mawlid (Sunni)", "Prophet Muhammad’s birthday"},
	{4, 17, "Mawlid (Shia)", "Alternate Mawlid date"},
	{7, 27, "Isrāʾ & Miʿrāj", "Night-Journey & Ascension"},
	{8, 15, "Mid-Shaʿbān", "Night of forgiveness (Shab-e-Barat)"},
	{9, 1, "Start of Ramadan", "First day of fasting"},
	{9, 17, "Badr Anniversary", "Battle of Badr (2 AH)"},
	{9, 27, "Laylat al-Qadr (obs.)", "Likely Night of Power"},
	{10, 1, "Eid al-Fiṭr", "Festival after Ramadan"},
	{11, 8, "Hajj Begins", "Pilgrims arrive in Makkah"},
	{12, 8, "Tarwiyah", "Pilgrims leave to Mina"},
	{12, 9, "ʿArafah", "Standing at Mount ʿArafāt"},
	{12, 10, "Eid al-Aḍḥā", "Festival of Sacrifice"},
	{12, 11, "Tashrīq 1", "Stoning ritual continues"},
	{12, 13, "Tashrīq 3 / Hajj Ends", "Final day of stoning"},
}

// Definitions returns a copy of the 15 canonical event definitions.
func Definitions() []Definition {
	out := make([]Definition, len(canonical))
	copy(out, canonical)
	return out
}

// Event is a definition placed in a specific Hijri year.
type Event struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Ordinal is the 1-based day of the Hijri year, or hijri.InvalidOrdinal
	// if the date does not exist in Year.
	Ordinal int `json:"ordinal"`
}

// NewEvent places def in the given Hijri year.
func NewEvent(year int, def Definition) Event {
	return Event{
		ID:          eventID(year, def),
		Year:        year,
		Month:       def.Month,
		Day:         def.Day,
		Title:       def.Title,
		Description: def.Description,
		Ordinal:     hijri.OrdinalInYear(year, def.Month, def.Day),
	}
}

// Valid reports whether the event could be placed in its year.
func (e Event) Valid() bool {
	return e.Ordinal != hijri.InvalidOrdinal
}

// DisplayDate renders the event's Hijri date, e.g. "10 Muharram".
func (e Event) DisplayDate() string {
	return format.EventDate(e.Month, e.Day)
}

// Gregorian returns the civil day of the event (UTC midnight).
func (e Event) Gregorian() (time.Time, bool) {
	return hijri.ToGregorian(e.Year, e.Month, e.Day)
}

func eventID(year int, def Definition) string {
	name := fmt.Sprintf("%04d-%02d-%02d/%s", year, def.Month, def.Day, def.Title)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Catalog is the immutable, ordinal-sorted event list for one Hijri year.
// Building for another year is a fresh Build call.
type Catalog struct {
	year   int
	events []Event
}

// Build places the canonical definitions, followed by any extra ones, in
// year and sorts them by ordinal. Events that cannot be placed carry the
// invalid sentinel and therefore sort last.
func Build(year int, extra ...Definition) Catalog {
	defs := append(Definitions(), extra...)

	evs := make([]Event, 0, len(defs))
	for _, d := range defs {
		evs = append(evs, NewEvent(year, d))
	}
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Ordinal < evs[j].Ordinal
	})

	return Catalog{year: year, events: evs}
}

// Year is the Hijri year the catalog was built for.
func (c Catalog) Year() int { return c.year }

// Len is the number of events.
func (c Catalog) Len() int { return len(c.events) }

// Events returns a copy of the events in ascending ordinal order.
func (c Catalog) Events() []Event {
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Find returns the first event with the given title.
func (c Catalog) Find(title string) (Event, bool) {
	for _, e := range c.events {
		if e.Title == title {
			return e, true
		}
	}
	return Event{}, false
}
