package ics

import (
	"errors"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"hijrical/internal/events"
	appLog "hijrical/internal/log"
)

const (
	// ProductService names the feed's PRODID.
	ProductService = "hijrical"
	// Category tags every exported event.
	Category = "Hijri"
	// uidSuffix turns an event ID into a globally unique UID.
	uidSuffix = "@hijrical"
	// refreshInterval hints subscribers to re-fetch daily.
	refreshInterval = "P1D"
)

// ExportOptions controls feed generation.
type ExportOptions struct {
	// Name is the calendar display name (X-WR-CALNAME / NAME).
	Name string
	// Stamp is written as DTSTAMP on every event. If zero, time.Now() is used.
	Stamp time.Time
}

// Build turns one or more catalogs into an iCalendar feed with one all-day
// VEVENT per event. Events whose date does not exist in their year are
// skipped.
func Build(catalogs []events.Catalog, opts ExportOptions) (*ical.Calendar, error) {
	if len(catalogs) == 0 {
		return nil, errors.New("ics: no catalogs to export")
	}
	if opts.Name == "" {
		opts.Name = "Hijri calendar"
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendarFor(ProductService)
	cal.SetMethod(ical.MethodPublish)
	cal.SetName(opts.Name)
	cal.SetXWRCalName(opts.Name)
	cal.SetDescription("Significant dates of the Umm al-Qura Hijri calendar")
	cal.SetRefreshInterval(refreshInterval)

	skipped := 0
	for _, c := range catalogs {
		for _, ev := range c.Events() {
			day, ok := ev.Gregorian()
			if !ok {
				skipped++
				continue
			}
			ve := cal.AddEvent(ev.ID + uidSuffix)
			ve.SetDtStampTime(opts.Stamp)
			ve.SetSummary(ev.Title)
			ve.SetDescription(ev.Description + " (" + ev.DisplayDate() + " " + itoa(ev.Year) + " AH)")
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			ve.AddCategory(Category)
			ve.SetProperty(PropertyHijriDate, hijriValue(ev))
		}
	}

	if skipped > 0 {
		appLog.Info("ics export skipped undated events", "count", skipped)
	}
	return cal, nil
}

// Write serializes the feed built from catalogs to w.
func Write(w io.Writer, catalogs []events.Catalog, opts ExportOptions) error {
	cal, err := Build(catalogs, opts)
	if err != nil {
		return err
	}
	return cal.SerializeTo(w)
}
