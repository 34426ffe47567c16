// Package app composes the calendar core into what a screen or widget shows.
package app

import (
	"fmt"
	"sync"
	"time"

	"hijrical/internal/events"
	"hijrical/internal/facts"
	"hijrical/internal/format"
	"hijrical/internal/hijri"
	appLog "hijrical/internal/log"
	"hijrical/internal/model"
	"hijrical/internal/timeline"
	"hijrical/internal/widget"
)

// Service answers "what is today and what is coming" for a fixed timezone.
// It is safe for concurrent use.
type Service struct {
	loc        *time.Location
	now        func() time.Time
	facts      *facts.Selector
	extra      []events.Definition
	targetYear int

	mu       sync.Mutex
	catalogs map[int]events.Catalog
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the timezone whose civil day is "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithNow replaces the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFacts replaces the fact selector.
func WithFacts(sel *facts.Selector) Option {
	return func(s *Service) {
		if sel != nil {
			s.facts = sel
		}
	}
}

// WithExtraEvents appends definitions to every catalog.
func WithExtraEvents(defs []events.Definition) Option {
	return func(s *Service) {
		s.extra = append([]events.Definition(nil), defs...)
	}
}

// WithTargetYear pins the timeline to one Hijri year. Zero follows today.
func WithTargetYear(year int) Option {
	return func(s *Service) {
		s.targetYear = year
	}
}

// NewService builds a Service with the embedded fact table, the local
// timezone and the wall clock unless overridden.
func NewService(opts ...Option) *Service {
	s := &Service{
		loc:      time.Local,
		now:      time.Now,
		catalogs: make(map[int]events.Catalog),
	}
	for _, o := range opts {
		o(s)
	}
	if s.facts == nil {
		s.facts = facts.NewSelector(facts.DefaultTable(), nil)
	}
	return s
}

// Location is the service timezone.
func (s *Service) Location() *time.Location { return s.loc }

// Now is the current instant in the service timezone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Today converts t's civil day in the service timezone to Hijri.
func (s *Service) Today(t time.Time) hijri.Date {
	return hijri.ToHijri(t.In(s.loc))
}

// TimelineYear is the Hijri year the timeline shows at t: the configured
// target year, else the Hijri year of t, else the curated default year.
func (s *Service) TimelineYear(t time.Time) int {
	if s.targetYear != 0 {
		return s.targetYear
	}
	if d := s.Today(t); d.Valid() {
		return d.Year
	}
	return events.DefaultYear
}

// Catalog returns the catalog for year, building it once.
func (s *Service) Catalog(year int) events.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.catalogs[year]; ok {
		return c
	}
	c := events.Build(year, s.extra...)
	s.catalogs[year] = c
	appLog.Debug("event catalog built", "year", year, "events", c.Len())
	return c
}

// Timeline classifies the catalog of year against t. Ordinals are counted
// from 1 Muharram of year, so a t in another Hijri year classifies every
// event uniformly past or future.
func (s *Service) Timeline(t time.Time, year int) []timeline.Entry {
	return timeline.Classify(s.Catalog(year).Events(), s.todayOrdinal(t, year))
}

func (s *Service) todayOrdinal(t time.Time, year int) int {
	local := t.In(s.loc)
	if ord, ok := hijri.OrdinalFrom(year, local); ok {
		return ord
	}
	// Year outside the table: fall back to today's own ordinal.
	return hijri.TodayOrdinal(local)
}

// Fact picks a fact for the Hijri month of t.
func (s *Service) Fact(t time.Time) string {
	return s.facts.Random(s.Today(t).MonthName)
}

// FactFor picks a fact for a named month.
func (s *Service) FactFor(month string) string {
	return s.facts.Random(month)
}

// Snapshot assembles the main screen at t. onboarded is passed through
// untouched; the service never stores it.
func (s *Service) Snapshot(t time.Time, onboarded bool) model.Snapshot {
	today := s.Today(t)
	year := s.TimelineYear(t)
	entries := s.Timeline(t, year)

	return model.Snapshot{
		GeneratedAt:     t.In(s.loc),
		Onboarded:       onboarded,
		Today:           HijriView(today),
		TodayOrdinal:    hijri.TodayOrdinal(t.In(s.loc)),
		TimelineOrdinal: s.todayOrdinal(t, year),
		Fact:            s.facts.Random(today.MonthName),
		TimelineTitle:   fmt.Sprintf("Timeline %d AH", year),
		TimelineYear:    year,
		Timeline:        Rows(entries),
	}
}

// Widget builds widget entries for days civil days starting at t.
func (s *Service) Widget(t time.Time, days int) (model.WidgetTimeline, error) {
	instants, err := widget.Instants(t, days, s.loc)
	if err != nil {
		return model.WidgetTimeline{}, err
	}

	out := model.WidgetTimeline{
		Entries:      make([]model.WidgetEntry, 0, len(instants)),
		RefreshAfter: widget.NextMidnight(t, s.loc),
	}
	for _, at := range instants {
		out.Entries = append(out.Entries, s.widgetEntry(at))
	}
	return out, nil
}

func (s *Service) widgetEntry(at time.Time) model.WidgetEntry {
	d := s.Today(at)
	e := model.WidgetEntry{
		Date:        at,
		Day:         d.Day,
		MonthName:   d.MonthName,
		Year:        d.Year,
		Inline:      format.Inline(d),
		Rectangular: fmt.Sprintf("%d %s\n%d AH", d.Day, d.MonthName, d.Year),
		Gregorian:   d.GregorianLabel,
	}
	if next, ok := timeline.Next(s.Timeline(at, s.TimelineYear(at))); ok && next.Event.Valid() {
		e.NextEvent = next.Event.Title
		e.NextIn = next.Distance()
	}
	return e
}

// HijriView converts a date to its card form.
func HijriView(d hijri.Date) model.HijriView {
	return model.HijriView{
		Day:            d.Day,
		Month:          d.Month,
		MonthName:      d.MonthName,
		Year:           d.Year,
		GregorianLabel: d.GregorianLabel,
		Display:        format.HijriDate(d),
	}
}

// Rows converts classified entries to display rows, keeping order.
func Rows(entries []timeline.Entry) []model.TimelineRow {
	rows := make([]model.TimelineRow, 0, len(entries))
	for _, e := range entries {
		row := model.TimelineRow{
			ID:          e.Event.ID,
			Date:        e.Event.DisplayDate(),
			Title:       e.Event.Title,
			Description: e.Event.Description,
			Status:      e.Status.String(),
			Distance:    e.Distance(),
			DaysDelta:   e.DaysDelta,
			Ordinal:     e.Event.Ordinal,
		}
		if g, ok := e.Event.Gregorian(); ok {
			row.Gregorian = &g
		} else {
			// Not a real date this year; no meaningful distance.
			row.Distance = ""
		}
		rows = append(rows, row)
	}
	return rows
}
