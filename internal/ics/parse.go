package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"hijrical/internal/events"
	appLog "hijrical/internal/log"
)

// PropertyHijriDate carries the event's Hijri date as YYYY-MM-DD so that
// consumers do not need an Umm al-Qura table to read it back.
const PropertyHijriDate = ical.ComponentProperty("X-HIJRI-DATE")

// FeedEvent is the normalized representation of a VEVENT read back from a
// hijrical feed.
type FeedEvent struct {
	UID         string
	Summary     string
	Description string
	Categories  []string

	// Start is the all-day start date (midnight UTC).
	Start  time.Time
	AllDay bool

	HijriYear  int
	HijriMonth int
	HijriDay   int
}

// Parse parses an ICS payload into FeedEvents. VEVENTs that cannot be read
// are logged and skipped; a payload that is not iCalendar at all is an error.
func Parse(body []byte) ([]FeedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	out := make([]FeedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		out = append(out, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (FeedEvent, error) {
	var out FeedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, c := range strings.Split(p.Value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out.Categories = append(out.Categories, c)
			}
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	// VALUE=DATE or no 'T' in the value -> all-day
	if params := dtStart.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
	}
	if !strings.Contains(dtStart.Value, "T") {
		out.AllDay = true
	}
	start, err := parseICSDate(dtStart.Value)
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = start

	if p := ve.GetProperty(PropertyHijriDate); p != nil {
		if _, err := fmt.Sscanf(p.Value, "%d-%d-%d", &out.HijriYear, &out.HijriMonth, &out.HijriDay); err != nil {
			return out, fmt.Errorf("%s: %w", PropertyHijriDate, err)
		}
	}

	return out, nil
}

// parseICSDate parses a DATE or DATE-TIME value and returns the civil day at
// midnight UTC.
func parseICSDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if len(v) < 8 {
		return time.Time{}, fmt.Errorf("malformed date %q", v)
	}
	return time.Parse("20060102", v[:8])
}

func hijriValue(ev events.Event) string {
	return fmt.Sprintf("%04d-%02d-%02d", ev.Year, ev.Month, ev.Day)
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
