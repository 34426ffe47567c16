package model

import "time"

// TimelineRow is one display-ready row of the year timeline.
type TimelineRow struct {
	ID          string `json:"id"`
	Date        string `json:"date"` // e.g. "10 Muharram"
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`   // past / current / future
	Distance    string `json:"distance"` // e.g. "in 3 days"
	DaysDelta   int    `json:"days_delta"`
	Ordinal     int    `json:"ordinal"`
	// Gregorian is the civil day of the event, if it exists in the year.
	Gregorian *time.Time `json:"gregorian,omitempty"`
}

// HijriView is the date card: big day number, month name, year and the
// Gregorian label underneath.
type HijriView struct {
	Day            int    `json:"day"`
	Month          int    `json:"month"`
	MonthName      string `json:"month_name"`
	Year           int    `json:"year"`
	GregorianLabel string `json:"gregorian_label"`
	Display        string `json:"display"` // e.g. "1 Shawwal 1447 AH"
}

// Snapshot is everything the main screen shows at one instant. It is data
// only; no logic beyond what produced it.
type Snapshot struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	Onboarded     bool          `json:"onboarded"`
	Today         HijriView     `json:"today"`
	// TodayOrdinal is today's day of its own Hijri year, as /api/today.
	TodayOrdinal int `json:"today_ordinal"`
	// TimelineOrdinal is today counted from 1 Muharram of TimelineYear; it
	// is what the timeline rows are classified against.
	TimelineOrdinal int           `json:"timeline_ordinal"`
	Fact          string        `json:"fact"`
	TimelineTitle string        `json:"timeline_title"` // e.g. "Timeline 1447 AH"
	TimelineYear  int           `json:"timeline_year"`
	Timeline      []TimelineRow `json:"timeline"`
}

// WidgetEntry is what a home/lock-screen widget shows from Date on.
type WidgetEntry struct {
	Date        time.Time `json:"date"`
	Day         int       `json:"day"`
	MonthName   string    `json:"month_name"`
	Year        int       `json:"year"`
	Inline      string    `json:"inline"`      // lock-screen inline, "🌙 1 Shawwal"
	Rectangular string    `json:"rectangular"` // "1 Shawwal" over "1447 AH"
	Gregorian   string    `json:"gregorian"`
	NextEvent   string    `json:"next_event,omitempty"`
	NextIn      string    `json:"next_in,omitempty"`
}

// WidgetTimeline is a batch of widget entries plus when to ask again.
type WidgetTimeline struct {
	Entries      []WidgetEntry `json:"entries"`
	RefreshAfter time.Time     `json:"refresh_after"`
}
