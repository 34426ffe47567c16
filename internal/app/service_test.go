package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hijrical/internal/events"
	"hijrical/internal/facts"
	"hijrical/internal/timeline"
)

var riyadh = time.FixedZone("AST", 3*60*60)

type firstFact struct{}

func (firstFact) Intn(int) int { return 0 }

func newTestService(now time.Time, opts ...Option) *Service {
	base := []Option{
		WithLocation(riyadh),
		WithNow(func() time.Time { return now }),
		WithFacts(facts.NewSelector(facts.DefaultTable(), firstFact{})),
	}
	return NewService(append(base, opts...)...)
}

func TestSnapshotOnEidAlFitr(t *testing.T) {
	now := time.Date(2026, time.March, 20, 8, 0, 0, 0, riyadh)
	svc := newTestService(now)

	snap := svc.Snapshot(svc.Now(), true)
	assert.True(t, snap.Onboarded)
	assert.Equal(t, 1, snap.Today.Day)
	assert.Equal(t, "Shawwal", snap.Today.MonthName)
	assert.Equal(t, 1447, snap.Today.Year)
	assert.Equal(t, "1 Shawwal 1447 AH", snap.Today.Display)
	assert.Equal(t, "Friday, March 20, 2026", snap.Today.GregorianLabel)
	assert.Equal(t, 268, snap.TodayOrdinal)
	assert.Equal(t, 268, snap.TimelineOrdinal)
	assert.Equal(t, "Eid al-Fitr opens Shawwal with celebration after a month of fasting.", snap.Fact)
	assert.Equal(t, "Timeline 1447 AH", snap.TimelineTitle)
	require.Len(t, snap.Timeline, 15)

	var current []string
	for _, r := range snap.Timeline {
		if r.Status == "current" {
			current = append(current, r.Title)
			assert.Equal(t, "Today", r.Distance)
		}
	}
	assert.Equal(t, []string{"Eid al-Fiṭr"}, current)

	first := snap.Timeline[0]
	assert.Equal(t, "10 Muharram", first.Date)
	assert.Equal(t, "past", first.Status)
	assert.Equal(t, "258 days ago", first.Distance)
	require.NotNil(t, first.Gregorian)
	assert.Equal(t, time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC), *first.Gregorian)

	last := snap.Timeline[14]
	assert.Equal(t, "future", last.Status)
	assert.Equal(t, "in 71 days", last.Distance)
}

func TestOnboardedIsPassedThrough(t *testing.T) {
	now := time.Date(2026, time.March, 20, 8, 0, 0, 0, riyadh)
	svc := newTestService(now)
	assert.False(t, svc.Snapshot(now, false).Onboarded)
}

func TestTimelineYearFollowsToday(t *testing.T) {
	// 1 Muharram 1448.
	now := time.Date(2026, time.June, 16, 12, 0, 0, 0, riyadh)
	svc := newTestService(now)
	assert.Equal(t, 1448, svc.TimelineYear(now))

	pinned := newTestService(now, WithTargetYear(1447))
	assert.Equal(t, 1447, pinned.TimelineYear(now))

	// Viewing 1447 from 1448: everything is past.
	past, cur, fut := timeline.Counts(pinned.Timeline(now, 1447))
	assert.Equal(t, 15, past)
	assert.Zero(t, cur)
	assert.Zero(t, fut)

	// Viewing 1448 on its first day: nothing has happened yet.
	past, _, fut = timeline.Counts(svc.Timeline(now, 1448))
	assert.Zero(t, past)
	assert.Equal(t, 15, fut)
}

func TestSnapshotOrdinalsWithPinnedYear(t *testing.T) {
	// 5 Muharram 1448 while the timeline is pinned to 1447.
	now := time.Date(2026, time.June, 20, 12, 0, 0, 0, riyadh)
	svc := newTestService(now, WithTargetYear(1447))

	snap := svc.Snapshot(now, false)
	assert.Equal(t, 1447, snap.TimelineYear)
	assert.Equal(t, 5, snap.TodayOrdinal)
	assert.Equal(t, 360, snap.TimelineOrdinal)
}

func TestTimelineYearOutsideTable(t *testing.T) {
	now := time.Date(2100, time.January, 1, 12, 0, 0, 0, riyadh)
	svc := newTestService(now)
	assert.Equal(t, events.DefaultYear, svc.TimelineYear(now))

	snap := svc.Snapshot(now, false)
	assert.Equal(t, 0, snap.Today.Year)
	assert.Len(t, snap.Timeline, 15)
}

func TestTodayUsesServiceLocation(t *testing.T) {
	// 22:00 UTC on 19 March is already 20 March in Riyadh.
	at := time.Date(2026, time.March, 19, 22, 0, 0, 0, time.UTC)
	svc := newTestService(at)
	d := svc.Today(at)
	assert.Equal(t, 10, d.Month)
	assert.Equal(t, 1, d.Day)
}

func TestExtraEventsAndCatalogCache(t *testing.T) {
	now := time.Date(2026, time.March, 20, 8, 0, 0, 0, riyadh)
	svc := newTestService(now, WithExtraEvents([]events.Definition{
		{Month: 2, Day: 30, Title: "No such day"},
		{Month: 1, Day: 1, Title: "Islamic New Year"},
	}))

	c := svc.Catalog(1447)
	assert.Equal(t, 17, c.Len())
	assert.Equal(t, c.Events(), svc.Catalog(1447).Events())

	rows := Rows(svc.Timeline(now, 1447))
	assert.Equal(t, "Islamic New Year", rows[0].Title)
	invalid := rows[len(rows)-1]
	assert.Equal(t, "No such day", invalid.Title)
	assert.Equal(t, "future", invalid.Status)
	assert.Empty(t, invalid.Distance)
	assert.Nil(t, invalid.Gregorian)
}

func TestFacts(t *testing.T) {
	now := time.Date(2025, time.June, 26, 8, 0, 0, 0, riyadh)
	svc := newTestService(now)
	assert.Equal(t, "Muharram is one of the four sacred months in Islam.", svc.Fact(now))
	assert.Equal(t, facts.Fallback, svc.FactFor("NotAMonth"))
}

func TestWidgetEntries(t *testing.T) {
	// Two days before Eid al-Fitr.
	now := time.Date(2026, time.March, 18, 15, 0, 0, 0, riyadh)
	svc := newTestService(now)

	w, err := svc.Widget(now, 3)
	require.NoError(t, err)
	require.Len(t, w.Entries, 3)
	assert.True(t, w.RefreshAfter.Equal(time.Date(2026, time.March, 19, 0, 0, 0, 0, riyadh)))

	assert.Equal(t, "🌙 29 Ramadan", w.Entries[0].Inline)
	assert.Equal(t, "29 Ramadan\n1447 AH", w.Entries[0].Rectangular)
	assert.Equal(t, "Eid al-Fiṭr", w.Entries[0].NextEvent)
	assert.Equal(t, "in 2 days", w.Entries[0].NextIn)

	assert.Equal(t, 30, w.Entries[1].Day)
	assert.Equal(t, "in 1 day", w.Entries[1].NextIn)

	assert.Equal(t, "Shawwal", w.Entries[2].MonthName)
	assert.Equal(t, "Today", w.Entries[2].NextIn)

	_, err = svc.Widget(now, 0)
	assert.Error(t, err)
}

func TestServiceConcurrentUse(t *testing.T) {
	now := time.Date(2026, time.March, 20, 8, 0, 0, 0, riyadh)
	svc := NewService(WithLocation(riyadh), WithNow(func() time.Time { return now }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(year int) {
			defer wg.Done()
			assert.Len(t, svc.Timeline(now, year), 15)
			assert.NotEmpty(t, svc.Fact(now))
		}(1446 + i%3)
	}
	wg.Wait()
}
