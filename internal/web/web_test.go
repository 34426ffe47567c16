package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hijrical/internal/app"
	"hijrical/internal/config"
	"hijrical/internal/facts"
	"hijrical/internal/ics"
	"hijrical/internal/model"
)

var riyadh = time.FixedZone("AST", 3*60*60)

type firstFact struct{}

func (firstFact) Intn(int) int { return 0 }

// eidMorning is 1 Shawwal 1447.
var eidMorning = time.Date(2026, time.March, 20, 8, 0, 0, 0, riyadh)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RateLimit = config.RateLimitConfig{}
	if mutate != nil {
		mutate(cfg)
	}
	svc := app.NewService(
		app.WithLocation(riyadh),
		app.WithNow(func() time.Time { return eidMorning }),
		app.WithFacts(facts.NewSelector(facts.DefaultTable(), firstFact{})),
	)
	return NewServer(cfg, svc)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestToday(t *testing.T) {
	s := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/today")
	require.Equal(t, http.StatusOK, rec.Code)

	var got todayResponse
	decode(t, rec, &got)
	assert.Equal(t, "1 Shawwal 1447 AH", got.Display)
	assert.Equal(t, "Friday, March 20, 2026", got.GregorianLabel)
	assert.Equal(t, 268, got.Ordinal)
	assert.Equal(t, "AST", got.Timezone)
}

func TestTimeline(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/timeline")
	require.Equal(t, http.StatusOK, rec.Code)
	var got timelineResponse
	decode(t, rec, &got)
	assert.Equal(t, 1447, got.Year)
	assert.Equal(t, "Timeline 1447 AH", got.Title)
	require.Len(t, got.Rows, 15)
	assert.Equal(t, "current", got.Rows[8].Status)

	// Next year from today's point of view: everything ahead.
	rec = get(t, s.Handler(), "/api/timeline?year=1448")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	for _, r := range got.Rows {
		assert.Equal(t, "future", r.Status, r.Title)
	}

	for _, bad := range []string{"abc", "1355", "1501"} {
		rec = get(t, s.Handler(), "/api/timeline?year="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestFact(t *testing.T) {
	s := newTestServer(t, nil)

	var got factResponse
	decode(t, get(t, s.Handler(), "/api/fact?month=Ramadan"), &got)
	assert.Equal(t, "Fasting in Ramadan is the fourth pillar of Islam.", got.Fact)

	decode(t, get(t, s.Handler(), "/api/fact"), &got)
	assert.Equal(t, "Shawwal", got.Month)

	decode(t, get(t, s.Handler(), "/api/fact?month=Nope"), &got)
	assert.Equal(t, facts.Fallback, got.Fact)
}

func TestSnapshotIsCachedPerDay(t *testing.T) {
	s := newTestServer(t, nil)

	var a, b model.Snapshot
	decode(t, get(t, s.Handler(), "/api/snapshot?onboarded=true"), &a)
	decode(t, get(t, s.Handler(), "/api/snapshot"), &b)

	assert.True(t, a.Onboarded)
	assert.False(t, b.Onboarded)
	assert.Equal(t, a.Fact, b.Fact)
	assert.Equal(t, a.GeneratedAt, b.GeneratedAt)
	assert.Equal(t, 268, a.TodayOrdinal)
	assert.Len(t, a.Timeline, 15)

	body := get(t, s.Handler(), "/metrics").Body.String()
	assert.Contains(t, body, "hijrical_snapshot_refreshes_total 1")
}

func TestTodayOrdinalMatchesSnapshotWhenPinned(t *testing.T) {
	s := newTestServer(t, nil)
	s.svc = app.NewService(
		app.WithLocation(riyadh),
		app.WithNow(func() time.Time { return time.Date(2026, time.June, 20, 12, 0, 0, 0, riyadh) }),
		app.WithTargetYear(1447),
	)

	var today todayResponse
	decode(t, get(t, s.Handler(), "/api/today"), &today)
	var snap model.Snapshot
	decode(t, get(t, s.Handler(), "/api/snapshot"), &snap)

	assert.Equal(t, 5, today.Ordinal)
	assert.Equal(t, today.Ordinal, snap.TodayOrdinal)
	assert.Equal(t, 360, snap.TimelineOrdinal)
	assert.Equal(t, 1447, snap.TimelineYear)
}

func TestWidget(t *testing.T) {
	s := newTestServer(t, nil)

	var got model.WidgetTimeline
	decode(t, get(t, s.Handler(), "/api/widget?days=3"), &got)
	require.Len(t, got.Entries, 3)
	assert.Equal(t, "🌙 1 Shawwal", got.Entries[0].Inline)

	decode(t, get(t, s.Handler(), "/api/widget?days=x"), &got)
	assert.Len(t, got.Entries, 7)

	decode(t, get(t, s.Handler(), "/api/widget?days=40"), &got)
	assert.Len(t, got.Entries, 31)
}

func TestCalendarFeed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/calendar.ics?years=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	feed, err := ics.Parse(body)
	require.NoError(t, err)
	assert.Len(t, feed, 30)

	rec = get(t, s.Handler(), "/calendar.ics?year=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)

	rec := get(t, h, "/api/today")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/today", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/today", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuthDisabledWithEmptyPassword(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	})
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/api/today").Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/api/today").Code)
	rec := get(t, h, "/api/today")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health and metrics are not limited.
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	metrics := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `hijrical_http_requests_total{code="429",route="/api/today"} 1`)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, parseIntDefault("", 5))
	assert.Equal(t, 5, parseIntDefault("x", 5))
	assert.Equal(t, 9, parseIntDefault("9", 5))
}
