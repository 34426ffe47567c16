package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hijrical/internal/app"
	"hijrical/internal/config"
	"hijrical/internal/events"
	"hijrical/internal/hijri"
	"hijrical/internal/ics"
	appLog "hijrical/internal/log"
	"hijrical/internal/model"
)

const (
	defaultWidgetDays = 7
	maxFeedYears      = 5
)

// Server provides the HTTP API over the calendar service.
type Server struct {
	cfg *config.Config
	svc *app.Service
	mux *http.ServeMux

	metrics *metrics
	limiter *rate.Limiter

	// Cached main-screen snapshot. The fact in it stays stable until the
	// next refresh, so repeated requests on one day see the same fact.
	snapMu    sync.RWMutex
	snapCache *snapshotCache
}

// snapshotCache holds a snapshot and the civil day it was built for.
type snapshotCache struct {
	snap model.Snapshot
	day  string
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *app.Service) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		mux:     http.NewServeMux(),
		metrics: newMetrics(),
	}
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="hijrical", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/health", s.route("/health", http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/metrics", s.metrics.handler())

	s.mux.Handle("/api/today", s.api("/api/today", s.handleToday))
	s.mux.Handle("/api/timeline", s.api("/api/timeline", s.handleTimeline))
	s.mux.Handle("/api/fact", s.api("/api/fact", s.handleFact))
	s.mux.Handle("/api/snapshot", s.api("/api/snapshot", s.handleSnapshot))
	s.mux.Handle("/api/widget", s.api("/api/widget", s.handleWidget))
	s.mux.Handle("/calendar.ics", s.api("/calendar.ics", s.handleICS))
}

// route wraps a handler with request metrics.
func (s *Server) route(name string, h http.Handler) http.Handler {
	return s.metrics.instrument(name, h)
}

// api wraps a handler with rate limiting and metrics.
func (s *Server) api(name string, h http.HandlerFunc) http.Handler {
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		h(w, r)
	})
	return s.route(name, limited)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// todayResponse is the JSON response shape for /api/today.
type todayResponse struct {
	model.HijriView
	Ordinal  int    `json:"ordinal"`
	Timezone string `json:"timezone"`
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	now := s.svc.Now()
	d := s.svc.Today(now)
	writeJSON(w, http.StatusOK, todayResponse{
		HijriView: app.HijriView(d),
		Ordinal:   hijri.TodayOrdinal(now.In(s.svc.Location())),
		Timezone:  s.svc.Location().String(),
	})
}

// timelineResponse is the JSON response shape for /api/timeline.
type timelineResponse struct {
	Year  int                 `json:"year"`
	Title string              `json:"title"`
	Rows  []model.TimelineRow `json:"rows"`
}

// handleTimeline returns the classified timeline.
//
// GET /api/timeline?year=1447
//   - year: Hijri year (default: configured target year or today's year)
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	now := s.svc.Now()
	year, err := s.yearParam(r, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, timelineResponse{
		Year:  year,
		Title: fmt.Sprintf("Timeline %d AH", year),
		Rows:  app.Rows(s.svc.Timeline(now, year)),
	})
}

// factResponse is the JSON response shape for /api/fact.
type factResponse struct {
	Month string `json:"month"`
	Fact  string `json:"fact"`
}

func (s *Server) handleFact(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = s.svc.Today(s.svc.Now()).MonthName
	}
	writeJSON(w, http.StatusOK, factResponse{Month: month, Fact: s.svc.FactFor(month)})
}

// handleSnapshot returns the main screen.
//
// GET /api/snapshot?onboarded=true
//   - onboarded: echoed back so the client can pick its first screen; the
//     server does not persist it.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	onboarded, _ := strconv.ParseBool(r.URL.Query().Get("onboarded"))

	snap := s.Snapshot()
	snap.Onboarded = onboarded
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), s.widgetDays())
	if days <= 0 {
		days = s.widgetDays()
	}

	wt, err := s.svc.Widget(s.svc.Now(), days)
	if err != nil {
		appLog.Error("api widget: build failed", err, "days", days)
		writeError(w, http.StatusInternalServerError, "failed to build widget timeline")
		return
	}
	writeJSON(w, http.StatusOK, wt)
}

// handleICS serves the timeline as an iCalendar feed.
//
// GET /calendar.ics?years=2
//   - years: number of consecutive Hijri years from the timeline year (1-5)
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	now := s.svc.Now()
	years := parseIntDefault(r.URL.Query().Get("years"), 1)
	if years < 1 {
		years = 1
	}
	if years > maxFeedYears {
		years = maxFeedYears
	}

	first, err := s.yearParam(r, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cats := make([]events.Catalog, 0, years)
	for y := first; y < first+years && y <= hijri.MaxYear; y++ {
		cats = append(cats, s.svc.Catalog(y))
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="hijrical.ics"`)
	if err := ics.Write(w, cats, ics.ExportOptions{Name: "Hijri calendar", Stamp: now}); err != nil {
		appLog.Error("api ics: write failed", err)
	}
}

// Snapshot returns the cached snapshot, rebuilding it when the civil day
// has changed since it was built.
func (s *Server) Snapshot() model.Snapshot {
	now := s.svc.Now()
	day := now.Format("2006-01-02")

	s.snapMu.RLock()
	sc := s.snapCache
	s.snapMu.RUnlock()
	if sc != nil && sc.day == day {
		return sc.snap
	}
	return s.Refresh()
}

// Refresh rebuilds the cached snapshot. The refresh scheduler calls it at
// local midnight.
func (s *Server) Refresh() model.Snapshot {
	now := s.svc.Now()
	snap := s.svc.Snapshot(now, false)

	s.snapMu.Lock()
	s.snapCache = &snapshotCache{snap: snap, day: now.Format("2006-01-02")}
	s.snapMu.Unlock()

	s.metrics.refreshes.Inc()
	appLog.Info("snapshot refreshed",
		"hijri", snap.Today.Display,
		"timeline_year", snap.TimelineYear,
		"today_ordinal", snap.TodayOrdinal,
		"timeline_ordinal", snap.TimelineOrdinal,
	)
	return snap
}

func (s *Server) yearParam(r *http.Request, now time.Time) (int, error) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return s.svc.TimelineYear(now), nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < hijri.MinYear || year > hijri.MaxYear {
		return 0, fmt.Errorf("year must be between %d and %d", hijri.MinYear, hijri.MaxYear)
	}
	return year, nil
}

func (s *Server) widgetDays() int {
	if s.cfg != nil && s.cfg.WidgetDays > 0 {
		return s.cfg.WidgetDays
	}
	return defaultWidgetDays
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
