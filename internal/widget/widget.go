// Package widget computes when a home/lock-screen widget should show new
// content and drives periodic refresh.
//
// A widget shows today's Hijri date, so its content only changes at local
// midnight. Entries are therefore "now" followed by one instant per local
// midnight, and the whole batch should be re-requested after the next
// midnight.
package widget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	appLog "hijrical/internal/log"
)

// MaxDays caps the number of entries per batch.
const MaxDays = 31

// NextMidnight returns the start of the civil day after now in loc.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	return StartOfDay(n.Year(), n.Month(), n.Day()+1, loc)
}

// StartOfDay returns the first instant of the civil day y-m-d in loc. When a
// DST jump skips local midnight, that is the transition instant.
func StartOfDay(y int, m time.Month, d int, loc *time.Location) time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	wy, wm, wd := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Date()
	if ty, tm, td := t.Date(); ty != wy || tm != wm || td != wd {
		// Landed in the gap, before the day began.
		if _, end := t.ZoneBounds(); !end.IsZero() {
			t = end.In(loc)
		}
	}
	return t
}

// Instants returns the instants at which widget content changes: now, then
// each following local midnight, days instants in total.
func Instants(now time.Time, days int, loc *time.Location) ([]time.Time, error) {
	if days <= 0 {
		return nil, errors.New("widget: days must be positive")
	}
	if days > MaxDays {
		days = MaxDays
	}
	if loc == nil {
		loc = time.Local
	}

	out := []time.Time{now.In(loc)}
	if days == 1 {
		return out, nil
	}

	// Days are enumerated in UTC, which has no DST, then each date is
	// placed at its first local instant.
	n := now.In(loc)
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   days - 1,
		Dtstart: time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return nil, fmt.Errorf("widget: rrule: %w", err)
	}
	for _, day := range r.All() {
		out = append(out, StartOfDay(day.Year(), day.Month(), day.Day(), loc))
	}
	return out, nil
}

// Scheduler runs a refresh job on a cron schedule in a fixed location.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	loc      *time.Location
	job      func()
}

// NewScheduler parses spec (standard 5-field cron or a descriptor such as
// "@daily") and registers job. The job runs in loc's civil time.
func NewScheduler(spec string, loc *time.Location, job func()) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("widget: nil refresh job")
	}
	if loc == nil {
		loc = time.Local
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("widget: refresh schedule %q: %w", spec, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	s := &Scheduler{cron: c, schedule: sched, loc: loc, job: job}
	c.Schedule(sched, cron.FuncJob(s.runJob))
	return s, nil
}

// Next returns the next time the job will run after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// RunNow runs the job synchronously, outside the schedule.
func (s *Scheduler) RunNow() {
	s.runJob()
}

// Run starts the schedule and blocks until ctx is canceled, then waits for
// a running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	appLog.Info("refresh scheduler started", "next", s.Next(time.Now()).Format(time.RFC3339))
	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	appLog.Info("refresh scheduler stopped")
}

func (s *Scheduler) runJob() {
	start := time.Now()
	s.job()
	appLog.Debug("refresh job finished", "elapsed", time.Since(start).String())
}
