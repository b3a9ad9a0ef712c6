// Package scheduler fires the daily analysis-and-trade cycle at a
// configured wall-clock time and guarantees cycles never overlap.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"

	"github.com/sirupsen/logrus"
)

type Scheduler struct {
	trigger string
	loc     *time.Location
	poll    time.Duration
	log     *logger.Logger

	mu        sync.Mutex
	running   bool
	lastFired string // calendar day of the last trigger, YYYY-MM-DD in loc
	cycles    int64
	wg        sync.WaitGroup
}

// New builds a scheduler firing once per calendar day at trigger ("HH:MM")
// in the given timezone, checked every poll interval.
func New(trigger, timezone string, poll time.Duration, log *logger.Logger) (*Scheduler, error) {
	if _, err := time.Parse("15:04", trigger); err != nil {
		return nil, fmt.Errorf("scheduler: bad trigger time %q: %w", trigger, err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: bad timezone %q: %w", timezone, err)
	}
	if poll <= 0 {
		poll = time.Minute
	}
	return &Scheduler{
		trigger: trigger,
		loc:     loc,
		poll:    poll,
		log:     log,
	}, nil
}

// Run polls until ctx is cancelled, invoking cycle when the trigger time is
// due. Cancellation stops the polling loop within one interval but never
// aborts a cycle already in progress; Run returns once that cycle finishes.
func (s *Scheduler) Run(ctx context.Context, cycle func(context.Context)) {
	s.logEntry().WithFields(logrus.Fields{
		"trigger":  s.trigger,
		"timezone": s.loc.String(),
	}).Info("scheduler started")

	// A trigger time already past at startup waits for tomorrow.
	now := time.Now().In(s.loc)
	if !now.Before(s.dueAt(now)) {
		s.mu.Lock()
		s.lastFired = dayOf(now)
		s.mu.Unlock()
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logEntry().Info("scheduler stopping")
			s.wg.Wait()
			return
		case <-ticker.C:
			if s.due(time.Now().In(s.loc)) {
				s.Trigger(ctx, cycle)
			}
		}
	}
}

// Trigger starts one cycle unless one is already running, in which case the
// trigger is dropped with a warning, never queued. Returns whether a cycle
// was started.
func (s *Scheduler) Trigger(ctx context.Context, cycle func(context.Context)) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logEntry().Warn("cycle still running, dropping trigger")
		return false
	}
	s.running = true
	s.cycles++
	s.mu.Unlock()

	// The cycle outlives a stop signal: it runs to completion (its internal
	// timeouts bound it) rather than being torn down mid-trade.
	cycleCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		cycle(cycleCtx)
	}()
	return true
}

// Cycles returns how many cycles have been started.
func (s *Scheduler) Cycles() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// due reports whether the trigger should fire at now, at most once per
// calendar day. The check is against "now is at or past the trigger time"
// rather than exact equality, so a poll interval coarser than a minute
// cannot skip the slot.
func (s *Scheduler) due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Before(s.dueAt(now)) {
		return false
	}
	day := dayOf(now)
	if day == s.lastFired {
		return false
	}
	s.lastFired = day
	return true
}

func (s *Scheduler) dueAt(now time.Time) time.Time {
	t, _ := time.Parse("15:04", s.trigger)
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, s.loc)
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

func (s *Scheduler) logEntry() *logrus.Entry {
	return s.log.WithComponent("scheduler")
}
