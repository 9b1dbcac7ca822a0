package scheduler

import (
	"context"
	"io"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"themeplane/model"
)

// Runner performs the action of one schedule: switching to sc.Theme when set,
// otherwise rotating the wallpaper.
type Runner func(ctx context.Context, sc model.Schedule) error

type Scheduler struct {
	mu        sync.Mutex
	schedules []model.Schedule
	lastRun   map[string]time.Time
	runner    Runner
	logger    *log.Logger
	tick      time.Duration
	running   sync.WaitGroup
}

func New(runner Runner, initial []model.Schedule, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Scheduler{
		schedules: append([]model.Schedule(nil), initial...),
		lastRun:   make(map[string]time.Time),
		runner:    runner,
		logger:    logger,
		tick:      30 * time.Second,
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.logger.Info("scheduler started", "schedules", len(s.Schedules()))
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return
			case now := <-ticker.C:
				s.check(ctx, now)
			}
		}
	}()
}

// Wait blocks until every started run has finished.
func (s *Scheduler) Wait() {
	s.running.Wait()
}

func (s *Scheduler) check(ctx context.Context, now time.Time) {
	s.mu.Lock()
	scheds := make([]model.Schedule, len(s.schedules))
	copy(scheds, s.schedules)
	last := maps.Clone(s.lastRun)
	s.mu.Unlock()

	for _, sc := range scheds {
		if !sc.Enabled || sc.ID == "" {
			continue
		}
		if !shouldRun(sc, last[sc.ID], now) {
			continue
		}

		s.running.Add(1)
		go s.runOnce(ctx, sc, now)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, sc model.Schedule, now time.Time) {
	defer s.running.Done()

	// Recorded up front so a slow run is not started again on the next tick.
	s.mu.Lock()
	s.lastRun[sc.ID] = now
	s.mu.Unlock()

	if err := s.runner(ctx, sc); err != nil {
		s.logger.Warn("scheduled run failed", "schedule", sc.ID, "theme", sc.Theme, "err", err)
		return
	}
	s.logger.Debug("scheduled run done", "schedule", sc.ID)
}

func shouldRun(sc model.Schedule, lastRun time.Time, now time.Time) bool {
	switch sc.Type {
	case model.ScheduleInterval:
		if sc.Every == "" {
			return false
		}
		dur, err := time.ParseDuration(sc.Every)
		if err != nil || dur <= 0 {
			return false
		}
		if lastRun.IsZero() {
			return true
		}
		return now.Sub(lastRun) >= dur

	case model.ScheduleDaily:
		hour, min, ok := parseTimeOfDay(sc.TimeOfDay)
		if !ok {
			return false
		}

		loc := now.Location()
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, loc)

		if now.Before(target) {
			return false
		}
		if !lastRun.IsZero() && sameDay(lastRun.In(loc), now) {
			return false
		}
		return true

	default:
		return false
	}
}

func parseTimeOfDay(v string) (int, int, bool) {
	h, m, found := strings.Cut(v, ":")
	if !found {
		return 0, 0, false
	}
	hour, err1 := strconv.Atoi(h)
	min, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, false
	}
	return hour, min, true
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Validate reports whether sc can ever fire.
func Validate(sc model.Schedule) bool {
	switch sc.Type {
	case model.ScheduleInterval:
		dur, err := time.ParseDuration(sc.Every)
		return err == nil && dur > 0
	case model.ScheduleDaily:
		_, _, ok := parseTimeOfDay(sc.TimeOfDay)
		return ok
	}
	return false
}

func (s *Scheduler) Schedules() []model.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out
}

func (s *Scheduler) SetSchedules(scheds []model.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules = make([]model.Schedule, len(scheds))
	copy(s.schedules, scheds)
	s.lastRun = make(map[string]time.Time)
}
