// Package schedule starts focus sessions when enabled schedule definitions
// come due.
package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goodtune/kfocus/internal/clock"
	"github.com/goodtune/kfocus/internal/metrics"
	"github.com/goodtune/kfocus/internal/recurrence"
	"github.com/goodtune/kfocus/internal/session"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is used when the scheduler interval is not positive.
const DefaultPollInterval = 30 * time.Second

// Starter starts sessions. *session.Manager satisfies it.
type Starter interface {
	Start(ctx context.Context, req session.StartRequest) (*storage.SessionRecord, error)
}

// Scheduler polls enabled schedules and starts a session for every
// occurrence that fell due since the previous poll.
type Scheduler struct {
	schedules storage.ScheduleStore
	starter   Starter
	clock     clock.Clock
	interval  time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	lastTick time.Time
	warned   map[string]bool
	retry    map[string]time.Time // reference of an occurrence whose start failed

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewScheduler creates a scheduler. Occurrences before its creation are not fired.
func NewScheduler(schedules storage.ScheduleStore, starter Starter, clk clock.Clock, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{
		schedules: schedules,
		starter:   starter,
		clock:     clk,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		lastTick:  clk.Now(),
		warned:    make(map[string]bool),
		retry:     make(map[string]time.Time),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins polling in the background.
func (s *Scheduler) Start() {
	go s.run()
	s.logger.Info().Dur("interval", s.interval).Msg("Session scheduler started")
}

// Stop ends polling and waits for the loop to exit.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info().Msg("Session scheduler stopped")
}

func (s *Scheduler) run() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Tick(context.Background()); err != nil {
				s.logger.Error().Err(err).Msg("Failed to process schedules")
			}
		case <-s.stopChan:
			return
		}
	}
}

// Tick fires every enabled schedule whose next occurrence after the previous
// tick (or its last trigger) is at or before now. It returns the number of
// sessions started.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs, err := s.schedules.ListEnabled(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	started := 0
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		seen[def.ID] = true
		ref := s.lastTick
		if failed, ok := s.retry[def.ID]; ok {
			ref = failed
		}
		if def.LastTriggeredAt != nil && def.LastTriggeredAt.After(ref) {
			ref = *def.LastTriggeredAt
		}

		next, ok := recurrence.NextOccurrence(def, ref)
		if !ok {
			s.unsatisfiable(def)
			continue
		}
		delete(s.warned, def.ID)
		if next.After(now) {
			continue
		}

		fired, err := s.fire(ctx, def, next, now)
		if err != nil {
			s.retry[def.ID] = ref
			continue
		}
		delete(s.retry, def.ID)
		if fired {
			started++
		}
	}
	for id := range s.retry {
		if !seen[id] {
			delete(s.retry, id)
		}
	}

	s.lastTick = now
	return started, nil
}

// fire starts the session for one due occurrence. A start error leaves the
// occurrence unconsumed so the next tick retries it.
func (s *Scheduler) fire(ctx context.Context, def storage.ScheduledSession, due, now time.Time) (bool, error) {
	log := s.logger.With().Str("schedule_id", def.ID).Str("title", def.Title).Time("due", due).Logger()

	rec, err := s.starter.Start(ctx, session.StartRequest{
		Title:       def.Title,
		Duration:    time.Duration(def.Duration) * time.Second,
		IsDeepFocus: def.IsDeepFocus,
		PresetID:    def.PresetID,
		ScheduleID:  def.ID,
	})
	switch {
	case errors.Is(err, session.ErrSessionActive):
		log.Info().Msg("Skipping scheduled session, another session is active")
	case err != nil:
		log.Error().Err(err).Msg("Failed to start scheduled session, retrying next tick")
		return false, err
	default:
		metrics.ScheduleTriggers.Inc()
		log.Info().Str("session_id", rec.ID).Msg("Started scheduled session")
	}

	def.LastTriggeredAt = &now
	def.UpdatedAt = now
	if !def.IsRecurring {
		def.IsEnabled = false
	}
	if err := s.schedules.Upsert(ctx, def); err != nil {
		log.Error().Err(err).Msg("Failed to record schedule trigger")
	}
	return rec != nil, nil
}

func (s *Scheduler) unsatisfiable(def storage.ScheduledSession) {
	if s.warned[def.ID] {
		return
	}
	s.warned[def.ID] = true
	metrics.ScheduleUnsatisfiable.Inc()

	event := s.logger.Warn().Str("schedule_id", def.ID).Str("title", def.Title)
	if err := recurrence.Validate(def); err != nil {
		event = event.Err(err)
	}
	event.Msg("Enabled schedule has no upcoming occurrence")
}

// Occurrence pairs a schedule with its next start.
type Occurrence struct {
	Schedule storage.ScheduledSession `json:"schedule" yaml:"schedule"`
	At       time.Time                `json:"at" yaml:"at"`
}

// Upcoming returns the next occurrence of every enabled definition after now,
// soonest first. Definitions without one are omitted.
func Upcoming(defs []storage.ScheduledSession, now time.Time) []Occurrence {
	var out []Occurrence
	for _, def := range defs {
		if !def.IsEnabled {
			continue
		}
		if at, ok := recurrence.NextOccurrence(def, now); ok {
			out = append(out, Occurrence{Schedule: def, At: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
