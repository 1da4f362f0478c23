// Package session owns the focus session lifecycle: start, complete, cancel,
// and convergence of the published snapshot with persisted history.
package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/kfocus/internal/bridge"
	"github.com/goodtune/kfocus/internal/clock"
	"github.com/goodtune/kfocus/internal/metrics"
	"github.com/goodtune/kfocus/internal/preset"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrSessionActive is returned by Start while an unexpired session is pending.
	ErrSessionActive = errors.New("a focus session is already active")

	// ErrNoActiveSession is returned when no session is published.
	ErrNoActiveSession = errors.New("no active focus session")

	// ErrInvalidDuration is returned by Start for durations under one second.
	ErrInvalidDuration = errors.New("session duration must be positive")
)

// DefaultTitle names sessions started without a title.
const DefaultTitle = "Focus session"

// Config holds lifecycle settings.
type Config struct {
	DeepFocusMultiplier  int
	MotivationalMessages []string
}

// TaskRef links a session to an external task.
type TaskRef struct {
	ID    string
	Title string
}

// StartRequest describes a session to start.
type StartRequest struct {
	Title          string
	Duration       time.Duration
	IsDeepFocus    bool
	Task           *TaskRef
	PresetID       string
	ScheduleID     string
	BlockSelection []byte
}

// Manager drives session records through pending -> completed | canceled and
// keeps the shared snapshot in step with them.
type Manager struct {
	sessions   storage.SessionStore
	bridge     *bridge.Bridge
	presets    *preset.Resolver
	clock      clock.Clock
	multiplier int
	messages   []string
	logger     zerolog.Logger
}

// NewManager creates a session manager. presets may be nil, in which case
// display hints carry no target name and usage is not tracked.
func NewManager(sessions storage.SessionStore, br *bridge.Bridge, presets *preset.Resolver, clk clock.Clock, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.DeepFocusMultiplier < 1 {
		cfg.DeepFocusMultiplier = 2
	}
	return &Manager{
		sessions:   sessions,
		bridge:     br,
		presets:    presets,
		clock:      clk,
		multiplier: cfg.DeepFocusMultiplier,
		messages:   cfg.MotivationalMessages,
		logger:     logger.With().Str("component", "session-manager").Logger(),
	}
}

// Start creates, persists and publishes a new pending session.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*storage.SessionRecord, error) {
	seconds := int64(req.Duration / time.Second)
	if seconds <= 0 {
		return nil, ErrInvalidDuration
	}

	// Settle whatever is currently published before deciding it is active.
	if _, err := m.Reconcile(ctx); err != nil {
		return nil, err
	}
	if snap, ok := m.bridge.ReadSnapshot(ctx); ok {
		return nil, fmt.Errorf("%w: %s ends at %s", ErrSessionActive, snap.ID, snap.EndTime.Format(time.Kitchen))
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	now := m.clock.Now()
	record := storage.SessionRecord{
		ID:                uuid.NewString(),
		Title:             title,
		ScheduledDuration: seconds,
		StartedAt:         now,
		IsDeepFocus:       req.IsDeepFocus,
		Outcome:           storage.OutcomePending,
		PresetID:          req.PresetID,
		ScheduleID:        req.ScheduleID,
		BlockSelection:    req.BlockSelection,
	}
	if req.Task != nil {
		record.TaskID = req.Task.ID
		record.TaskTitle = req.Task.Title
	}

	if err := m.sessions.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	snap := bridge.NewSnapshot(record, m.Message(record.ID))
	if err := m.bridge.PublishSnapshot(ctx, snap); err != nil {
		m.abandon(ctx, record)
		return nil, fmt.Errorf("publish session %s: %w", record.ID, err)
	}

	hints := bridge.DisplayHints{SessionID: record.ID}
	if m.presets != nil {
		hints.BlockedTargetName, hints.IsAllowList = m.presets.DisplayName(ctx, record.PresetID)
	}
	if err := m.bridge.PublishDisplayHints(ctx, hints); err != nil {
		m.logger.Warn().Err(err).Str("session_id", record.ID).Msg("Failed to publish display hints")
	}
	if err := m.bridge.ClearFlag(ctx, bridge.FlagSessionEnded); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear stale session-ended flag")
	}
	if m.presets != nil {
		if err := m.presets.RecordUsage(ctx, record.PresetID, now); err != nil {
			m.logger.Warn().Err(err).Str("preset_id", record.PresetID).Msg("Failed to record preset usage")
		}
	}

	metrics.SessionsStarted.WithLabelValues(strconv.FormatBool(record.IsDeepFocus)).Inc()
	metrics.ActiveSession.Set(1)

	m.logger.Info().
		Str("session_id", record.ID).
		Str("title", record.Title).
		Dur("duration", record.Scheduled()).
		Bool("deep_focus", record.IsDeepFocus).
		Time("ends_at", snap.EndTime).
		Msg("Focus session started")

	return &record, nil
}

// Complete finalizes rec as completed now with the given points. rec is only
// updated when the record was persisted.
func (m *Manager) Complete(ctx context.Context, rec *storage.SessionRecord, points int) error {
	return m.completeAt(ctx, rec, m.clock.Now(), points)
}

// Cancel finalizes rec as canceled now.
func (m *Manager) Cancel(ctx context.Context, rec *storage.SessionRecord) error {
	updated := *rec
	if err := updated.Cancel(m.clock.Now()); err != nil {
		return err
	}
	if err := m.finalize(ctx, updated); err != nil {
		return err
	}
	*rec = updated
	return nil
}

func (m *Manager) completeAt(ctx context.Context, rec *storage.SessionRecord, at time.Time, points int) error {
	updated := *rec
	if err := updated.Complete(at, points); err != nil {
		return err
	}
	if err := m.finalize(ctx, updated); err != nil {
		return err
	}
	*rec = updated
	return nil
}

// Active returns the pending record named by the published snapshot.
func (m *Manager) Active(ctx context.Context) (*storage.SessionRecord, error) {
	snap, ok := m.bridge.ReadSnapshot(ctx)
	if !ok {
		return nil, ErrNoActiveSession
	}
	rec, err := m.sessions.Get(ctx, snap.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("load active session %s: %w", snap.ID, err)
	}
	if rec.IsTerminal() {
		return nil, ErrNoActiveSession
	}
	return rec, nil
}

// Reconcile converges the published snapshot with the store. It honors a
// pending end request, completes an expired session, and clears a snapshot
// whose record was finalized elsewhere. It returns the record it finalized,
// or nil when nothing changed.
func (m *Manager) Reconcile(ctx context.Context) (*storage.SessionRecord, error) {
	started := time.Now()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(started).Seconds())
	}()

	snap, ok := m.bridge.ReadSnapshot(ctx)
	if !ok {
		if m.bridge.ConsumeFlag(ctx, bridge.FlagEndRequested) {
			m.logger.Debug().Msg("Discarded end request with no active session")
		}
		metrics.ActiveSession.Set(0)
		return nil, nil
	}

	rec, err := m.sessions.Get(ctx, snap.ID)
	if errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn().Str("session_id", snap.ID).Msg("Clearing snapshot for unknown session")
		m.clearPublished(ctx)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", snap.ID, err)
	}
	if rec.IsTerminal() {
		m.logger.Info().Str("session_id", rec.ID).Str("outcome", string(rec.Outcome)).Msg("Session finalized elsewhere, clearing snapshot")
		m.bridge.ConsumeFlag(ctx, bridge.FlagEndRequested)
		m.clearPublished(ctx)
		return nil, nil
	}

	if m.bridge.ConsumeFlag(ctx, bridge.FlagEndRequested) {
		if rec.IsDeepFocus {
			m.logger.Warn().Str("session_id", rec.ID).Msg("Ignoring end request for deep focus session")
		} else {
			if err := m.Cancel(ctx, rec); err != nil {
				return nil, m.lostRace(rec.ID, err)
			}
			return rec, nil
		}
	}

	if !m.clock.Now().Before(rec.EndsAt()) {
		end := rec.EndsAt()
		if err := m.completeAt(ctx, rec, end, m.pointsAt(rec, end)); err != nil {
			return nil, m.lostRace(rec.ID, err)
		}
		return rec, nil
	}

	metrics.ActiveSession.Set(1)
	return nil, nil
}

// lostRace drops ErrAlreadyTerminal from a reconcile: another process
// finalized the session between our read and write, and finalize has already
// cleared the snapshot.
func (m *Manager) lostRace(id string, err error) error {
	if errors.Is(err, storage.ErrAlreadyTerminal) {
		m.logger.Info().Str("session_id", id).Msg("Session finalized elsewhere during reconcile")
		return nil
	}
	return err
}

// Points returns what rec earns if completed now: one point per focused
// minute up to the scheduled duration, times the deep focus multiplier.
func (m *Manager) Points(rec *storage.SessionRecord) int {
	return m.pointsAt(rec, m.clock.Now())
}

func (m *Manager) pointsAt(rec *storage.SessionRecord, at time.Time) int {
	focused := at.Sub(rec.StartedAt)
	if focused > rec.Scheduled() {
		focused = rec.Scheduled()
	}
	minutes := int(focused / time.Minute)
	if minutes <= 0 {
		return 0
	}
	if rec.IsDeepFocus {
		minutes *= m.multiplier
	}
	return minutes
}

// Message picks the motivational message for a session id. The same id always
// yields the same message.
func (m *Manager) Message(id string) string {
	if len(m.messages) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return m.messages[h.Sum32()%uint32(len(m.messages))]
}

func (m *Manager) finalize(ctx context.Context, rec storage.SessionRecord) error {
	if err := m.sessions.Finalize(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrAlreadyTerminal) {
			m.clearPublishedFor(ctx, rec.ID)
		}
		return fmt.Errorf("finalize session %s: %w", rec.ID, err)
	}

	m.clearPublishedFor(ctx, rec.ID)
	if err := m.bridge.SetFlag(ctx, bridge.FlagSessionEnded); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to raise session-ended flag")
	}

	metrics.SessionsFinalized.WithLabelValues(string(rec.Outcome)).Inc()
	metrics.FocusMinutes.Add(rec.Actual().Minutes())
	metrics.ActiveSession.Set(0)

	m.logger.Info().
		Str("session_id", rec.ID).
		Str("outcome", string(rec.Outcome)).
		Dur("actual", rec.Actual()).
		Int("points", rec.PointsEarned).
		Msg("Focus session ended")
	return nil
}

// clearPublishedFor clears the snapshot unless it already names another session.
func (m *Manager) clearPublishedFor(ctx context.Context, id string) {
	if snap, ok := m.bridge.ReadSnapshot(ctx); ok && snap.ID != id {
		return
	}
	m.clearPublished(ctx)
}

func (m *Manager) clearPublished(ctx context.Context) {
	if err := m.bridge.ClearSnapshot(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear session snapshot")
	}
	if err := m.bridge.ClearDisplayHints(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear display hints")
	}
	metrics.ActiveSession.Set(0)
}

// abandon cancels a record whose snapshot could not be published so it does
// not linger as pending without a snapshot.
func (m *Manager) abandon(ctx context.Context, rec storage.SessionRecord) {
	if err := rec.Cancel(m.clock.Now()); err != nil {
		return
	}
	if err := m.sessions.Finalize(ctx, rec); err != nil {
		m.logger.Error().Err(err).Str("session_id", rec.ID).Msg("Failed to abandon unpublished session")
	}
}
