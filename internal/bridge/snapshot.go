package bridge

import (
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

// SchemaVersion is the wire version of Snapshot and DisplayHints. Readers treat
// any other version as absent.
const SchemaVersion = 1

// Snapshot is the denormalized view of the active session shared with
// enforcement processes. EndTime is absolute so every reader derives the
// remaining time from its own clock.
type Snapshot struct {
	Version             int       `json:"version"`
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	TaskID              string    `json:"task_id,omitempty"`
	TaskTitle           string    `json:"task_title,omitempty"`
	Duration            int64     `json:"duration"` // seconds
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	IsDeepFocus         bool      `json:"is_deep_focus"`
	MotivationalMessage string    `json:"motivational_message"`
}

// NewSnapshot builds the snapshot for a pending record. EndTime is computed
// here once and never recomputed by readers.
func NewSnapshot(record storage.SessionRecord, message string) Snapshot {
	return Snapshot{
		Version:             SchemaVersion,
		ID:                  record.ID,
		Title:               record.Title,
		TaskID:              record.TaskID,
		TaskTitle:           record.TaskTitle,
		Duration:            record.ScheduledDuration,
		StartTime:           record.StartedAt,
		EndTime:             record.EndsAt(),
		IsDeepFocus:         record.IsDeepFocus,
		MotivationalMessage: message,
	}
}

// TimeRemaining returns max(0, EndTime-now).
func (s Snapshot) TimeRemaining(now time.Time) time.Duration {
	remaining := s.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns the elapsed fraction of the session in [0, 1].
func (s Snapshot) Progress(now time.Time) float64 {
	total := s.EndTime.Sub(s.StartTime)
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(s.StartTime)
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= total:
		return 1
	}
	return float64(elapsed) / float64(total)
}

// IsExpired reports whether now is at or past EndTime.
func (s Snapshot) IsExpired(now time.Time) bool {
	return !now.Before(s.EndTime)
}

func (s Snapshot) valid() bool {
	return s.Version == SchemaVersion && s.ID != "" && !s.EndTime.IsZero()
}

// DisplayHints carries the human-readable context the enforcement process
// needs to render the shield without a store lookup.
type DisplayHints struct {
	Version           int    `json:"version"`
	SessionID         string `json:"session_id"`
	BlockedTargetName string `json:"blocked_target_name,omitempty"`
	IsAllowList       bool   `json:"is_allow_list"`
}

func (h DisplayHints) valid() bool {
	return h.Version == SchemaVersion && h.SessionID != ""
}
