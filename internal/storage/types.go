package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome is the lifecycle state of a focus session.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeCanceled  Outcome = "canceled"
)

// UnmarshalJSON implements json.Unmarshaler to normalize the outcome to lowercase.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(o))
}

// ParseOutcome validates and normalizes an outcome string. An empty string is pending.
func ParseOutcome(s string) (Outcome, error) {
	normalized := Outcome(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case "":
		return OutcomePending, nil
	case OutcomePending, OutcomeCompleted, OutcomeCanceled:
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid outcome: %s (must be pending, completed, or canceled)", s)
	}
}

// IsTerminal reports whether the outcome is completed or canceled.
func (o Outcome) IsTerminal() bool {
	return o == OutcomeCompleted || o == OutcomeCanceled
}

// SessionRecord is one real or attempted focus session.
//
// EndedAt, ActualDuration and a non-zero PointsEarned only carry meaning once
// Outcome is terminal; they are set together by Complete or Cancel and never
// again afterwards.
type SessionRecord struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	ScheduledDuration int64      `json:"scheduled_duration"` // seconds
	ActualDuration    *int64     `json:"actual_duration,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	IsDeepFocus       bool       `json:"is_deep_focus"`
	Outcome           Outcome    `json:"outcome"`
	PointsEarned      int        `json:"points_earned"`
	TaskID            string     `json:"task_id,omitempty"`
	TaskTitle         string     `json:"task_title,omitempty"`
	PresetID          string     `json:"preset_id,omitempty"`
	ScheduleID        string     `json:"schedule_id,omitempty"`
	BlockSelection    []byte     `json:"block_selection,omitempty"` // opaque
}

// IsTerminal reports whether the record has been completed or canceled.
func (r *SessionRecord) IsTerminal() bool {
	return r.Outcome.IsTerminal()
}

// Scheduled returns the scheduled duration.
func (r *SessionRecord) Scheduled() time.Duration {
	return time.Duration(r.ScheduledDuration) * time.Second
}

// Actual returns the focused duration, or zero while the session is pending.
func (r *SessionRecord) Actual() time.Duration {
	if r.ActualDuration == nil {
		return 0
	}
	return time.Duration(*r.ActualDuration) * time.Second
}

// EndsAt returns the instant the scheduled duration elapses.
func (r *SessionRecord) EndsAt() time.Time {
	return r.StartedAt.Add(r.Scheduled())
}

// Complete moves a pending record to completed at the given instant.
func (r *SessionRecord) Complete(at time.Time, points int) error {
	if r.IsTerminal() {
		return fmt.Errorf("complete session %s: %w", r.ID, ErrAlreadyTerminal)
	}
	if points < 0 {
		points = 0
	}
	r.finish(at)
	r.Outcome = OutcomeCompleted
	r.PointsEarned = points
	return nil
}

// Cancel moves a pending record to canceled at the given instant.
func (r *SessionRecord) Cancel(at time.Time) error {
	if r.IsTerminal() {
		return fmt.Errorf("cancel session %s: %w", r.ID, ErrAlreadyTerminal)
	}
	r.finish(at)
	r.Outcome = OutcomeCanceled
	r.PointsEarned = 0
	return nil
}

func (r *SessionRecord) finish(at time.Time) {
	if at.Before(r.StartedAt) {
		at = r.StartedAt
	}
	ended := at
	actual := int64(ended.Sub(r.StartedAt) / time.Second)
	r.EndedAt = &ended
	r.ActualDuration = &actual
}

// BlockListPreset is a named, reusable selection of blocked targets.
type BlockListPreset struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Targets     []string   `json:"targets"` // app, category or domain tokens
	IsAllowList bool       `json:"is_allow_list"`
	UsageCount  int64      `json:"usage_count"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ScheduledSession is a single or recurring schedule definition.
type ScheduledSession struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	StartTime       time.Time  `json:"start_time"` // single occurrence
	IsRecurring     bool       `json:"is_recurring"`
	StartHour       int        `json:"start_hour"`
	StartMinute     int        `json:"start_minute"`
	RecurringDays   []int      `json:"recurring_days"` // 0=Sunday, 6=Saturday
	EndDate         *time.Time `json:"end_date,omitempty"`
	Duration        int64      `json:"duration"` // seconds
	IsDeepFocus     bool       `json:"is_deep_focus"`
	IsEnabled       bool       `json:"is_enabled"`
	PresetID        string     `json:"preset_id,omitempty"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SessionFilter defines criteria for listing session history.
type SessionFilter struct {
	Since   *time.Time // StartedAt >= Since
	Until   *time.Time // StartedAt < Until
	Outcome Outcome    // empty = any
	Limit   int
}

// Matches reports whether a record passes the filter, ignoring Limit.
func (f SessionFilter) Matches(r SessionRecord) bool {
	if f.Since != nil && r.StartedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !r.StartedAt.Before(*f.Until) {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	return true
}
