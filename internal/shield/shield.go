// Package shield projects the shared session snapshot onto what the lock
// screen shows. Projection is pure; callers pass their own clock reading.
package shield

import (
	"fmt"
	"time"

	"github.com/goodtune/kfocus/internal/bridge"
)

// Icon and accent identifiers understood by renderers.
const (
	IconFocus     = "timer"
	IconDeepFocus = "lock"
	IconIdle      = "moon"

	AccentFocus     = "#5B8DEF"
	AccentDeepFocus = "#8E44AD"
	AccentIdle      = "#7F8C8D"
)

// Button labels.
const (
	LabelReturn   = "Back to focus"
	LabelEndEarly = "End session early"
	LabelDismiss  = "Dismiss"
)

// Config is the rendered shield for one instant.
type Config struct {
	Title                string        `json:"title"`
	Subtitle             string        `json:"subtitle"`
	Icon                 string        `json:"icon"`
	Accent               string        `json:"accent"`
	PrimaryButtonLabel   string        `json:"primary_button_label"`
	SecondaryButtonLabel string        `json:"secondary_button_label,omitempty"`
	ShowEndEarly         bool          `json:"show_end_early"`
	TimeRemaining        time.Duration `json:"time_remaining"`
	Progress             float64       `json:"progress"`
	IsExpired            bool          `json:"is_expired"`
	Message              string        `json:"message,omitempty"`
}

// Project builds the shield for snap at now. Deep focus sessions never offer
// an end-early affordance.
func Project(snap bridge.Snapshot, blockedTargetName string, now time.Time) Config {
	cfg := Config{
		Title:              "Focus mode",
		Icon:               IconFocus,
		Accent:             AccentFocus,
		PrimaryButtonLabel: LabelReturn,
		TimeRemaining:      snap.TimeRemaining(now),
		Progress:           snap.Progress(now),
		IsExpired:          snap.IsExpired(now),
		Message:            snap.MotivationalMessage,
	}
	if snap.IsDeepFocus {
		cfg.Title = "Deep focus"
		cfg.Icon = IconDeepFocus
		cfg.Accent = AccentDeepFocus
	} else {
		cfg.ShowEndEarly = true
		cfg.SecondaryButtonLabel = LabelEndEarly
	}

	focus := snap.Title
	if snap.TaskTitle != "" {
		focus = snap.TaskTitle
	}
	switch {
	case blockedTargetName != "" && focus != "":
		cfg.Subtitle = fmt.Sprintf("%s is blocked while you work on %s", blockedTargetName, focus)
	case blockedTargetName != "":
		cfg.Subtitle = fmt.Sprintf("%s is blocked during this session", blockedTargetName)
	case focus != "":
		cfg.Subtitle = fmt.Sprintf("Working on %s", focus)
	default:
		cfg.Subtitle = "This app is blocked during your focus session"
	}

	if cfg.IsExpired {
		cfg.Subtitle = "Session complete. Nice work."
		if blockedTargetName != "" {
			cfg.Subtitle = fmt.Sprintf("Session complete. %s unblocks shortly.", blockedTargetName)
		}
		cfg.ShowEndEarly = false
		cfg.SecondaryButtonLabel = ""
	}
	return cfg
}

// Idle returns the shield shown when no session is active.
func Idle() Config {
	return Config{
		Title:              "No active session",
		Subtitle:           "Nothing is blocked right now",
		Icon:               IconIdle,
		Accent:             AccentIdle,
		PrimaryButtonLabel: LabelDismiss,
	}
}

// FormatRemaining renders d as MM:SS, or H:MM:SS from one hour up.
// Partial seconds round up so a countdown never shows 00:00 early.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64((d + time.Second - 1) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
