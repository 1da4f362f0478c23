// Package stats reduces session history to aggregate productivity figures.
package stats

import (
	"sort"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

// Snapshot is the statistics of a history at one instant.
type Snapshot struct {
	TotalSessions              int     `json:"total_sessions" yaml:"total_sessions"`
	AttemptedSessions          int     `json:"attempted_sessions" yaml:"attempted_sessions"`
	CanceledSessions           int     `json:"canceled_sessions" yaml:"canceled_sessions"`
	TotalMinutesFocused        int     `json:"total_minutes_focused" yaml:"total_minutes_focused"`
	AverageSessionDuration     float64 `json:"average_session_duration" yaml:"average_session_duration"` // minutes
	CurrentStreak              int     `json:"current_streak" yaml:"current_streak"`
	LongestStreak              int     `json:"longest_streak" yaml:"longest_streak"`
	DeepFocusSessionsCompleted int     `json:"deep_focus_sessions_completed" yaml:"deep_focus_sessions_completed"`
	TotalPoints                int     `json:"total_points" yaml:"total_points"`
	CompletionRate             float64 `json:"completion_rate" yaml:"completion_rate"`
	SessionsThisWeek           int     `json:"sessions_this_week" yaml:"sessions_this_week"`
	FocusMinutesThisWeek       int     `json:"focus_minutes_this_week" yaml:"focus_minutes_this_week"`
	TasksThisWeek              int     `json:"tasks_this_week" yaml:"tasks_this_week"`
	OnTimeCompleted            int     `json:"on_time_completed" yaml:"on_time_completed"`
}

// Calculate computes statistics for history as seen at now. Calendar days and
// the week are taken in now's location. Pending records are ignored.
func Calculate(history []storage.SessionRecord, now time.Time) Snapshot {
	var s Snapshot

	weekStart := WeekStart(now)
	weekEnd := weekStart.AddDate(0, 0, 7)

	var focusedSeconds, weekSeconds int64
	days := make(map[time.Time]bool)
	weekTasks := make(map[string]bool)

	for i := range history {
		r := &history[i]
		switch r.Outcome {
		case storage.OutcomeCanceled:
			s.AttemptedSessions++
			s.CanceledSessions++
			continue
		case storage.OutcomeCompleted:
			s.AttemptedSessions++
		default:
			continue
		}

		s.TotalSessions++
		s.TotalPoints += r.PointsEarned
		if r.IsDeepFocus {
			s.DeepFocusSessionsCompleted++
		}
		actual := int64(0)
		if r.ActualDuration != nil {
			actual = *r.ActualDuration
		}
		focusedSeconds += actual
		if actual >= r.ScheduledDuration {
			s.OnTimeCompleted++
		}
		days[dayOf(r.StartedAt, now.Location())] = true

		if !r.StartedAt.Before(weekStart) && r.StartedAt.Before(weekEnd) {
			s.SessionsThisWeek++
			weekSeconds += actual
			if r.TaskID != "" {
				weekTasks[r.TaskID] = true
			}
		}
	}

	s.TotalMinutesFocused = int(focusedSeconds / 60)
	s.FocusMinutesThisWeek = int(weekSeconds / 60)
	s.TasksThisWeek = len(weekTasks)
	if s.TotalSessions > 0 {
		s.AverageSessionDuration = float64(s.TotalMinutesFocused) / float64(s.TotalSessions)
	}
	if s.AttemptedSessions > 0 {
		s.CompletionRate = float64(s.TotalSessions) / float64(s.AttemptedSessions)
	}
	s.CurrentStreak, s.LongestStreak = dayStreaks(days, dayOf(now, now.Location()))
	return s
}

// WeekStart returns local midnight of the Monday starting t's ISO week.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// dayStreaks walks the sorted distinct days. A run grows when the next day is
// exactly one calendar day later and restarts at 1 on any gap. The current
// streak is the final run, or 0 once the latest day is before yesterday.
func dayStreaks(days map[time.Time]bool, today time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}
	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	latest := sorted[len(sorted)-1]
	if latest.Before(today.AddDate(0, 0, -1)) {
		return 0, longest
	}
	return run, longest
}

// CheckInStreak counts the trailing run of check-ins where each follows the
// previous within interval plus one day of grace. The streak has lapsed, and
// is 0, once now is beyond that window from the last check-in.
func CheckInStreak(checkIns []time.Time, interval time.Duration, now time.Time) int {
	if len(checkIns) == 0 {
		return 0
	}
	sorted := append([]time.Time(nil), checkIns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	window := interval + 24*time.Hour
	last := sorted[len(sorted)-1]
	if now.Sub(last) > window {
		return 0
	}

	streak := 1
	for i := len(sorted) - 1; i > 0; i-- {
		if sorted[i].Sub(sorted[i-1]) > window {
			break
		}
		streak++
	}
	return streak
}
