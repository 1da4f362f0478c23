// Package velocity folds weekly statistics into a 0-100 momentum score.
package velocity

import (
	"math"

	"github.com/goodtune/kfocus/internal/stats"
)

// componentWeight is the share each of the four components contributes.
const componentWeight = 25

// neutralOnTime is used when there is no completed session to judge.
const neutralOnTime = 0.5

// Inputs are the figures the score is derived from.
type Inputs struct {
	CurrentStreak        int
	LongestStreak        int
	TasksThisWeek        int
	WeeklyGoal           int
	FocusMinutesThisWeek int
	FocusGoalMinutes     int
	OnTimeCount          int
	TotalCompleted       int
}

// Goals are the weekly targets the completion and focus components measure against.
type Goals struct {
	WeeklyTasks        int
	WeeklyFocusMinutes int
}

// Tier is a named score band.
type Tier struct {
	Name      string `json:"name" yaml:"name"`
	Threshold int    `json:"threshold" yaml:"threshold"`
}

// Tiers lists every band in ascending threshold order.
var Tiers = []Tier{
	{Name: "Idle", Threshold: 0},
	{Name: "Warming Up", Threshold: 20},
	{Name: "Steady", Threshold: 40},
	{Name: "Focused", Threshold: 60},
	{Name: "Flow", Threshold: 75},
	{Name: "Unstoppable", Threshold: 90},
}

// Score is the computed velocity. Each component lies in [0, 25].
type Score struct {
	Streak     float64 `json:"streak" yaml:"streak"`
	Completion float64 `json:"completion" yaml:"completion"`
	Focus      float64 `json:"focus" yaml:"focus"`
	OnTime     float64 `json:"on_time" yaml:"on_time"`
	Total      int     `json:"total" yaml:"total"`
	Tier       Tier    `json:"tier" yaml:"tier"`
}

// Calculate computes the score for in.
func Calculate(in Inputs) Score {
	streakBase := in.LongestStreak
	if streakBase < 7 {
		streakBase = 7
	}
	streak := ratio(in.CurrentStreak, streakBase)
	completion := ratio(in.TasksThisWeek, in.WeeklyGoal)
	focus := ratio(in.FocusMinutesThisWeek, in.FocusGoalMinutes)
	onTime := neutralOnTime
	if in.TotalCompleted > 0 {
		onTime = ratio(in.OnTimeCount, in.TotalCompleted)
	}

	s := Score{
		Streak:     streak * componentWeight,
		Completion: completion * componentWeight,
		Focus:      focus * componentWeight,
		OnTime:     onTime * componentWeight,
	}
	s.Total = int(math.Floor(s.Streak + s.Completion + s.Focus + s.OnTime))
	s.Tier = TierFor(s.Total)
	return s
}

// TierFor returns the highest tier whose threshold total reaches.
func TierFor(total int) Tier {
	tier := Tiers[0]
	for _, t := range Tiers {
		if total >= t.Threshold {
			tier = t
		}
	}
	return tier
}

// InputsFromStats adapts a statistics snapshot and weekly goals.
func InputsFromStats(s stats.Snapshot, goals Goals) Inputs {
	return Inputs{
		CurrentStreak:        s.CurrentStreak,
		LongestStreak:        s.LongestStreak,
		TasksThisWeek:        s.TasksThisWeek,
		WeeklyGoal:           goals.WeeklyTasks,
		FocusMinutesThisWeek: s.FocusMinutesThisWeek,
		FocusGoalMinutes:     goals.WeeklyFocusMinutes,
		OnTimeCount:          s.OnTimeCompleted,
		TotalCompleted:       s.TotalSessions,
	}
}

// ratio returns n/d clamped to [0, 1], or 0 when d is not positive.
func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	r := float64(n) / float64(d)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
