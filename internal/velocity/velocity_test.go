package velocity

import (
	"testing"

	"github.com/goodtune/kfocus/internal/stats"
)

func TestCalculateNoHistory(t *testing.T) {
	s := Calculate(Inputs{WeeklyGoal: 10, FocusGoalMinutes: 600})
	if s.OnTime != 12.5 {
		t.Fatalf("expected neutral on-time 12.5, got %v", s.OnTime)
	}
	if s.Streak != 0 || s.Completion != 0 || s.Focus != 0 {
		t.Fatalf("expected zero components, got %+v", s)
	}
	if s.Total != 12 {
		t.Fatalf("expected total 12, got %d", s.Total)
	}
	if s.Tier.Name != "Idle" {
		t.Fatalf("expected Idle tier, got %s", s.Tier.Name)
	}
}

func TestCalculateComponents(t *testing.T) {
	tests := []struct {
		name  string
		in    Inputs
		total int
		tier  string
	}{
		{
			name:  "perfect week",
			in:    Inputs{CurrentStreak: 10, LongestStreak: 10, TasksThisWeek: 12, WeeklyGoal: 10, FocusMinutesThisWeek: 900, FocusGoalMinutes: 600, OnTimeCount: 5, TotalCompleted: 5},
			total: 100,
			tier:  "Unstoppable",
		},
		{
			name:  "short streak measured against a week",
			in:    Inputs{CurrentStreak: 7, LongestStreak: 3, WeeklyGoal: 10, FocusGoalMinutes: 600, OnTimeCount: 0, TotalCompleted: 4},
			total: 25,
			tier:  "Warming Up",
		},
		{
			name:  "half way everywhere",
			in:    Inputs{CurrentStreak: 5, LongestStreak: 10, TasksThisWeek: 5, WeeklyGoal: 10, FocusMinutesThisWeek: 300, FocusGoalMinutes: 600, OnTimeCount: 1, TotalCompleted: 2},
			total: 50,
			tier:  "Steady",
		},
		{
			name:  "zero goals contribute nothing",
			in:    Inputs{CurrentStreak: 14, LongestStreak: 14, TasksThisWeek: 3, FocusMinutesThisWeek: 100, OnTimeCount: 3, TotalCompleted: 3},
			total: 50,
			tier:  "Steady",
		},
		{
			name:  "fractional total floors",
			in:    Inputs{CurrentStreak: 1, LongestStreak: 7, TasksThisWeek: 2, WeeklyGoal: 3, FocusMinutesThisWeek: 500, FocusGoalMinutes: 600, OnTimeCount: 3, TotalCompleted: 4},
			total: 59,
			tier:  "Steady",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Calculate(tt.in)
			if s.Total != tt.total {
				t.Fatalf("Total = %d, want %d (%+v)", s.Total, tt.total, s)
			}
			if s.Tier.Name != tt.tier {
				t.Fatalf("Tier = %s, want %s", s.Tier.Name, tt.tier)
			}
			for _, c := range []float64{s.Streak, s.Completion, s.Focus, s.OnTime} {
				if c < 0 || c > 25 {
					t.Fatalf("component %v out of range", c)
				}
			}
		})
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{0, "Idle"},
		{19, "Idle"},
		{20, "Warming Up"},
		{39, "Warming Up"},
		{40, "Steady"},
		{60, "Focused"},
		{74, "Focused"},
		{75, "Flow"},
		{89, "Flow"},
		{90, "Unstoppable"},
		{100, "Unstoppable"},
	}
	for _, tt := range tests {
		if got := TierFor(tt.total); got.Name != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.total, got.Name, tt.want)
		}
	}
}

func TestTiersAscending(t *testing.T) {
	for i := 1; i < len(Tiers); i++ {
		if Tiers[i].Threshold <= Tiers[i-1].Threshold {
			t.Fatalf("tiers out of order at %d", i)
		}
	}
}

func TestInputsFromStats(t *testing.T) {
	snap := stats.Snapshot{
		TotalSessions:        8,
		CurrentStreak:        3,
		LongestStreak:        9,
		TasksThisWeek:        4,
		FocusMinutesThisWeek: 240,
		OnTimeCompleted:      6,
	}
	in := InputsFromStats(snap, Goals{WeeklyTasks: 10, WeeklyFocusMinutes: 600})
	want := Inputs{
		CurrentStreak:        3,
		LongestStreak:        9,
		TasksThisWeek:        4,
		WeeklyGoal:           10,
		FocusMinutesThisWeek: 240,
		FocusGoalMinutes:     600,
		OnTimeCount:          6,
		TotalCompleted:       8,
	}
	if in != want {
		t.Fatalf("InputsFromStats() = %+v, want %+v", in, want)
	}
}
