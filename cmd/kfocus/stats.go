package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/kfocus/internal/stats"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/goodtune/kfocus/internal/velocity"
	"github.com/spf13/cobra"
)

var pruneOlderThan string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show streaks, totals and the weekly velocity score",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished sessions older than a cutoff",
	Args:  cobra.NoArgs,
	RunE:  runStatsPrune,
}

func init() {
	statsPruneCmd.Flags().StringVar(&pruneOlderThan, "older-than", "365d", "Age cutoff, e.g. 90d or 2160h")
	statsCmd.AddCommand(statsPruneCmd)
	rootCmd.AddCommand(statsCmd)
}

// statsReport is the structured form of `stats`.
type statsReport struct {
	Statistics stats.Snapshot `json:"statistics" yaml:"statistics"`
	Velocity   velocity.Score `json:"velocity" yaml:"velocity"`
}

func runStats(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if _, err := a.manager.Reconcile(ctx); err != nil {
			return err
		}

		history, err := a.store.Sessions().List(ctx, storage.SessionFilter{})
		if err != nil {
			return fmt.Errorf("failed to load session history: %w", err)
		}

		snap := stats.Calculate(history, a.clock.Now())
		score := velocity.Calculate(velocity.InputsFromStats(snap, velocity.Goals{
			WeeklyTasks:        a.cfg.Goals.WeeklyTasks,
			WeeklyFocusMinutes: a.cfg.Goals.WeeklyFocusMinutes,
		}))

		report := statsReport{Statistics: snap, Velocity: score}
		return render(report, func() error {
			printStats(snap, score)
			return nil
		})
	})
}

func printStats(s stats.Snapshot, v velocity.Score) {
	cyan := color.New(color.FgCyan, color.Bold)
	bold := color.New(color.Bold)

	_, _ = cyan.Println("[velocity]")
	_, _ = bold.Printf("  %d/100  %s\n", v.Total, v.Tier.Name)
	fmt.Printf("  streak %.1f  completion %.1f  focus %.1f  on-time %.1f\n", v.Streak, v.Completion, v.Focus, v.OnTime)

	_, _ = cyan.Println("\n[this week]")
	fmt.Printf("  sessions:      %d\n", s.SessionsThisWeek)
	fmt.Printf("  focus minutes: %d\n", s.FocusMinutesThisWeek)
	fmt.Printf("  tasks:         %d\n", s.TasksThisWeek)

	_, _ = cyan.Println("\n[all time]")
	fmt.Printf("  completed:     %d of %d (%.0f%%)\n", s.TotalSessions, s.AttemptedSessions, s.CompletionRate*100)
	fmt.Printf("  canceled:      %d\n", s.CanceledSessions)
	fmt.Printf("  deep focus:    %d\n", s.DeepFocusSessionsCompleted)
	fmt.Printf("  on time:       %d\n", s.OnTimeCompleted)
	fmt.Printf("  focus minutes: %d (avg %.1f)\n", s.TotalMinutesFocused, s.AverageSessionDuration)
	fmt.Printf("  points:        %d\n", s.TotalPoints)

	streak := color.New(color.FgGreen)
	if s.CurrentStreak == 0 {
		streak = color.New(color.FgYellow)
	}
	_, _ = streak.Printf("  streak:        %d days (longest %d)\n", s.CurrentStreak, s.LongestStreak)
}

func runStatsPrune(cmd *cobra.Command, args []string) error {
	age, err := parseAge(pruneOlderThan)
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		cutoff := a.clock.Now().Add(-age)
		removed, err := a.store.Sessions().DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune sessions: %w", err)
		}
		return render(map[string]int{"removed": removed}, func() error {
			fmt.Printf("Removed %d session(s) started before %s\n", removed, cutoff.Local().Format("2006-01-02"))
			return nil
		})
	})
}
