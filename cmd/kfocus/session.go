package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/kfocus/internal/session"
	"github.com/goodtune/kfocus/internal/shield"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/spf13/cobra"
)

var (
	startDuration  time.Duration
	startDeepFocus bool
	startTaskID    string
	startTaskTitle string
	startPreset    string
	cancelForce    bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start, finish and inspect focus sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [title]",
	Short: "Start a focus session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionStart,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session",
	Args:  cobra.NoArgs,
	RunE:  runSessionStatus,
}

var sessionCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Complete the active session now",
	Args:  cobra.NoArgs,
	RunE:  runSessionComplete,
}

var sessionCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the active session",
	Args:  cobra.NoArgs,
	RunE:  runSessionCancel,
}

func init() {
	sessionStartCmd.Flags().DurationVarP(&startDuration, "duration", "d", 0, "Session length (default session.default_duration)")
	sessionStartCmd.Flags().BoolVar(&startDeepFocus, "deep", false, "Deep focus: cannot be ended early and earns bonus points")
	sessionStartCmd.Flags().StringVar(&startTaskID, "task-id", "", "External task id")
	sessionStartCmd.Flags().StringVar(&startTaskTitle, "task-title", "", "External task title")
	sessionStartCmd.Flags().StringVarP(&startPreset, "preset", "p", "", "Block-list preset id or name")
	sessionCancelCmd.Flags().BoolVar(&cancelForce, "force", false, "Cancel even a deep focus session")

	sessionCmd.AddCommand(sessionStartCmd, sessionStatusCmd, sessionCompleteCmd, sessionCancelCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		req := session.StartRequest{
			Duration:    startDuration,
			IsDeepFocus: startDeepFocus,
		}
		if len(args) > 0 {
			req.Title = args[0]
		}
		if req.Duration == 0 {
			req.Duration = parseDuration(a.cfg.Session.DefaultDuration, 25*time.Minute)
		}
		if startTaskID != "" || startTaskTitle != "" {
			req.Task = &session.TaskRef{ID: startTaskID, Title: startTaskTitle}
		}
		if startPreset != "" {
			p, err := findPreset(ctx, a.store.Presets(), startPreset)
			if err != nil {
				return err
			}
			req.PresetID = p.ID
		}

		rec, err := a.manager.Start(ctx, req)
		if err != nil {
			return err
		}
		return render(rec, func() error {
			green := color.New(color.FgGreen, color.Bold)
			_, _ = green.Printf("Started %q for %s\n", rec.Title, rec.Scheduled())
			fmt.Printf("  id:      %s\n", rec.ID)
			fmt.Printf("  ends at: %s\n", rec.EndsAt().Local().Format(time.Kitchen))
			if rec.IsDeepFocus {
				_, _ = color.New(color.FgMagenta).Println("  deep focus: this session cannot be ended early")
			}
			return nil
		})
	})
}

// sessionStatus is the structured form of `session status`.
type sessionStatus struct {
	Active    bool                   `json:"active" yaml:"active"`
	Session   *storage.SessionRecord `json:"session,omitempty" yaml:"session,omitempty"`
	Remaining string                 `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	Progress  float64                `json:"progress,omitempty" yaml:"progress,omitempty"`
	Points    int                    `json:"points_if_completed,omitempty" yaml:"points_if_completed,omitempty"`
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if ended, err := a.manager.Reconcile(ctx); err != nil {
			return err
		} else if ended != nil && textOutput() {
			printEnded(ended)
		}

		rec, err := a.manager.Active(ctx)
		if errors.Is(err, session.ErrNoActiveSession) {
			return render(sessionStatus{}, func() error {
				fmt.Println("No active session")
				return nil
			})
		}
		if err != nil {
			return err
		}

		status := sessionStatus{Active: true, Session: rec, Points: a.manager.Points(rec)}
		if snap, ok := a.bridge.ReadSnapshot(ctx); ok {
			now := a.clock.Now()
			status.Remaining = shield.FormatRemaining(snap.TimeRemaining(now))
			status.Progress = snap.Progress(now)
		}

		return render(status, func() error {
			cyan := color.New(color.FgCyan, color.Bold)
			_, _ = cyan.Printf("%s\n", rec.Title)
			if rec.TaskTitle != "" {
				fmt.Printf("  task:      %s\n", rec.TaskTitle)
			}
			fmt.Printf("  remaining: %s (%.0f%%)\n", status.Remaining, status.Progress*100)
			fmt.Printf("  points:    %d if completed now\n", status.Points)
			if rec.IsDeepFocus {
				fmt.Println("  mode:      deep focus")
			}
			return nil
		})
	})
}

func runSessionComplete(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if ended, err := a.manager.Reconcile(ctx); err != nil {
			return err
		} else if ended != nil {
			return render(ended, func() error {
				printEnded(ended)
				return nil
			})
		}

		rec, err := a.manager.Active(ctx)
		if err != nil {
			return err
		}
		if err := a.manager.Complete(ctx, rec, a.manager.Points(rec)); err != nil {
			return err
		}
		return render(rec, func() error {
			printEnded(rec)
			return nil
		})
	})
}

func runSessionCancel(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if ended, err := a.manager.Reconcile(ctx); err != nil {
			return err
		} else if ended != nil {
			return render(ended, func() error {
				printEnded(ended)
				return nil
			})
		}

		rec, err := a.manager.Active(ctx)
		if err != nil {
			return err
		}
		if rec.IsDeepFocus && !cancelForce {
			return fmt.Errorf("%q is a deep focus session; pass --force to cancel it anyway", rec.Title)
		}
		if err := a.manager.Cancel(ctx, rec); err != nil {
			return err
		}
		return render(rec, func() error {
			printEnded(rec)
			return nil
		})
	})
}

func printEnded(rec *storage.SessionRecord) {
	switch rec.Outcome {
	case storage.OutcomeCompleted:
		_, _ = color.New(color.FgGreen, color.Bold).Printf("Completed %q: %s focused, %d points\n",
			rec.Title, rec.Actual(), rec.PointsEarned)
	case storage.OutcomeCanceled:
		_, _ = color.New(color.FgYellow).Printf("Canceled %q after %s\n", rec.Title, rec.Actual())
	default:
		fmt.Printf("%s is %s\n", rec.Title, rec.Outcome)
	}
}
