package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/goodtune/kfocus/internal/bridge"
	"github.com/goodtune/kfocus/internal/shield"
	"github.com/goodtune/kfocus/internal/tui"
	"github.com/spf13/cobra"
)

// The shield commands act as an enforcement process: they only read the
// snapshot and write the end-requested flag, never the session store.

var shieldCmd = &cobra.Command{
	Use:   "shield",
	Short: "Enforcement-side view of the active session",
}

var shieldShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the shield for the active session",
	Args:  cobra.NoArgs,
	RunE:  runShieldShow,
}

var shieldWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live countdown of the active session",
	Args:  cobra.NoArgs,
	RunE:  runShieldWatch,
}

var shieldEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Ask the main process to end the active session early",
	Args:  cobra.NoArgs,
	RunE:  runShieldEnd,
}

var shieldAckCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge a session-ended signal",
	Args:  cobra.NoArgs,
	RunE:  runShieldAck,
}

func init() {
	shieldCmd.AddCommand(shieldShowCmd, shieldWatchCmd, shieldEndCmd, shieldAckCmd)
	rootCmd.AddCommand(shieldCmd)
}

func currentShield(ctx context.Context, a *app) shield.Config {
	snap, ok := a.bridge.ReadSnapshot(ctx)
	if !ok {
		return shield.Idle()
	}
	var target string
	if hints, ok := a.bridge.ReadDisplayHints(ctx); ok && hints.SessionID == snap.ID {
		target = hints.BlockedTargetName
	}
	return shield.Project(*snap, target, a.clock.Now())
}

func runShieldShow(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		cfg := currentShield(ctx, a)
		return render(cfg, func() error {
			accent := color.New(color.FgCyan, color.Bold)
			if cfg.Icon == shield.IconDeepFocus {
				accent = color.New(color.FgMagenta, color.Bold)
			}
			_, _ = accent.Println(cfg.Title)
			fmt.Println(cfg.Subtitle)
			if cfg.Icon != shield.IconIdle {
				fmt.Printf("%s remaining (%.0f%%)\n", shield.FormatRemaining(cfg.TimeRemaining), cfg.Progress*100)
			}
			if cfg.Message != "" {
				_, _ = color.New(color.Faint).Println(cfg.Message)
			}
			fmt.Printf("[%s]", cfg.PrimaryButtonLabel)
			if cfg.SecondaryButtonLabel != "" {
				fmt.Printf("  [%s]", cfg.SecondaryButtonLabel)
			}
			fmt.Println()
			return nil
		})
	})
}

func runShieldWatch(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		ended, err := tui.RunShield(a.bridge, a.clock)
		if err != nil {
			return err
		}
		if ended {
			fmt.Println("End requested; the session will be canceled shortly.")
		}
		return nil
	})
}

func runShieldEnd(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		snap, ok := a.bridge.ReadSnapshot(ctx)
		if !ok {
			return errors.New("no active session")
		}
		if snap.IsDeepFocus {
			return fmt.Errorf("%q is a deep focus session and cannot be ended early", snap.Title)
		}
		if err := a.bridge.SetFlag(ctx, bridge.FlagEndRequested); err != nil {
			return err
		}
		fmt.Printf("Requested end of %q\n", snap.Title)
		return nil
	})
}

func runShieldAck(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		ended := a.bridge.ConsumeFlag(ctx, bridge.FlagSessionEnded)
		return render(map[string]bool{"session_ended": ended}, func() error {
			if ended {
				fmt.Println("Session ended; shield can be lifted")
			} else {
				fmt.Println("No session-ended signal pending")
			}
			return nil
		})
	})
}
