package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/kfocus/internal/preset"
	"github.com/spf13/cobra"
)

var (
	presetTargets   []string
	presetAllowList bool
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage block-list presets",
}

var presetAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a block-list preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetAdd,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List block-list presets",
	Args:  cobra.NoArgs,
	RunE:  runPresetList,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a block-list preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	presetAddCmd.Flags().StringSliceVarP(&presetTargets, "targets", "t", nil, "Apps, categories or domains (comma separated)")
	presetAddCmd.Flags().BoolVar(&presetAllowList, "allow-list", false, "Treat targets as the only things allowed")
	_ = presetAddCmd.MarkFlagRequired("targets")

	presetCmd.AddCommand(presetAddCmd, presetListCmd, presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}

func runPresetAdd(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		p, err := preset.New(args[0], presetTargets, presetAllowList, a.clock.Now())
		if err != nil {
			return err
		}
		if err := a.store.Presets().Upsert(ctx, p); err != nil {
			return fmt.Errorf("failed to save preset: %w", err)
		}
		return render(p, func() error {
			_, _ = color.New(color.FgGreen).Printf("Created preset %q (%s)\n", p.Name, p.ID)
			return nil
		})
	})
}

func runPresetList(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		presets, err := a.store.Presets().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list presets: %w", err)
		}
		return render(presets, func() error {
			if len(presets) == 0 {
				fmt.Println("No presets")
				return nil
			}
			cyan := color.New(color.FgCyan, color.Bold)
			for _, p := range presets {
				mode := "block"
				if p.IsAllowList {
					mode = "allow"
				}
				_, _ = cyan.Printf("%s", p.Name)
				fmt.Printf("  %s  %s: %s  used %d time(s)\n", p.ID, mode, strings.Join(p.Targets, ", "), p.UsageCount)
			}
			return nil
		})
	})
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		p, err := findPreset(ctx, a.store.Presets(), args[0])
		if err != nil {
			return err
		}
		if err := a.store.Presets().Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to delete preset: %w", err)
		}
		a.presets.Invalidate(p.ID)
		fmt.Printf("Deleted preset %q\n", p.Name)
		return nil
	})
}
