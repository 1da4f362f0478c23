package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/kfocus/internal/recurrence"
	"github.com/goodtune/kfocus/internal/schedule"
	"github.com/goodtune/kfocus/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	scheduleAt       string
	scheduleDays     []string
	scheduleTime     string
	scheduleDuration time.Duration
	scheduleDeep     bool
	schedulePreset   string
	scheduleUntil    string
	scheduleDisabled bool
	scheduleLimit    int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled focus sessions",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a single or weekly recurring schedule",
	Long: `Add a schedule. Use --at for a single session, or --days and --time for a
weekly recurring one:

  kfocus schedule add "Morning writing" --days mon,wed,fri --time 08:30 -d 45m
  kfocus schedule add "Report" --at "2025-03-14 14:00" -d 1h --deep`,
	Args: cobra.ExactArgs(1),
	RunE: runScheduleAdd,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules with their next occurrence",
	Args:  cobra.NoArgs,
	RunE:  runScheduleList,
}

var scheduleNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show upcoming scheduled sessions, soonest first",
	Args:  cobra.NoArgs,
	RunE:  runScheduleNext,
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setScheduleEnabled(args[0], true) },
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setScheduleEnabled(args[0], false) },
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleDelete,
}

func init() {
	f := scheduleAddCmd.Flags()
	f.StringVar(&scheduleAt, "at", "", "Single start time (RFC3339 or \"2006-01-02 15:04\" local)")
	f.StringSliceVar(&scheduleDays, "days", nil, "Weekdays for a recurring schedule, e.g. mon,wed,fri")
	f.StringVar(&scheduleTime, "time", "", "Start time of day for a recurring schedule (HH:MM)")
	f.DurationVarP(&scheduleDuration, "duration", "d", 0, "Session length (default session.default_duration)")
	f.BoolVar(&scheduleDeep, "deep", false, "Start sessions in deep focus")
	f.StringVarP(&schedulePreset, "preset", "p", "", "Block-list preset id or name")
	f.StringVar(&scheduleUntil, "until", "", "Last day a recurring schedule fires (YYYY-MM-DD)")
	f.BoolVar(&scheduleDisabled, "disabled", false, "Create the schedule disabled")

	scheduleNextCmd.Flags().IntVarP(&scheduleLimit, "limit", "n", 5, "Maximum occurrences to show")

	scheduleCmd.AddCommand(scheduleAddCmd, scheduleListCmd, scheduleNextCmd,
		scheduleEnableCmd, scheduleDisableCmd, scheduleDeleteCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		now := a.clock.Now()
		def := storage.ScheduledSession{
			ID:          uuid.NewString(),
			Title:       strings.TrimSpace(args[0]),
			IsDeepFocus: scheduleDeep,
			IsEnabled:   !scheduleDisabled,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		d := scheduleDuration
		if d == 0 {
			d = parseDuration(a.cfg.Session.DefaultDuration, 25*time.Minute)
		}
		def.Duration = int64(d / time.Second)

		switch {
		case scheduleAt != "" && (len(scheduleDays) > 0 || scheduleTime != ""):
			return fmt.Errorf("--at cannot be combined with --days or --time")
		case scheduleAt != "":
			at, err := parseLocalTime(scheduleAt)
			if err != nil {
				return err
			}
			def.StartTime = at
		default:
			if err := applyRecurring(&def); err != nil {
				return err
			}
		}

		if schedulePreset != "" {
			p, err := findPreset(ctx, a.store.Presets(), schedulePreset)
			if err != nil {
				return err
			}
			def.PresetID = p.ID
		}

		if err := recurrence.Validate(def); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
		if err := a.store.Schedules().Upsert(ctx, def); err != nil {
			return fmt.Errorf("failed to save schedule: %w", err)
		}

		return render(def, func() error {
			_, _ = color.New(color.FgGreen).Printf("Added schedule %q (%s)\n", def.Title, def.ID)
			if next, ok := recurrence.NextOccurrence(def, now); ok {
				fmt.Printf("  next: %s\n", next.Local().Format("Mon Jan 2 15:04"))
			} else {
				_, _ = color.New(color.FgYellow).Println("  warning: this schedule has no upcoming occurrence")
			}
			return nil
		})
	})
}

func applyRecurring(def *storage.ScheduledSession) error {
	if len(scheduleDays) == 0 || scheduleTime == "" {
		return fmt.Errorf("either --at or both --days and --time are required")
	}
	def.IsRecurring = true

	var hour, minute int
	if _, err := fmt.Sscanf(scheduleTime, "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("invalid --time %q: expected HH:MM", scheduleTime)
	}
	def.StartHour, def.StartMinute = hour, minute

	seen := make(map[int]bool)
	for _, s := range scheduleDays {
		day, err := recurrence.ParseWeekday(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		if !seen[day] {
			seen[day] = true
			def.RecurringDays = append(def.RecurringDays, day)
		}
	}

	if scheduleUntil != "" {
		until, err := time.ParseInLocation("2006-01-02", scheduleUntil, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --until %q: %w", scheduleUntil, err)
		}
		def.EndDate = &until
	}
	return nil
}

// parseLocalTime accepts RFC3339 or a local "2006-01-02 15:04" timestamp.
func parseLocalTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339 or \"2006-01-02 15:04\"", s)
	}
	return t, nil
}

func describeSchedule(def storage.ScheduledSession) string {
	if !def.IsRecurring {
		return "once at " + def.StartTime.Local().Format("Mon Jan 2 15:04")
	}
	days := make([]string, 0, len(def.RecurringDays))
	for _, d := range def.RecurringDays {
		days = append(days, time.Weekday(d).String()[:3])
	}
	desc := fmt.Sprintf("%s at %02d:%02d", strings.Join(days, ","), def.StartHour, def.StartMinute)
	if def.EndDate != nil {
		desc += " until " + def.EndDate.Format("2006-01-02")
	}
	return desc
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		defs, err := a.store.Schedules().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list schedules: %w", err)
		}
		return render(defs, func() error {
			if len(defs) == 0 {
				fmt.Println("No schedules")
				return nil
			}
			now := a.clock.Now()
			cyan := color.New(color.FgCyan, color.Bold)
			faint := color.New(color.Faint)
			for _, def := range defs {
				_, _ = cyan.Printf("%s", def.Title)
				fmt.Printf("  %s\n", def.ID)
				fmt.Printf("  %s for %s", describeSchedule(def), time.Duration(def.Duration)*time.Second)
				if def.IsDeepFocus {
					fmt.Print(" (deep focus)")
				}
				fmt.Println()
				switch next, ok := recurrence.NextOccurrence(def, now); {
				case !def.IsEnabled:
					_, _ = faint.Println("  disabled")
				case ok:
					fmt.Printf("  next: %s\n", next.Local().Format("Mon Jan 2 15:04"))
				default:
					_, _ = color.New(color.FgYellow).Println("  no upcoming occurrence")
				}
			}
			return nil
		})
	})
}

func runScheduleNext(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		defs, err := a.store.Schedules().ListEnabled(ctx)
		if err != nil {
			return fmt.Errorf("failed to list schedules: %w", err)
		}
		upcoming := schedule.Upcoming(defs, a.clock.Now())
		if scheduleLimit > 0 && len(upcoming) > scheduleLimit {
			upcoming = upcoming[:scheduleLimit]
		}
		return render(upcoming, func() error {
			if len(upcoming) == 0 {
				fmt.Println("Nothing scheduled")
				return nil
			}
			for _, o := range upcoming {
				fmt.Printf("%s  %s (%s)\n", o.At.Local().Format("Mon Jan 2 15:04"), o.Schedule.Title,
					time.Duration(o.Schedule.Duration)*time.Second)
			}
			return nil
		})
	})
}

func setScheduleEnabled(id string, enabled bool) error {
	return withApp(func(ctx context.Context, a *app) error {
		def, err := a.store.Schedules().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", id, err)
		}
		def.IsEnabled = enabled
		def.UpdatedAt = a.clock.Now()
		if enabled {
			if err := recurrence.Validate(*def); err != nil {
				return fmt.Errorf("invalid schedule: %w", err)
			}
		}
		if err := a.store.Schedules().Upsert(ctx, *def); err != nil {
			return fmt.Errorf("failed to save schedule: %w", err)
		}
		state := "Disabled"
		if enabled {
			state = "Enabled"
		}
		fmt.Printf("%s schedule %q\n", state, def.Title)
		return nil
	})
}

func runScheduleDelete(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.store.Schedules().Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}
		fmt.Printf("Deleted schedule %s\n", args[0])
		return nil
	})
}
