package shield

import (
	"testing"
	"time"

	"github.com/goodtune/kfocus/internal/bridge"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func snapshot(deep bool) bridge.Snapshot {
	return bridge.Snapshot{
		Version:             bridge.SchemaVersion,
		ID:                  "s-1",
		Title:               "Write report",
		Duration:            1500,
		StartTime:           start,
		EndTime:             start.Add(25 * time.Minute),
		IsDeepFocus:         deep,
		MotivationalMessage: "Keep going",
	}
}

func TestProjectRegularSession(t *testing.T) {
	cfg := Project(snapshot(false), "Social", start.Add(5*time.Minute))

	if !cfg.ShowEndEarly || cfg.SecondaryButtonLabel != LabelEndEarly {
		t.Fatalf("expected end early affordance, got %+v", cfg)
	}
	if cfg.Icon != IconFocus || cfg.Accent != AccentFocus {
		t.Fatalf("unexpected styling %+v", cfg)
	}
	if cfg.Subtitle != "Social is blocked while you work on Write report" {
		t.Fatalf("unexpected subtitle %q", cfg.Subtitle)
	}
	if cfg.TimeRemaining != 20*time.Minute || cfg.Progress != 0.2 || cfg.IsExpired {
		t.Fatalf("unexpected timing %+v", cfg)
	}
	if cfg.Message != "Keep going" {
		t.Fatalf("unexpected message %q", cfg.Message)
	}
}

func TestProjectDeepFocusHasNoEndEarly(t *testing.T) {
	cfg := Project(snapshot(true), "", start)

	if cfg.ShowEndEarly || cfg.SecondaryButtonLabel != "" {
		t.Fatalf("deep focus must not offer end early, got %+v", cfg)
	}
	if cfg.Icon != IconDeepFocus || cfg.Accent != AccentDeepFocus || cfg.Title != "Deep focus" {
		t.Fatalf("unexpected styling %+v", cfg)
	}
	if cfg.Subtitle != "Working on Write report" {
		t.Fatalf("unexpected subtitle %q", cfg.Subtitle)
	}
}

func TestProjectPrefersTaskTitle(t *testing.T) {
	snap := snapshot(false)
	snap.TaskTitle = "Quarterly report"
	cfg := Project(snap, "", start)
	if cfg.Subtitle != "Working on Quarterly report" {
		t.Fatalf("unexpected subtitle %q", cfg.Subtitle)
	}
}

func TestProjectExpired(t *testing.T) {
	for _, now := range []time.Time{start.Add(25 * time.Minute), start.Add(time.Hour)} {
		cfg := Project(snapshot(false), "Social", now)
		if !cfg.IsExpired || cfg.TimeRemaining != 0 || cfg.Progress != 1 {
			t.Fatalf("expected expired projection at %v, got %+v", now, cfg)
		}
		if cfg.ShowEndEarly {
			t.Fatal("expired session should not offer end early")
		}
		if cfg.Subtitle != "Session complete. Social unblocks shortly." {
			t.Fatalf("unexpected expired subtitle %q", cfg.Subtitle)
		}
	}

	if cfg := Project(snapshot(false), "", start.Add(time.Hour)); cfg.Subtitle != "Session complete. Nice work." {
		t.Fatalf("unexpected expired subtitle without target %q", cfg.Subtitle)
	}
}

func TestIdle(t *testing.T) {
	cfg := Idle()
	if cfg.ShowEndEarly || cfg.Icon != IconIdle || cfg.PrimaryButtonLabel != LabelDismiss {
		t.Fatalf("unexpected idle config %+v", cfg)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "00:00"},
		{0, "00:00"},
		{400 * time.Millisecond, "00:01"},
		{59 * time.Second, "00:59"},
		{25 * time.Minute, "25:00"},
		{time.Hour - time.Second, "59:59"},
		{time.Hour, "1:00:00"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2:03:04"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.in); got != tt.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
