package systemd

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestOutsideSystemd(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	listeners, err := GetListeners()
	if err != nil {
		t.Fatalf("GetListeners: %v", err)
	}
	if listeners.Activated || listeners.Metrics != nil {
		t.Fatalf("expected no activation, got %+v", listeners)
	}

	for name, notify := range map[string]func() error{
		"ready":    NotifyReady,
		"stopping": NotifyStopping,
		"watchdog": NotifyWatchdog,
		"status":   func() error { return NotifyStatus("idle") },
	} {
		if err := notify(); err != nil {
			t.Errorf("%s: expected no error without NOTIFY_SOCKET, got %v", name, err)
		}
	}

	done := make(chan struct{})
	go func() {
		Watchdog(make(chan struct{}), zerolog.Nop())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watchdog should return when no watchdog is configured")
	}
}
