package session

import (
	"context"
	"testing"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
	"github.com/rs/zerolog"
)

func TestWatcherCompletesExpiredSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	rec := env.start(t, StartRequest{Duration: 5 * time.Minute})

	w := NewWatcher(env.manager, 10*time.Millisecond, zerolog.Nop())
	w.Start()
	defer w.Stop()

	env.clock.Advance(6 * time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stored, err := env.store.Sessions().Get(ctx, rec.ID)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if stored.Outcome == storage.OutcomeCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher did not complete the expired session")
}

func TestWatcherDefaultInterval(t *testing.T) {
	w := NewWatcher(nil, 0, zerolog.Nop())
	if w.interval != DefaultPollInterval {
		t.Fatalf("expected default interval, got %v", w.interval)
	}
}
