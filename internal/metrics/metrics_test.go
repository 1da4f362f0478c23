package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestServerExposesMetricsAndHealth(t *testing.T) {
	ScheduleTriggers.Inc()

	srv := httptest.NewServer(NewServer("127.0.0.1:0", zerolog.Nop()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "kfocus_schedule_triggers_total") {
		t.Fatal("expected kfocus_schedule_triggers_total in output")
	}
}

func TestBridgeDecodeFailuresByKey(t *testing.T) {
	before := testutil.ToFloat64(BridgeDecodeFailures.WithLabelValues("active-session-snapshot"))
	BridgeDecodeFailures.WithLabelValues("active-session-snapshot").Inc()
	after := testutil.ToFloat64(BridgeDecodeFailures.WithLabelValues("active-session-snapshot"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestServerStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", zerolog.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestServerStartReportsBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", zerolog.Nop())
	if err := first.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = first.Stop() }()

	second := NewServer(first.Addr(), zerolog.Nop())
	if err := second.Start(); err == nil {
		_ = second.Stop()
		t.Fatal("expected bind error for an address already in use")
	}
}
