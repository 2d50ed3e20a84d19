package zeroconf_test

import (
	"context"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-panel/internal/zeroconf"
)

func TestRecords(t *testing.T) {
	got := zeroconf.Records(map[string]string{"version": "0.1.0", "board": "panel-box", "model": "x"})
	want := []string{"model=amplipi-panel", "board=panel-box", "version=0.1.0"}
	if len(got) != len(want) {
		t.Fatalf("Records = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Records[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNew(t *testing.T) {
	svc := zeroconf.New("panel-test", 8080, nil)
	if svc == nil {
		t.Fatal("New() returned nil")
	}
	if txt := svc.TXT(); len(txt) != 1 || txt[0] != "model=amplipi-panel" {
		t.Errorf("TXT = %v", txt)
	}
}

// TestStart_Cancel starts the service and cancels the context within 1 second.
func TestStart_Cancel(t *testing.T) {
	svc := zeroconf.New("panel-test", 18080, map[string]string{"version": "test"})

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()

	select {
	case err := <-done:
		// mDNS may be unavailable in the test environment.
		if err != nil {
			t.Logf("Start returned error (may be expected in CI): %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return within 3 seconds after context cancellation")
	}
}
