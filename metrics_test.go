package sidelink

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoopMetrics(t *testing.T) {
	RegisterMetrics()
	// a second registration must not panic
	RegisterMetrics()

	built := testutil.ToFloat64(subframesBuilt)
	sent := testutil.ToFloat64(subframesSent)
	cfg := testLoopConfig()
	cfg.MaxSubframes = 4
	l := NewLoop(cfg, (&opener{r: &mockRadio{}}).open)
	if err := l.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := testutil.ToFloat64(subframesBuilt) - built; got != 4 {
		t.Errorf("subframes built = %f, want 4", got)
	}
	if got := testutil.ToFloat64(subframesSent) - sent; got != 4 {
		t.Errorf("subframes sent = %f, want 4", got)
	}
	if got := testutil.ToFloat64(loopState); got != float64(StateClosed) {
		t.Errorf("state gauge = %f, want %f", got, float64(StateClosed))
	}

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "sltx_radio_send_duration_seconds")
	if err != nil || n != 1 {
		t.Errorf("GatherAndCount() = %d, %v", n, err)
	}
}
