package analysis

import (
	"testing"
	"time"
)

func TestPercentilesSingleSample(t *testing.T) {
	p := ComputePercentiles([]time.Duration{420 * time.Millisecond})
	for _, v := range []time.Duration{p.P50, p.P90, p.P95, p.P99} {
		if v != 420*time.Millisecond {
			t.Fatalf("expected all percentiles to equal the sample, got %+v", p)
		}
	}
}

func TestPercentilesNearestRank(t *testing.T) {
	samples := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	p := ComputePercentiles(samples)

	// rank = ceil(p*n): p50 -> rank 2, p90+ -> rank 3.
	if p.P50 != 200*time.Millisecond {
		t.Fatalf("p50 mismatch: %s", p.P50)
	}
	if p.P90 != 300*time.Millisecond {
		t.Fatalf("p90 mismatch: %s", p.P90)
	}
	if p.P95 != 300*time.Millisecond || p.P99 != 300*time.Millisecond {
		t.Fatalf("p95/p99 mismatch: %+v", p)
	}
}

func TestPercentilesMonotonic(t *testing.T) {
	samples := []time.Duration{
		5 * time.Millisecond,
		90 * time.Millisecond,
		12 * time.Millisecond,
		700 * time.Millisecond,
		33 * time.Millisecond,
		41 * time.Millisecond,
		8 * time.Millisecond,
	}
	p := ComputePercentiles(samples)
	if !(p.P50 <= p.P90 && p.P90 <= p.P95 && p.P95 <= p.P99) {
		t.Fatalf("percentiles not monotonic: %+v", p)
	}
}

func TestPercentilesEmpty(t *testing.T) {
	p := ComputePercentiles(nil)
	if p != (Percentiles{}) {
		t.Fatalf("expected zero percentiles, got %+v", p)
	}
}
