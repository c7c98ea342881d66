package analysis

import (
	"testing"
	"time"

	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

func TestFlagBottlenecksByShare(t *testing.T) {
	steps := []StepStat{
		{StepID: "fast", AverageLatency: 10 * time.Millisecond, PctOfTotal: 10},
		{StepID: "slow", AverageLatency: 90 * time.Millisecond, PctOfTotal: 90},
	}
	out := FlagBottlenecks(steps, workflow.DetectorConfig{ThresholdPct: 20})

	if out[0].StepID != "slow" {
		t.Fatalf("expected descending latency order, got %s first", out[0].StepID)
	}
	if !out[0].Bottleneck {
		t.Fatalf("step above threshold not flagged")
	}
	if out[1].Bottleneck {
		t.Fatalf("step below threshold flagged")
	}
}

func TestFlagBottlenecksTopK(t *testing.T) {
	steps := []StepStat{
		{StepID: "a", AverageLatency: 30 * time.Millisecond, PctOfTotal: 33},
		{StepID: "b", AverageLatency: 35 * time.Millisecond, PctOfTotal: 34},
		{StepID: "c", AverageLatency: 34 * time.Millisecond, PctOfTotal: 33},
	}
	out := FlagBottlenecks(steps, workflow.DetectorConfig{ThresholdPct: 50, TopK: 1})

	flagged := Bottlenecks(out)
	if len(flagged) != 1 || flagged[0].StepID != "b" {
		t.Fatalf("expected only the slowest step flagged, got %+v", flagged)
	}
}

func TestFlagBottlenecksZeroLatencyNeverRanked(t *testing.T) {
	steps := []StepStat{{StepID: "idle", AverageLatency: 0}}
	out := FlagBottlenecks(steps, workflow.DetectorConfig{TopK: 3})
	if out[0].Bottleneck {
		t.Fatalf("zero-latency step must not be flagged by rank")
	}
}

func TestFlagBottlenecksDefaultsOnZeroConfig(t *testing.T) {
	steps := []StepStat{
		{StepID: "a", AverageLatency: 50 * time.Millisecond, PctOfTotal: 100},
	}
	out := FlagBottlenecks(steps, workflow.DetectorConfig{})
	if !out[0].Bottleneck {
		t.Fatalf("zero config must fall back to defaults and flag the dominant step")
	}
}
