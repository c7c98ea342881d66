package analysis

import (
	"sort"

	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// FlagBottlenecks annotates the per-step breakdown and orders it by
// descending average latency for presentation. A step is a bottleneck when
// its share of total latency exceeds the threshold, or when it ranks in the
// top-K steps by absolute average latency.
func FlagBottlenecks(steps []StepStat, cfg workflow.DetectorConfig) []StepStat {
	if cfg.ThresholdPct <= 0 && cfg.TopK <= 0 {
		cfg = workflow.DefaultDetectorConfig()
	}

	out := append([]StepStat(nil), steps...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageLatency != out[j].AverageLatency {
			return out[i].AverageLatency > out[j].AverageLatency
		}
		return out[i].StepID < out[j].StepID
	})

	for i := range out {
		byShare := cfg.ThresholdPct > 0 && out[i].PctOfTotal > cfg.ThresholdPct
		byRank := i < cfg.TopK && out[i].AverageLatency > 0
		out[i].Bottleneck = byShare || byRank
	}
	return out
}

// Bottlenecks filters an annotated breakdown down to the flagged steps.
func Bottlenecks(steps []StepStat) []StepStat {
	out := make([]StepStat, 0)
	for _, s := range steps {
		if s.Bottleneck {
			out = append(out, s)
		}
	}
	return out
}
