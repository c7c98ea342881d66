package app

import (
	"fmt"
	"io"

	"github.com/your-org/workflow-analyzer/internal/analysis"
	"github.com/your-org/workflow-analyzer/internal/planner"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

func writeAnalysis(out io.Writer, res analysis.Result) {
	_, _ = fmt.Fprintf(out, "analysis of %q over %d execution(s)\n", res.WorkflowID, res.Executions)
	_, _ = fmt.Fprintf(out, "total latency=%s cost=$%.4f success_rate=%.2f\n",
		res.TotalLatency, res.TotalCost, res.SuccessRate)
	_, _ = fmt.Fprintf(out, "latency p50=%s p90=%s p95=%s p99=%s\n",
		res.Percentiles.P50, res.Percentiles.P90, res.Percentiles.P95, res.Percentiles.P99)

	for _, s := range res.Steps {
		marker := " "
		if s.Bottleneck {
			marker = "!"
		}
		_, _ = fmt.Fprintf(out, "%s step=%s agent=%s avg=%s share=%.1f%% failures=%d\n",
			marker, s.StepID, s.AgentID, s.AverageLatency, s.PctOfTotal, s.Failures)
	}
	if len(analysis.Bottlenecks(res.Steps)) == 0 {
		_, _ = fmt.Fprintln(out, "no bottlenecks detected")
	}
}

func writeOptimization(out io.Writer, w workflow.Workflow, results []planner.Result) {
	_, _ = fmt.Fprintf(out, "optimization: %s\n", planner.Describe(results))
	for _, r := range results {
		_, _ = fmt.Fprintf(out, "- %s steps=%v latency=-%.1f%% cost=-%.1f%% (%s)\n",
			r.Strategy, r.Steps, r.LatencyReductionPct, r.CostReductionPct, r.Detail)
	}
	_, _ = fmt.Fprintf(out, "optimized workflow %q has %d step(s)\n", w.ID, len(w.Steps))
}
