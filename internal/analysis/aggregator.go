package analysis

import (
	"sort"
	"time"

	"github.com/your-org/workflow-analyzer/internal/cost"
	"github.com/your-org/workflow-analyzer/internal/trace"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// ProfileResolver maps an agent id to its declared profile. Unknown agents
// resolve to the zero profile so analysis never fails on missing metadata.
type ProfileResolver func(agentID string) workflow.Profile

// StepStat is the aggregated per-step breakdown across all traces.
type StepStat struct {
	StepID         string        `json:"step_id"`
	AgentID        string        `json:"agent_id"`
	Samples        int           `json:"samples"`
	Failures       int           `json:"failures"`
	AverageLatency time.Duration `json:"average_latency"`
	AverageCost    float64       `json:"average_cost"`
	PctOfTotal     float64       `json:"pct_of_total"`
	Bottleneck     bool          `json:"bottleneck"`
}

// Result is the full analysis of one workflow's completed executions. It is
// derived state: a pure function of the frozen trace set plus agent
// profiles, recomputed on demand and never persisted.
type Result struct {
	WorkflowID   string        `json:"workflow_id"`
	Executions   int           `json:"executions"`
	TotalLatency time.Duration `json:"total_latency"`
	TotalCost    float64       `json:"total_cost"`
	SuccessRate  float64       `json:"success_rate"`
	Percentiles  Percentiles   `json:"percentiles"`
	Steps        []StepStat    `json:"steps"`
}

// Aggregate computes latency, cost and quality metrics over the finalized
// executions of one workflow. An empty execution set yields zeroed metrics,
// not an error.
func Aggregate(workflowID string, execs []trace.Execution, resolve ProfileResolver, cfg workflow.DetectorConfig) Result {
	out := Result{WorkflowID: workflowID, Executions: len(execs)}
	if len(execs) == 0 {
		out.Steps = []StepStat{}
		return out
	}
	if resolve == nil {
		resolve = func(string) workflow.Profile { return workflow.Profile{} }
	}

	// Deterministic order keeps repeated analysis of an unchanged trace set
	// byte-for-byte identical.
	sorted := append([]trace.Execution(nil), execs...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].ID < sorted[j].ID
	})

	totals := make([]time.Duration, 0, len(sorted))
	var latencySum time.Duration
	var costSum float64
	succeeded := 0

	type acc struct {
		agentID  string
		latency  time.Duration
		cost     float64
		samples  int
		failures int
	}
	byStep := make(map[string]*acc)
	stepOrder := make([]string, 0)

	for _, exec := range sorted {
		tr := exec.Trace
		total := traceTotalLatency(tr)
		totals = append(totals, total)
		latencySum += total

		var execCost float64
		for _, ev := range tr.Events {
			model := cost.Model{USDPerThousand: resolve(ev.AgentID).USDPerThousandTokens}
			evCost := model.Charge(ev.Tokens())
			execCost += evCost

			a, ok := byStep[ev.StepID]
			if !ok {
				a = &acc{agentID: ev.AgentID}
				byStep[ev.StepID] = a
				stepOrder = append(stepOrder, ev.StepID)
			}
			a.samples++
			a.latency += ev.Latency()
			a.cost += evCost
			if !ev.Success {
				a.failures++
			}
		}
		costSum += execCost

		if exec.Status == trace.StatusCompleted && !tr.Failed() {
			succeeded++
		}
	}

	n := len(sorted)
	out.TotalLatency = latencySum / time.Duration(n)
	out.TotalCost = costSum / float64(n)
	out.SuccessRate = float64(succeeded) / float64(n)
	out.Percentiles = ComputePercentiles(totals)

	steps := make([]StepStat, 0, len(stepOrder))
	for _, stepID := range stepOrder {
		a := byStep[stepID]
		stat := StepStat{
			StepID:   stepID,
			AgentID:  a.agentID,
			Samples:  a.samples,
			Failures: a.failures,
		}
		stat.AverageLatency = a.latency / time.Duration(a.samples)
		stat.AverageCost = a.cost / float64(a.samples)
		if out.TotalLatency > 0 {
			stat.PctOfTotal = float64(stat.AverageLatency) / float64(out.TotalLatency) * 100
		}
		steps = append(steps, stat)
	}

	out.Steps = FlagBottlenecks(steps, cfg)
	return out
}

// traceTotalLatency reconciles the sequential model with observed wall
// clock. Step latencies are summed while the trace shows the steps running
// one after another; as soon as two step intervals overlap in wall time the
// execution's own start-to-end duration is the ground truth, which avoids
// double counting genuinely parallel branches.
func traceTotalLatency(tr trace.ExecutionTrace) time.Duration {
	if len(tr.Events) == 0 {
		return tr.WallClock()
	}

	events := append([]trace.StepEvent(nil), tr.Events...)
	sort.Slice(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	var sum time.Duration
	overlapped := false
	prevEnd := events[0].Start
	for _, ev := range events {
		sum += ev.Latency()
		if ev.Start.Before(prevEnd) {
			overlapped = true
		}
		if ev.End.After(prevEnd) {
			prevEnd = ev.End
		}
	}

	if overlapped {
		return tr.WallClock()
	}
	return sum
}
