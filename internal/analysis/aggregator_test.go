package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/your-org/workflow-analyzer/internal/trace"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

var aggBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialExec(id string, start time.Time, latencies map[string]time.Duration, order []string) trace.Execution {
	tr := trace.ExecutionTrace{ID: id, WorkflowID: "wf", Start: start}
	cursor := start
	for _, stepID := range order {
		ev := trace.StepEvent{
			StepID:      stepID,
			AgentID:     "agent-" + stepID,
			Start:       cursor,
			End:         cursor.Add(latencies[stepID]),
			InputTokens: 1000,
			Success:     true,
		}
		cursor = ev.End
		tr.Events = append(tr.Events, ev)
	}
	tr.End = cursor
	return trace.Execution{
		ID: id, WorkflowID: "wf", Status: trace.StatusCompleted,
		Start: start, End: cursor, Trace: tr,
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate("wf", nil, nil, workflow.DefaultDetectorConfig())
	if res.Executions != 0 || res.TotalLatency != 0 || res.TotalCost != 0 || res.SuccessRate != 0 {
		t.Fatalf("empty execution set must yield zeroed metrics, got %+v", res)
	}
	if len(res.Steps) != 0 {
		t.Fatalf("expected no step stats, got %d", len(res.Steps))
	}
}

func TestAggregateSequentialSums(t *testing.T) {
	lat := map[string]time.Duration{"a": 100 * time.Millisecond, "b": 150 * time.Millisecond}
	execs := []trace.Execution{
		sequentialExec("e1", aggBase, lat, []string{"a", "b"}),
		sequentialExec("e2", aggBase.Add(time.Second), lat, []string{"a", "b"}),
	}
	resolve := func(string) workflow.Profile {
		return workflow.Profile{USDPerThousandTokens: 0.5}
	}

	res := Aggregate("wf", execs, resolve, workflow.DefaultDetectorConfig())
	if res.Executions != 2 {
		t.Fatalf("executions = %d", res.Executions)
	}
	if res.TotalLatency != 250*time.Millisecond {
		t.Fatalf("mean latency = %s, want 250ms", res.TotalLatency)
	}
	// Two steps at 1000 tokens and 0.5 USD per thousand each, per execution.
	if res.TotalCost != 1.0 {
		t.Fatalf("mean cost = %f, want 1.0", res.TotalCost)
	}
	if res.SuccessRate != 1.0 {
		t.Fatalf("success rate = %f", res.SuccessRate)
	}

	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 step stats, got %d", len(res.Steps))
	}
	for _, s := range res.Steps {
		if s.Samples != 2 {
			t.Fatalf("step %s samples = %d", s.StepID, s.Samples)
		}
		if s.AverageLatency != lat[s.StepID] {
			t.Fatalf("step %s avg latency = %s", s.StepID, s.AverageLatency)
		}
	}
}

func TestAggregateOverlapUsesWallClock(t *testing.T) {
	// Two steps running concurrently: sum would be 250ms, wall clock is 150ms.
	tr := trace.ExecutionTrace{ID: "e1", WorkflowID: "wf", Start: aggBase, End: aggBase.Add(150 * time.Millisecond)}
	tr.Events = []trace.StepEvent{
		{StepID: "a", AgentID: "x", Start: aggBase, End: aggBase.Add(100 * time.Millisecond), Success: true},
		{StepID: "b", AgentID: "y", Start: aggBase, End: aggBase.Add(150 * time.Millisecond), Success: true},
	}
	exec := trace.Execution{ID: "e1", WorkflowID: "wf", Status: trace.StatusCompleted, Start: tr.Start, End: tr.End, Trace: tr}

	res := Aggregate("wf", []trace.Execution{exec}, nil, workflow.DefaultDetectorConfig())
	if res.TotalLatency != 150*time.Millisecond {
		t.Fatalf("overlapping steps must use wall clock, got %s", res.TotalLatency)
	}
}

func TestAggregateFailedStepBreaksSuccess(t *testing.T) {
	ok := sequentialExec("e1", aggBase, map[string]time.Duration{"a": 10 * time.Millisecond}, []string{"a"})
	bad := sequentialExec("e2", aggBase.Add(time.Second), map[string]time.Duration{"a": 10 * time.Millisecond}, []string{"a"})
	bad.Trace.Events[0].Success = false
	bad.Trace.Events[0].Error = "timeout"
	bad.Status = trace.StatusFailed

	res := Aggregate("wf", []trace.Execution{ok, bad}, nil, workflow.DefaultDetectorConfig())
	if res.SuccessRate != 0.5 {
		t.Fatalf("success rate = %f, want 0.5", res.SuccessRate)
	}
	if res.Steps[0].Failures != 1 {
		t.Fatalf("failures = %d, want 1", res.Steps[0].Failures)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	lat := map[string]time.Duration{"a": 20 * time.Millisecond, "b": 60 * time.Millisecond}
	execs := []trace.Execution{
		sequentialExec("e2", aggBase.Add(time.Second), lat, []string{"a", "b"}),
		sequentialExec("e1", aggBase, lat, []string{"a", "b"}),
	}
	first := Aggregate("wf", execs, nil, workflow.DefaultDetectorConfig())
	// Reversed input order must not change the result.
	second := Aggregate("wf", []trace.Execution{execs[1], execs[0]}, nil, workflow.DefaultDetectorConfig())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregation is not order independent:\n%+v\n%+v", first, second)
	}
}
