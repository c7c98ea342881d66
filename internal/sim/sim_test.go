package sim

import (
	"context"
	"testing"
	"time"

	"github.com/your-org/workflow-analyzer/internal/agent"
	"github.com/your-org/workflow-analyzer/internal/trace"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

func fastRegistry(t *testing.T, ids ...string) *agent.Registry {
	t.Helper()
	r := agent.NewRegistry()
	for _, id := range ids {
		if err := r.Register(workflow.Agent{ID: id, Profile: workflow.Profile{BaseLatency: time.Millisecond}}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	return r
}

func TestRunProducesFinalizedExecutions(t *testing.T) {
	tracer := trace.NewTracer()
	r := NewRunner(tracer, fastRegistry(t, "a"), Config{Executions: 3, Seed: 42})
	w := workflow.Workflow{ID: "wf", Steps: []workflow.Step{
		{ID: "s1", AgentID: "a", InputTokens: 10},
		{ID: "s2", AgentID: "a", InputTokens: 20},
	}}

	execs, err := r.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(execs) != 3 {
		t.Fatalf("executions = %d, want 3", len(execs))
	}
	for _, e := range execs {
		if e.Status != trace.StatusCompleted {
			t.Fatalf("execution %s status = %s", e.ID, e.Status)
		}
		if len(e.Trace.Events) != 2 {
			t.Fatalf("execution %s has %d events", e.ID, len(e.Trace.Events))
		}
		for _, ev := range e.Trace.Events {
			if ev.Open() || !ev.Success {
				t.Fatalf("event not closed cleanly: %+v", ev)
			}
		}
	}
	if got := len(tracer.CompletedExecutions("wf")); got != 3 {
		t.Fatalf("tracer holds %d finalized executions", got)
	}
}

func TestRunFailEveryForcesFailures(t *testing.T) {
	tracer := trace.NewTracer()
	r := NewRunner(tracer, fastRegistry(t, "a"), Config{Executions: 4, FailEvery: 2, Seed: 1})
	w := workflow.Workflow{ID: "wf", Steps: []workflow.Step{
		{ID: "s1", AgentID: "a"},
		{ID: "s2", AgentID: "a"},
	}}

	execs, err := r.Run(context.Background(), w)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	failed := 0
	for _, e := range execs {
		if e.Status == trace.StatusFailed {
			failed++
			if !e.Trace.Failed() {
				t.Fatalf("failed execution has no failed step: %+v", e.Trace.Events)
			}
		}
	}
	if failed != 2 {
		t.Fatalf("failed executions = %d, want every 2nd of 4", failed)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	tracer := trace.NewTracer()
	reg := agent.NewRegistry()
	reg.Register(workflow.Agent{ID: "slow", Profile: workflow.Profile{BaseLatency: time.Minute}})

	r := NewRunner(tracer, reg, Config{Executions: 1})
	w := workflow.Workflow{ID: "wf", Steps: []workflow.Step{{ID: "s1", AgentID: "slow"}}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Run(ctx, w); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestExecutionLevels(t *testing.T) {
	declared := workflow.Workflow{ID: "wf", Steps: []workflow.Step{
		{ID: "root", AgentID: "a"},
		{ID: "left", AgentID: "a", DependsOn: []string{"root"}},
		{ID: "right", AgentID: "a", DependsOn: []string{"root"}},
	}}
	levels, err := executionLevels(declared)
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	if len(levels) != 2 || len(levels[1]) != 2 {
		t.Fatalf("declared levels wrong: %v", levels)
	}

	grouped := workflow.Workflow{ID: "wf", Steps: []workflow.Step{
		{ID: "a", AgentID: "x", ConcurrentGroup: "parallel-1"},
		{ID: "b", AgentID: "x", ConcurrentGroup: "parallel-1"},
		{ID: "c", AgentID: "x"},
	}}
	levels, err = executionLevels(grouped)
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	if len(levels) != 2 || len(levels[0]) != 2 || len(levels[1]) != 1 {
		t.Fatalf("grouped levels wrong: %v", levels)
	}

	if _, err := executionLevels(workflow.Workflow{ID: "wf"}); err == nil {
		t.Fatalf("empty workflow accepted")
	}
}

func TestCacheStepsAreFast(t *testing.T) {
	tracer := trace.NewTracer()
	reg := agent.NewRegistry()
	reg.Register(workflow.Agent{ID: "a", Profile: workflow.Profile{BaseLatency: 50 * time.Millisecond}})

	r := NewRunner(tracer, reg, Config{Executions: 1})
	lat := r.stepLatency(workflow.Step{ID: "s", AgentID: "a", CacheOf: "other"}, nil)
	if lat != cacheHitLatency {
		t.Fatalf("cache step latency = %s", lat)
	}
}
