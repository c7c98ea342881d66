package trace

import (
	"testing"
	"time"
)

func frozenTrace(events ...StepEvent) ExecutionTrace {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return ExecutionTrace{ID: "t", WorkflowID: "wf", Start: start, End: start.Add(time.Second), Events: events}
}

func TestCompareEquivalentTraces(t *testing.T) {
	tr := frozenTrace(
		StepEvent{StepID: "a", AgentID: "x", InputTokens: 100, OutputTokens: 50, Success: true},
		StepEvent{StepID: "b", AgentID: "y", Success: true},
	)
	if divs := Compare(tr, tr); len(divs) != 0 {
		t.Fatalf("identical traces diverged: %+v", divs)
	}
}

func TestCompareFieldDivergences(t *testing.T) {
	expected := frozenTrace(
		StepEvent{StepID: "a", AgentID: "x", InputTokens: 100, OutputTokens: 50, Success: true},
	)
	actual := frozenTrace(
		StepEvent{StepID: "a", AgentID: "z", InputTokens: 100, OutputTokens: 40, Success: false, Error: "timeout"},
	)

	divs := Compare(expected, actual)
	byField := make(map[string]Divergence, len(divs))
	for _, d := range divs {
		byField[d.Field] = d
	}

	if d, ok := byField["agent_id"]; !ok || d.Expected != "x" || d.Actual != "z" {
		t.Fatalf("agent divergence wrong: %+v", divs)
	}
	if d, ok := byField["success"]; !ok || d.Expected != "true" || d.Actual != "false" {
		t.Fatalf("success divergence wrong: %+v", divs)
	}
	if _, ok := byField["error"]; !ok {
		t.Fatalf("error divergence missing: %+v", divs)
	}
	if d, ok := byField["output_tokens"]; !ok || d.Expected != "50" || d.Actual != "40" {
		t.Fatalf("token divergence wrong: %+v", divs)
	}
	if _, ok := byField["input_tokens"]; ok {
		t.Fatalf("equal field reported as divergent")
	}
}

func TestCompareMissingSteps(t *testing.T) {
	expected := frozenTrace(
		StepEvent{StepID: "a", AgentID: "x", Success: true},
		StepEvent{StepID: "b", AgentID: "y", Success: true},
	)
	actual := frozenTrace(
		StepEvent{StepID: "a", AgentID: "x", Success: true},
		StepEvent{StepID: "c", AgentID: "y", Success: true},
	)

	divs := Compare(expected, actual)
	if len(divs) != 2 {
		t.Fatalf("expected 2 divergences, got %+v", divs)
	}
	// Union of step ids, sorted.
	if divs[0].StepID != "b" || divs[0].Field != "missing_actual" {
		t.Fatalf("missing step wrong: %+v", divs[0])
	}
	if divs[1].StepID != "c" || divs[1].Field != "missing_expected" {
		t.Fatalf("extra step wrong: %+v", divs[1])
	}
}

func TestCompareLatestEventWins(t *testing.T) {
	// A reopened step id is judged by its final event only.
	expected := frozenTrace(
		StepEvent{StepID: "a", AgentID: "x", Success: false, Error: "first try"},
		StepEvent{StepID: "a", AgentID: "x", Success: true},
	)
	actual := frozenTrace(
		StepEvent{StepID: "a", AgentID: "x", Success: true},
	)
	if divs := Compare(expected, actual); len(divs) != 0 {
		t.Fatalf("latest event not used: %+v", divs)
	}
}
