package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(registry)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	r.ObserveStep("classifier", "success", 20*time.Millisecond)
	r.ObserveExecution("wf", "completed", 100*time.Millisecond)
	r.ObserveForcedClose("drafter")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := make(map[string]bool, len(families))
	for _, f := range families {
		got[f.GetName()] = true
	}
	for _, want := range []string{
		"workflow_analyzer_steps_total",
		"workflow_analyzer_step_duration_seconds",
		"workflow_analyzer_executions_total",
		"workflow_analyzer_execution_duration_seconds",
		"workflow_analyzer_forced_closes_total",
	} {
		if !got[want] {
			t.Fatalf("metric %s not exported, have %v", want, got)
		}
	}
}

func TestNewPrometheusRecorderNilRegistry(t *testing.T) {
	if _, err := NewPrometheusRecorder(nil); err == nil {
		t.Fatalf("nil registry accepted")
	}
}
