package metrics

import "time"

// Recorder defines minimal metric hooks for tracer instrumentation.
type Recorder interface {
	ObserveStep(agentID string, status string, duration time.Duration)
	ObserveExecution(workflowID string, status string, duration time.Duration)
	ObserveForcedClose(agentID string)
}

// NoopRecorder is the default recorder.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStep(string, string, time.Duration)      {}
func (NoopRecorder) ObserveExecution(string, string, time.Duration) {}
func (NoopRecorder) ObserveForcedClose(string)                      {}
