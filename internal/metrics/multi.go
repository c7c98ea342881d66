package metrics

import "time"

// MultiRecorder fans out metrics to multiple recorders.
type MultiRecorder struct {
	recorders []Recorder
}

func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	nonNil := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			nonNil = append(nonNil, r)
		}
	}
	return &MultiRecorder{recorders: nonNil}
}

func (m *MultiRecorder) ObserveStep(agentID string, status string, duration time.Duration) {
	for _, r := range m.recorders {
		r.ObserveStep(agentID, status, duration)
	}
}

func (m *MultiRecorder) ObserveExecution(workflowID string, status string, duration time.Duration) {
	for _, r := range m.recorders {
		r.ObserveExecution(workflowID, status, duration)
	}
}

func (m *MultiRecorder) ObserveForcedClose(agentID string) {
	for _, r := range m.recorders {
		r.ObserveForcedClose(agentID)
	}
}
