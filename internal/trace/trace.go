package trace

import "time"

// Status is the lifecycle state of one execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepEvent records the lifecycle of one step inside an execution. End is
// stamped exactly once, by completion, and is never before Start.
type StepEvent struct {
	StepID       string    `json:"step_id"`
	AgentID      string    `json:"agent_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// Open reports whether the event has not been completed yet.
func (e StepEvent) Open() bool {
	return e.End.IsZero()
}

// Latency is the observed duration of a completed event.
func (e StepEvent) Latency() time.Duration {
	if e.Open() {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Tokens is the total token volume consumed and produced by the event.
func (e StepEvent) Tokens() int {
	return e.InputTokens + e.OutputTokens
}

// ExecutionTrace is the ordered record of step events for one execution.
// It is appended to only by the execution that owns it and becomes
// immutable once that execution is finalized.
type ExecutionTrace struct {
	ID         string      `json:"id"`
	WorkflowID string      `json:"workflow_id"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Events     []StepEvent `json:"events"`
}

// WallClock is the observed execution duration from start to finalization.
func (t ExecutionTrace) WallClock() time.Duration {
	if t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// Clone returns an independent copy of the trace.
func (t ExecutionTrace) Clone() ExecutionTrace {
	out := t
	out.Events = append([]StepEvent(nil), t.Events...)
	return out
}

// Execution is one run of a workflow. The tracer owns the record; callers
// receive copies.
type Execution struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Label      string         `json:"label,omitempty"`
	Status     Status         `json:"status"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Trace      ExecutionTrace `json:"trace"`
}

// Failed reports whether the trace contains at least one failed step.
func (t ExecutionTrace) Failed() bool {
	for _, e := range t.Events {
		if !e.Open() && !e.Success {
			return true
		}
	}
	return false
}
