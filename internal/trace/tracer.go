package trace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/workflow-analyzer/internal/metrics"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

var (
	ErrEmptyWorkflowID    = errors.New("workflow id is empty")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrExecutionClosed    = errors.New("execution already finalized")
	ErrStepAlreadyRunning = errors.New("step already running")
	ErrStepNotRunning     = errors.New("step not running")
)

// forcedCloseError marks steps left open when their execution is finalized.
const forcedCloseError = "step never completed: closed at execution end"

type record struct {
	exec Execution
	// open maps a running step id to its event index in exec.Trace.Events.
	open map[string]int
}

// Tracer records workflow executions as traces of step events. The shared
// execution registry is serialized by a single mutex; every operation under
// the lock is O(1) bookkeeping, so concurrent executions never contend for
// long. Aggregation reads only finalized traces and therefore never races
// an in-progress execution.
type Tracer struct {
	mu       sync.Mutex
	records  map[string]*record
	recorder metrics.Recorder
	now      func() time.Time
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithRecorder attaches an instrumentation recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(t *Tracer) {
		if r != nil {
			t.recorder = r
		}
	}
}

// WithClock overrides the time source. Tests use this for deterministic
// latencies.
func WithClock(now func() time.Time) Option {
	return func(t *Tracer) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTracer(opts ...Option) *Tracer {
	t := &Tracer{
		records:  make(map[string]*record),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartExecution allocates a new running execution with a fresh empty trace
// and returns a copy of it. The tracer is workflow-agnostic: it tags the
// execution with the workflow id without validating it.
func (t *Tracer) StartExecution(workflowID string, label string) (Execution, error) {
	if workflowID == "" {
		return Execution{}, ErrEmptyWorkflowID
	}

	now := t.now()
	exec := Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Label:      label,
		Status:     StatusRunning,
		Start:      now,
		Trace: ExecutionTrace{
			ID:         uuid.NewString(),
			WorkflowID: workflowID,
			Start:      now,
		},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[exec.ID] = &record{exec: exec, open: make(map[string]int)}
	return exec, nil
}

// StartStep appends an open step event to the execution's trace. A step id
// already open within the same execution is rejected; the tracer trusts the
// caller's claimed step identity but never allows two open events for one
// step.
func (t *Tracer) StartStep(executionID string, step workflow.Step) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.running(executionID)
	if err != nil {
		return err
	}
	if _, open := rec.open[step.ID]; open {
		return fmt.Errorf("%w: %s", ErrStepAlreadyRunning, step.ID)
	}

	rec.exec.Trace.Events = append(rec.exec.Trace.Events, StepEvent{
		StepID:       step.ID,
		AgentID:      step.AgentID,
		Start:        t.now(),
		InputTokens:  step.InputTokens,
		OutputTokens: step.OutputTokens,
	})
	rec.open[step.ID] = len(rec.exec.Trace.Events) - 1
	return nil
}

// CompleteStep closes the matching open step event, stamping its end time,
// outcome, and the reported token counts. A reported count of zero is a
// real observation and replaces the start-time estimate; negative counts
// mean "not reported" and leave the estimate in place.
func (t *Tracer) CompleteStep(executionID string, stepID string, inputTokens int, outputTokens int, success bool, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.running(executionID)
	if err != nil {
		return err
	}
	idx, open := rec.open[stepID]
	if !open {
		return fmt.Errorf("%w: %s", ErrStepNotRunning, stepID)
	}

	ev := &rec.exec.Trace.Events[idx]
	ev.End = t.now()
	if ev.End.Before(ev.Start) {
		ev.End = ev.Start
	}
	if inputTokens >= 0 {
		ev.InputTokens = inputTokens
	}
	if outputTokens >= 0 {
		ev.OutputTokens = outputTokens
	}
	ev.Success = success
	ev.Error = errMsg
	delete(rec.open, stepID)

	status := "success"
	if !success {
		status = "error"
	}
	t.recorder.ObserveStep(ev.AgentID, status, ev.Latency())
	return nil
}

// CompleteExecution stamps the end time, sets the final status, and freezes
// the trace. Steps still open are force-closed as failures: an execution
// that never reports completion for a step yields a failed step, not an
// indefinitely pending one.
func (t *Tracer) CompleteExecution(executionID string, status Status) (Execution, error) {
	if status != StatusCompleted && status != StatusFailed {
		return Execution{}, fmt.Errorf("invalid final status %q", status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.running(executionID)
	if err != nil {
		return Execution{}, err
	}

	now := t.now()
	for stepID, idx := range rec.open {
		ev := &rec.exec.Trace.Events[idx]
		ev.End = now
		ev.Success = false
		ev.Error = forcedCloseError
		t.recorder.ObserveForcedClose(ev.AgentID)
		delete(rec.open, stepID)
	}

	rec.exec.Status = status
	rec.exec.End = now
	rec.exec.Trace.End = now
	t.recorder.ObserveExecution(rec.exec.WorkflowID, string(status), rec.exec.Trace.WallClock())

	out := rec.exec
	out.Trace = rec.exec.Trace.Clone()
	return out, nil
}

// Get returns a copy of the execution record.
func (t *Tracer) Get(executionID string) (Execution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[executionID]
	if !ok {
		return Execution{}, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	out := rec.exec
	out.Trace = rec.exec.Trace.Clone()
	return out, nil
}

// CompletedExecutions snapshots every finalized execution for the workflow.
// Executions still running are excluded until CompleteExecution is called.
func (t *Tracer) CompletedExecutions(workflowID string) []Execution {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Execution, 0)
	for _, rec := range t.records {
		if rec.exec.WorkflowID != workflowID || rec.exec.Status == StatusRunning {
			continue
		}
		e := rec.exec
		e.Trace = rec.exec.Trace.Clone()
		out = append(out, e)
	}
	return out
}

// Clear drops every execution record. Used by Dispose.
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]*record)
}

// running resolves a record and rejects finalized executions. Callers hold
// t.mu.
func (t *Tracer) running(executionID string) (*record, error) {
	rec, ok := t.records[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
	}
	if rec.exec.Status != StatusRunning {
		return nil, fmt.Errorf("%w: %s", ErrExecutionClosed, executionID)
	}
	return rec, nil
}
