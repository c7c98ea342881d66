// Package analyzer is the public surface of the workflow execution
// analyzer: agent registration, execution tracing, trace aggregation with
// bottleneck detection, and structural workflow optimization. The whole
// package is an in-process library; callers drive it synchronously.
package analyzer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/your-org/workflow-analyzer/internal/agent"
	"github.com/your-org/workflow-analyzer/internal/analysis"
	"github.com/your-org/workflow-analyzer/internal/ident"
	"github.com/your-org/workflow-analyzer/internal/metrics"
	"github.com/your-org/workflow-analyzer/internal/planner"
	"github.com/your-org/workflow-analyzer/internal/trace"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

var (
	ErrDisposed        = errors.New("analyzer disposed")
	ErrUnknownWorkflow = errors.New("workflow not registered")

	// Re-exported operation errors, so callers never import internal
	// packages to classify failures.
	ErrDuplicateAgent     = agent.ErrDuplicateAgent
	ErrUnknownAgent       = agent.ErrUnknownAgent
	ErrExecutionNotFound  = trace.ErrExecutionNotFound
	ErrExecutionClosed    = trace.ErrExecutionClosed
	ErrStepAlreadyRunning = trace.ErrStepAlreadyRunning
	ErrStepNotRunning     = trace.ErrStepNotRunning
)

// Analyzer owns the agent registry and execution tracer and answers
// analysis and optimization queries over them.
type Analyzer struct {
	mu       sync.RWMutex
	disposed bool

	registry  *agent.Registry
	tracer    *trace.Tracer
	workflows map[string]workflow.Workflow

	detectorCfg workflow.DetectorConfig
	plannerCfg  workflow.PlannerConfig
	validate    bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDetectorConfig overrides bottleneck thresholds.
func WithDetectorConfig(cfg workflow.DetectorConfig) Option {
	return func(a *Analyzer) { a.detectorCfg = cfg }
}

// WithPlannerConfig overrides optimization tuning.
func WithPlannerConfig(cfg workflow.PlannerConfig) Option {
	return func(a *Analyzer) { a.plannerCfg = cfg }
}

// WithRecorder attaches an instrumentation recorder to the tracer.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Analyzer) {
		a.tracer = trace.NewTracer(trace.WithRecorder(r))
	}
}

// WithWorkflowValidation makes StartExecution reject workflow ids that were
// never added via AddWorkflow. Off by default: the tracer is
// workflow-agnostic and simply tags executions.
func WithWorkflowValidation() Option {
	return func(a *Analyzer) { a.validate = true }
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:    agent.NewRegistry(),
		tracer:      trace.NewTracer(),
		workflows:   make(map[string]workflow.Workflow),
		detectorCfg: workflow.DefaultDetectorConfig(),
		plannerCfg:  workflow.DefaultPlannerConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterAgent records an immutable agent descriptor.
func (a *Analyzer) RegisterAgent(ag workflow.Agent) error {
	if err := a.guard(); err != nil {
		return err
	}
	return a.registry.Register(ag)
}

// LookupAgent resolves a registered agent by id.
func (a *Analyzer) LookupAgent(agentID string) (workflow.Agent, error) {
	if err := a.guard(); err != nil {
		return workflow.Agent{}, err
	}
	return a.registry.Lookup(agentID)
}

// AddWorkflow stores a validated workflow definition for later analysis and
// for StartExecution validation when enabled.
func (a *Analyzer) AddWorkflow(w workflow.Workflow) error {
	if err := a.guard(); err != nil {
		return err
	}
	if w.ID == "" {
		return errors.New("workflow id is empty")
	}
	if _, err := planner.Build(w, false); err != nil {
		return fmt.Errorf("add workflow %q: %w", w.ID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return ErrDisposed
	}
	a.workflows[ident.Normalize(w.ID)] = w.Clone()
	return nil
}

// StartExecution opens a new traced execution of the workflow.
func (a *Analyzer) StartExecution(workflowID string, label string) (trace.Execution, error) {
	if err := a.guard(); err != nil {
		return trace.Execution{}, err
	}
	key := ident.Normalize(workflowID)
	if a.validate {
		a.mu.RLock()
		_, known := a.workflows[key]
		a.mu.RUnlock()
		if !known {
			return trace.Execution{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, key)
		}
	}
	return a.tracer.StartExecution(key, label)
}

// StartStep records the start of one step within a running execution.
func (a *Analyzer) StartStep(executionID string, step workflow.Step) error {
	if err := a.guard(); err != nil {
		return err
	}
	return a.tracer.StartStep(executionID, step)
}

// CompleteStep records the externally-reported outcome of a running step.
func (a *Analyzer) CompleteStep(executionID string, stepID string, inputTokens int, outputTokens int, success bool, errMsg string) error {
	if err := a.guard(); err != nil {
		return err
	}
	return a.tracer.CompleteStep(executionID, stepID, inputTokens, outputTokens, success, errMsg)
}

// CompleteExecution finalizes an execution and freezes its trace.
func (a *Analyzer) CompleteExecution(executionID string, status trace.Status) (trace.Execution, error) {
	if err := a.guard(); err != nil {
		return trace.Execution{}, err
	}
	return a.tracer.CompleteExecution(executionID, status)
}

// Tracer exposes the underlying tracer to in-process drivers such as the
// simulator. External callers should prefer the Analyzer methods.
func (a *Analyzer) Tracer() *trace.Tracer {
	return a.tracer
}

// Registry exposes the agent registry for profile resolution.
func (a *Analyzer) Registry() *agent.Registry {
	return a.registry
}

// AnalyzeWorkflow aggregates all completed executions of the workflow into
// latency/cost/quality metrics with bottleneck annotations. A workflow with
// no completed executions yields zeroed metrics.
func (a *Analyzer) AnalyzeWorkflow(workflowID string) (analysis.Result, error) {
	if err := a.guard(); err != nil {
		return analysis.Result{}, err
	}
	key := ident.Normalize(workflowID)
	execs := a.tracer.CompletedExecutions(key)
	return analysis.Aggregate(key, execs, a.registry.Profile, a.detectorCfg), nil
}

// OptimizeWorkflow rewrites the workflow using historical metrics when any
// completed executions exist for its id, falling back to declared agent
// profiles for the dry structural pass.
func (a *Analyzer) OptimizeWorkflow(w workflow.Workflow) (workflow.Workflow, []planner.Result, error) {
	if err := a.guard(); err != nil {
		return workflow.Workflow{}, nil, err
	}

	var hist *analysis.Result
	if execs := a.tracer.CompletedExecutions(ident.Normalize(w.ID)); len(execs) > 0 {
		res := analysis.Aggregate(ident.Normalize(w.ID), execs, a.registry.Profile, a.detectorCfg)
		hist = &res
	}

	p := planner.New(a.plannerCfg, a.registry.Profile)
	return p.Optimize(w, hist)
}

// Dispose releases all in-memory registries and traces. Every subsequent
// call fails with ErrDisposed.
func (a *Analyzer) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disposed {
		return
	}
	a.disposed = true
	a.registry.Clear()
	a.tracer.Clear()
	a.workflows = make(map[string]workflow.Workflow)
}

func (a *Analyzer) guard() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.disposed {
		return ErrDisposed
	}
	return nil
}
