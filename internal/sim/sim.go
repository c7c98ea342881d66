package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/workflow-analyzer/internal/agent"
	"github.com/your-org/workflow-analyzer/internal/channel"
	"github.com/your-org/workflow-analyzer/internal/planner"
	"github.com/your-org/workflow-analyzer/internal/trace"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// cacheHitLatency is the synthetic latency of a cache-lookup step.
const cacheHitLatency = time.Millisecond

// Config tunes a simulation run.
type Config struct {
	Executions     int
	WorkerPoolSize int
	// FailEvery leaves the last step of every Nth execution unreported so
	// the tracer's forced-close policy kicks in. Zero disables failures.
	FailEvery int
	Seed      int64
	// Jitter randomizes each synthetic latency by up to the given fraction.
	Jitter float64
}

// Runner drives the tracer through synthetic executions of a workflow. No
// agent is actually executed: step outcomes are reported through the same
// public tracer surface an external driver would use, with latencies drawn
// from the declared agent profiles.
type Runner struct {
	tracer   *trace.Tracer
	registry *agent.Registry
	logger   *zap.Logger
	otel     oteltrace.Tracer
	cfg      Config
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithOTel(t oteltrace.Tracer) Option {
	return func(r *Runner) { r.otel = t }
}

func NewRunner(tracer *trace.Tracer, registry *agent.Registry, cfg Config, opts ...Option) *Runner {
	if cfg.Executions <= 0 {
		cfg.Executions = 1
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 4
	}
	r := &Runner{
		tracer:   tracer,
		registry: registry,
		logger:   zap.NewNop(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cfg.Executions simulated runs of the workflow concurrently
// and returns the finalized executions. Each execution drives its own trace
// from its own goroutine; the tracer's registry lock is the only shared
// state.
func (r *Runner) Run(ctx context.Context, w workflow.Workflow) ([]trace.Execution, error) {
	levels, err := executionLevels(w)
	if err != nil {
		return nil, fmt.Errorf("simulate %q: %w", w.ID, err)
	}

	results := channel.NewBufferedResultChannel[runOutcome](r.cfg.Executions)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Executions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			exec, err := r.runOne(ctx, w, levels, n)
			results <- runOutcome{exec: exec, err: err}
		}(i)
	}
	wg.Wait()
	close(results)

	out := make([]trace.Execution, 0, r.cfg.Executions)
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		out = append(out, res.exec)
	}
	r.logger.Info("simulation finished",
		zap.String("workflow_id", w.ID),
		zap.Int("executions", len(out)),
	)
	return out, nil
}

type runOutcome struct {
	exec trace.Execution
	err  error
}

func (r *Runner) runOne(ctx context.Context, w workflow.Workflow, levels [][]workflow.Step, n int) (trace.Execution, error) {
	exec, err := r.tracer.StartExecution(w.ID, fmt.Sprintf("sim-%d", n+1))
	if err != nil {
		return trace.Execution{}, err
	}

	var span oteltrace.Span
	if r.otel != nil {
		ctx, span = trace.StartExecutionSpan(r.otel, ctx, exec)
		defer span.End()
	}

	rng := rand.New(rand.NewSource(r.cfg.Seed + int64(n)))
	failRun := r.cfg.FailEvery > 0 && (n+1)%r.cfg.FailEvery == 0
	lastStepID := w.Steps[len(w.Steps)-1].ID

	finalStatus := trace.StatusCompleted
	for _, level := range levels {
		sem := make(chan struct{}, r.cfg.WorkerPoolSize)
		var wg sync.WaitGroup
		errCh := channel.NewBufferedResultChannel[error](len(level))

		for _, step := range level {
			// Latency is drawn before dispatch; the rng stays confined to
			// the driving goroutine.
			latency := r.stepLatency(step, rng)
			wg.Add(1)
			go func(s workflow.Step, lat time.Duration) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				errCh <- r.runStep(ctx, exec.ID, s, lat, failRun && s.ID == lastStepID)
			}(step, latency)
		}
		wg.Wait()
		close(errCh)

		for stepErr := range errCh {
			if stepErr != nil {
				return trace.Execution{}, stepErr
			}
		}
	}
	if failRun {
		finalStatus = trace.StatusFailed
	}

	final, err := r.tracer.CompleteExecution(exec.ID, finalStatus)
	if err != nil {
		return trace.Execution{}, err
	}
	r.logger.Debug("execution finalized",
		zap.String("execution_id", final.ID),
		zap.String("status", string(final.Status)),
		zap.Duration("wall_clock", final.Trace.WallClock()),
	)
	return final, nil
}

// runStep reports one synthetic step through the tracer. A step flagged to
// fail is started but never completed, which the finalization pass then
// force-closes as a failure.
func (r *Runner) runStep(ctx context.Context, execID string, step workflow.Step, latency time.Duration, abandon bool) error {
	if r.otel != nil {
		var span oteltrace.Span
		_, span = trace.StartStepSpan(r.otel, ctx, step)
		defer span.End()
	}

	if err := r.tracer.StartStep(execID, step); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(latency):
	}

	if abandon {
		return nil
	}
	return r.tracer.CompleteStep(execID, step.ID, step.InputTokens, step.OutputTokens, true, "")
}

func (r *Runner) stepLatency(step workflow.Step, rng *rand.Rand) time.Duration {
	if step.CacheOf != "" {
		return cacheHitLatency
	}
	base := r.registry.Profile(step.AgentID).EstimateLatency(step.InputTokens + step.OutputTokens)
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	if r.cfg.Jitter > 0 {
		spread := float64(base) * r.cfg.Jitter
		base += time.Duration((rng.Float64()*2 - 1) * spread)
		if base < 0 {
			base = 0
		}
	}
	return base
}

// executionLevels derives the concurrency structure the simulator honors.
// Workflows with declared dependencies run by topological level; plain
// sequences run step by step, except that consecutive steps rewritten into
// the same concurrent group run together.
func executionLevels(w workflow.Workflow) ([][]workflow.Step, error) {
	if len(w.Steps) == 0 {
		return nil, planner.ErrEmptyWorkflow
	}

	declared := false
	for _, s := range w.Steps {
		if len(s.DependsOn) > 0 {
			declared = true
			break
		}
	}

	if declared {
		g, err := planner.Build(w, false)
		if err != nil {
			return nil, err
		}
		levels := make([][]workflow.Step, 0, len(g.Levels()))
		for _, ids := range g.Levels() {
			level := make([]workflow.Step, 0, len(ids))
			for _, id := range ids {
				step, _ := w.Step(id)
				level = append(level, step)
			}
			levels = append(levels, level)
		}
		return levels, nil
	}

	levels := make([][]workflow.Step, 0, len(w.Steps))
	for _, s := range w.Steps {
		n := len(levels)
		if n > 0 && s.ConcurrentGroup != "" && levels[n-1][0].ConcurrentGroup == s.ConcurrentGroup {
			levels[n-1] = append(levels[n-1], s)
			continue
		}
		levels = append(levels, []workflow.Step{s})
	}
	return levels, nil
}
