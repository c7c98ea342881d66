package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/your-org/workflow-analyzer/internal/agent"
	"github.com/your-org/workflow-analyzer/internal/analysis"
	"github.com/your-org/workflow-analyzer/internal/audit"
	"github.com/your-org/workflow-analyzer/internal/config"
	"github.com/your-org/workflow-analyzer/internal/metrics"
	"github.com/your-org/workflow-analyzer/internal/planner"
	"github.com/your-org/workflow-analyzer/internal/sim"
	"github.com/your-org/workflow-analyzer/internal/trace"
	"github.com/your-org/workflow-analyzer/pkg/analyzer"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// RunSimulation loads a manifest, drives the simulated executions through
// the tracer, and writes the analysis and optimization report.
func RunSimulation(manifestPath string, out io.Writer) (retErr error) {
	logger := audit.NewLogger(strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH")))
	defer func() {
		status := "success"
		if retErr != nil {
			status = "error"
		}
		_ = logger.Write("simulate", "", manifestPath, status, retErr)
	}()

	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	w := config.BuildWorkflow(manifest)

	runtimeCfg := config.FromEnv()

	memRecorder := metrics.NewInMemoryRecorder()
	activeRecorder := metrics.Recorder(memRecorder)
	var metricsServer *http.Server
	if envBool("METRICS_ENABLED") {
		promRegistry := prometheus.NewRegistry()
		promRecorder, err := metrics.NewPrometheusRecorder(promRegistry)
		if err != nil {
			return fmt.Errorf("setup prometheus recorder: %w", err)
		}
		activeRecorder = metrics.NewMultiRecorder(memRecorder, promRecorder)
		metricsServer, err = metrics.StartPrometheusServer(os.Getenv("METRICS_ADDR"), promRegistry)
		if err != nil {
			return fmt.Errorf("start metrics endpoint: %w", err)
		}
		defer func() { _ = metrics.StopServer(context.Background(), metricsServer) }()
	}

	a := analyzer.New(
		analyzer.WithRecorder(activeRecorder),
		analyzer.WithDetectorConfig(manifest.Analyzer.DetectorConfig()),
		analyzer.WithPlannerConfig(manifest.Analyzer.PlannerConfig()),
	)
	defer a.Dispose()

	for _, ag := range config.BuildAgents(manifest) {
		if err := a.RegisterAgent(ag); err != nil {
			return fmt.Errorf("register agent %q: %w", ag.ID, err)
		}
	}
	if err := a.AddWorkflow(w); err != nil {
		return err
	}

	otelRuntime, err := trace.SetupOTelFromEnv("workflow-analyzer")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = otelRuntime.Shutdown(context.Background()) }()

	simCfg := sim.Config{Executions: 1, WorkerPoolSize: runtimeCfg.WorkerPoolSize}
	if manifest.Simulate != nil {
		simCfg = sim.Config{
			Executions:     manifest.Simulate.Executions,
			WorkerPoolSize: manifest.Simulate.WorkerPoolSize,
			FailEvery:      manifest.Simulate.FailEvery,
			Seed:           manifest.Simulate.Seed,
			Jitter:         manifest.Simulate.Jitter,
		}
		if simCfg.WorkerPoolSize <= 0 {
			simCfg.WorkerPoolSize = runtimeCfg.WorkerPoolSize
		}
	}

	runner := sim.NewRunner(a.Tracer(), a.Registry(), simCfg,
		sim.WithLogger(newZapLogger()),
		sim.WithOTel(otelRuntime.Tracer),
	)
	execs, err := runner.Run(context.Background(), w)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	if tracePath := os.Getenv("TRACE_OUTPUT"); tracePath != "" && len(execs) > 0 {
		if err := trace.SaveToFile(tracePath, execs[0].Trace); err != nil {
			return fmt.Errorf("persist trace: %w", err)
		}
	}

	result, err := a.AnalyzeWorkflow(w.ID)
	if err != nil {
		return err
	}
	writeAnalysis(out, result)

	optimized, strategies, err := a.OptimizeWorkflow(w)
	if err != nil {
		return err
	}
	writeOptimization(out, optimized, strategies)

	snap := memRecorder.Snapshot()
	_, _ = fmt.Fprintf(out, "metrics steps=%d errors=%d forced_closes=%d executions=%d\n",
		snap.TotalSteps, snap.ErrorSteps, snap.ForcedCloses, snap.TotalExecutions)
	return nil
}

// OptimizeManifest runs the dry structural pass only: no executions, the
// declared agent profiles are the estimate baseline.
func OptimizeManifest(manifestPath string, out io.Writer) (retErr error) {
	logger := audit.NewLogger(strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH")))
	defer func() {
		status := "success"
		if retErr != nil {
			status = "error"
		}
		_ = logger.Write("optimize", "", manifestPath, status, retErr)
	}()

	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	w := config.BuildWorkflow(manifest)

	a := analyzer.New(analyzer.WithPlannerConfig(manifest.Analyzer.PlannerConfig()))
	defer a.Dispose()
	for _, ag := range config.BuildAgents(manifest) {
		if err := a.RegisterAgent(ag); err != nil {
			return fmt.Errorf("register agent %q: %w", ag.ID, err)
		}
	}

	optimized, strategies, err := a.OptimizeWorkflow(w)
	if err != nil {
		return err
	}
	writeOptimization(out, optimized, strategies)
	return nil
}

// ReplayTrace loads a persisted frozen trace and re-runs the analysis over
// it, without driving any execution. The manifest is optional and supplies
// agent cost profiles plus detector thresholds; without one, the zero-cost
// fallback and the default thresholds apply.
func ReplayTrace(tracePath string, manifestPath string, out io.Writer) (retErr error) {
	logger := audit.NewLogger(strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH")))
	defer func() {
		status := "success"
		if retErr != nil {
			status = "error"
		}
		_ = logger.Write("replay", "", tracePath, status, retErr)
	}()

	tr, err := trace.LoadFromFile(tracePath)
	if err != nil {
		return err
	}

	status := trace.StatusCompleted
	if tr.Failed() {
		status = trace.StatusFailed
	}
	exec := trace.Execution{
		ID:         tr.ID,
		WorkflowID: tr.WorkflowID,
		Status:     status,
		Start:      tr.Start,
		End:        tr.End,
		Trace:      tr,
	}

	var resolve analysis.ProfileResolver
	detector := workflow.DefaultDetectorConfig()
	if manifestPath != "" {
		manifest, err := config.LoadManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		registry := agent.NewRegistry()
		for _, ag := range config.BuildAgents(manifest) {
			if err := registry.Register(ag); err != nil {
				return fmt.Errorf("register agent %q: %w", ag.ID, err)
			}
		}
		resolve = registry.Profile
		detector = manifest.Analyzer.DetectorConfig()
	}

	result := analysis.Aggregate(tr.WorkflowID, []trace.Execution{exec}, resolve, detector)
	writeAnalysis(out, result)
	return nil
}

// DiffTraces loads two persisted traces and reports their step-level
// divergences.
func DiffTraces(expectedPath string, actualPath string, out io.Writer) error {
	expected, err := trace.LoadFromFile(expectedPath)
	if err != nil {
		return err
	}
	actual, err := trace.LoadFromFile(actualPath)
	if err != nil {
		return err
	}

	divs := trace.Compare(expected, actual)
	if len(divs) == 0 {
		_, _ = fmt.Fprintln(out, "traces are equivalent")
		return nil
	}
	for _, d := range divs {
		_, _ = fmt.Fprintf(out, "step=%s field=%s expected=%q actual=%q\n",
			d.StepID, d.Field, d.Expected, d.Actual)
	}
	_, _ = fmt.Fprintf(out, "%d divergence(s)\n", len(divs))
	return nil
}

// ValidateManifest loads and validates a manifest only.
func ValidateManifest(manifestPath string) (retErr error) {
	logger := audit.NewLogger(strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH")))
	defer func() {
		status := "success"
		if retErr != nil {
			status = "error"
		}
		_ = logger.Write("validate", "", manifestPath, status, retErr)
	}()

	if _, err := config.LoadManifest(manifestPath); err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	return nil
}

// GraphManifest writes the workflow dependency graph in DOT format,
// optionally after applying the optimization pass.
func GraphManifest(manifestPath string, optimized bool, out io.Writer) error {
	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	w := config.BuildWorkflow(manifest)

	if optimized {
		a := analyzer.New(analyzer.WithPlannerConfig(manifest.Analyzer.PlannerConfig()))
		defer a.Dispose()
		for _, ag := range config.BuildAgents(manifest) {
			if err := a.RegisterAgent(ag); err != nil {
				return fmt.Errorf("register agent %q: %w", ag.ID, err)
			}
		}
		w, _, err = a.OptimizeWorkflow(w)
		if err != nil {
			return err
		}
	}

	dot, err := planner.DOT(w)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, dot)
	return nil
}

func newZapLogger() *zap.Logger {
	if envBool("DEBUG") {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func envBool(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
