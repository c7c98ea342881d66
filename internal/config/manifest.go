package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/your-org/workflow-analyzer/internal/ident"
	"github.com/your-org/workflow-analyzer/internal/planner"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

var (
	ErrManifestEmptyAgents = errors.New("manifest: agents list is empty")
	ErrManifestEmptySteps  = errors.New("manifest: steps list is empty")
)

// Manifest is the on-disk workflow description consumed by the CLI shim.
// The core library accepts the in-memory equivalent only; this file format
// never leaks past the boundary.
type Manifest struct {
	Workflow WorkflowSettings `yaml:"workflow"`
	Agents   []AgentSpec      `yaml:"agents"`
	Steps    []StepSpec       `yaml:"steps"`
	Simulate *SimulateSpec    `yaml:"simulate,omitempty"`
	Analyzer AnalyzerSettings `yaml:"analyzer"`
}

// WorkflowSettings names the workflow.
type WorkflowSettings struct {
	ID string `yaml:"id"`
}

// AgentSpec declares one agent with its baseline profile.
type AgentSpec struct {
	ID                   string   `yaml:"id"`
	Capabilities         []string `yaml:"capabilities,omitempty"`
	USDPerThousandTokens float64  `yaml:"usd_per_thousand_tokens"`
	BaseLatency          string   `yaml:"base_latency,omitempty"`
	LatencyPerKiloToken  string   `yaml:"latency_per_kilo_token,omitempty"`
}

// StepSpec declares one step of the workflow.
type StepSpec struct {
	ID           string   `yaml:"id"`
	Agent        string   `yaml:"agent"`
	InputTokens  int      `yaml:"input_tokens,omitempty"`
	OutputTokens int      `yaml:"output_tokens,omitempty"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
}

// SimulateSpec drives synthetic executions through the tracer.
type SimulateSpec struct {
	Executions     int     `yaml:"executions"`
	WorkerPoolSize int     `yaml:"worker_pool_size,omitempty"`
	FailEvery      int     `yaml:"fail_every,omitempty"`
	Seed           int64   `yaml:"seed,omitempty"`
	Jitter         float64 `yaml:"jitter,omitempty"`
}

// AnalyzerSettings tunes detection and planning thresholds.
type AnalyzerSettings struct {
	BottleneckThresholdPct float64 `yaml:"bottleneck_threshold_pct,omitempty"`
	BottleneckTopK         int     `yaml:"bottleneck_top_k,omitempty"`
	BatchDiscount          float64 `yaml:"batch_discount,omitempty"`
}

// LoadManifest parses and validates a YAML workflow manifest.
func LoadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read %q: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: unmarshal %q: %w", path, err)
	}

	if err := ValidateManifest(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ValidateManifest enforces structural correctness before any execution or
// analysis. The core never sees an unvalidated manifest.
func ValidateManifest(m Manifest) error {
	if m.Workflow.ID == "" {
		return errors.New("manifest: workflow.id is empty")
	}
	if err := ident.Validate(m.Workflow.ID); err != nil {
		return fmt.Errorf("manifest: invalid workflow.id: %w", err)
	}
	if len(m.Agents) == 0 {
		return ErrManifestEmptyAgents
	}
	if len(m.Steps) == 0 {
		return ErrManifestEmptySteps
	}

	agents := make(map[string]struct{}, len(m.Agents))
	for _, a := range m.Agents {
		if a.ID == "" {
			return errors.New("manifest: agent id is empty")
		}
		if err := ident.Validate(a.ID); err != nil {
			return fmt.Errorf("manifest: invalid agent id: %w", err)
		}
		key := ident.Normalize(a.ID)
		if _, exists := agents[key]; exists {
			return fmt.Errorf("manifest: duplicate agent id %q", a.ID)
		}
		agents[key] = struct{}{}

		if a.USDPerThousandTokens < 0 {
			return fmt.Errorf("manifest: agent %q has negative usd_per_thousand_tokens", a.ID)
		}
		for _, field := range []string{a.BaseLatency, a.LatencyPerKiloToken} {
			if field == "" {
				continue
			}
			if _, err := time.ParseDuration(field); err != nil {
				return fmt.Errorf("manifest: agent %q has invalid latency value %q: %w", a.ID, field, err)
			}
		}
	}

	steps := make(map[string]struct{}, len(m.Steps))
	for _, s := range m.Steps {
		if s.ID == "" {
			return errors.New("manifest: step id is empty")
		}
		if _, exists := steps[s.ID]; exists {
			return fmt.Errorf("manifest: duplicate step id %q", s.ID)
		}
		if _, ok := agents[ident.Normalize(s.Agent)]; !ok {
			return fmt.Errorf("manifest: step %q references unknown agent %q", s.ID, s.Agent)
		}
		if s.InputTokens < 0 || s.OutputTokens < 0 {
			return fmt.Errorf("manifest: step %q has negative token counts", s.ID)
		}
		steps[s.ID] = struct{}{}
	}

	for _, s := range m.Steps {
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return fmt.Errorf("manifest: step %q cannot depend on itself", s.ID)
			}
			if _, ok := steps[dep]; !ok {
				return fmt.Errorf("manifest: step %q depends on unknown step %q", s.ID, dep)
			}
		}
	}

	if m.Simulate != nil {
		if m.Simulate.Executions <= 0 {
			return errors.New("manifest: simulate.executions must be positive")
		}
		if m.Simulate.Jitter < 0 || m.Simulate.Jitter > 1 {
			return errors.New("manifest: simulate.jitter must be within [0,1]")
		}
	}

	// Cycle detection over the declared dependency graph.
	if _, err := planner.Build(BuildWorkflow(m), false); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// BuildWorkflow converts the manifest into the core's in-memory workflow.
func BuildWorkflow(m Manifest) workflow.Workflow {
	w := workflow.Workflow{ID: ident.Normalize(m.Workflow.ID)}
	for _, s := range m.Steps {
		w.Steps = append(w.Steps, workflow.Step{
			ID:           s.ID,
			AgentID:      ident.Normalize(s.Agent),
			InputTokens:  s.InputTokens,
			OutputTokens: s.OutputTokens,
			DependsOn:    append([]string(nil), s.DependsOn...),
		})
	}
	return w
}

// BuildAgents converts the manifest's agent specs into registry entries.
func BuildAgents(m Manifest) []workflow.Agent {
	out := make([]workflow.Agent, 0, len(m.Agents))
	for _, a := range m.Agents {
		profile := workflow.Profile{USDPerThousandTokens: a.USDPerThousandTokens}
		if a.BaseLatency != "" {
			if d, err := time.ParseDuration(a.BaseLatency); err == nil {
				profile.BaseLatency = d
			}
		}
		if a.LatencyPerKiloToken != "" {
			if d, err := time.ParseDuration(a.LatencyPerKiloToken); err == nil {
				profile.LatencyPerKiloToken = d
			}
		}
		out = append(out, workflow.Agent{
			ID:           ident.Normalize(a.ID),
			Capabilities: append([]string(nil), a.Capabilities...),
			Profile:      profile,
		})
	}
	return out
}

// DetectorConfig resolves manifest overrides on top of the defaults.
func (s AnalyzerSettings) DetectorConfig() workflow.DetectorConfig {
	cfg := workflow.DefaultDetectorConfig()
	if s.BottleneckThresholdPct > 0 {
		cfg.ThresholdPct = s.BottleneckThresholdPct
	}
	if s.BottleneckTopK > 0 {
		cfg.TopK = s.BottleneckTopK
	}
	return cfg
}

// PlannerConfig resolves manifest overrides on top of the defaults.
func (s AnalyzerSettings) PlannerConfig() workflow.PlannerConfig {
	cfg := workflow.DefaultPlannerConfig()
	if s.BatchDiscount > 0 && s.BatchDiscount < 1 {
		cfg.BatchDiscount = s.BatchDiscount
	}
	return cfg
}
