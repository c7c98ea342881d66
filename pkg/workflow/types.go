package workflow

import "time"

// Agent describes a reusable unit of capability referenced by workflow steps.
// Agents are immutable once registered.
type Agent struct {
	ID           string
	Capabilities []string
	Profile      Profile
}

// Profile is the declared cost/latency baseline for one agent. The zero
// value charges nothing and estimates nothing, which keeps analysis usable
// when agent metadata is incomplete.
type Profile struct {
	USDPerThousandTokens float64
	BaseLatency          time.Duration
	LatencyPerKiloToken  time.Duration
}

// EstimateLatency projects the declared latency of one invocation over a
// given token volume.
func (p Profile) EstimateLatency(tokens int) time.Duration {
	if tokens < 0 {
		tokens = 0
	}
	return p.BaseLatency + p.LatencyPerKiloToken*time.Duration(tokens)/1000
}

// Step is one planned agent invocation inside a workflow. Steps with an
// empty DependsOn list are sequential successors of the previous step.
type Step struct {
	ID           string
	AgentID      string
	InputTokens  int
	OutputTokens int
	DependsOn    []string

	// ConcurrentGroup tags steps rewritten into the same parallel group by
	// the planner. Empty for plain sequential steps.
	ConcurrentGroup string

	// CacheOf names the step whose result this step reuses after a caching
	// rewrite. A non-empty value marks a cache-lookup step.
	CacheOf string

	// MergedFrom lists the original step IDs folded into this step by a
	// batching rewrite.
	MergedFrom []string
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	out.DependsOn = append([]string(nil), s.DependsOn...)
	out.MergedFrom = append([]string(nil), s.MergedFrom...)
	return out
}

// Workflow is a graph of steps to be executed by agents. It is read-only to
// the analyzer; the planner clones it before rewriting.
type Workflow struct {
	ID    string
	Steps []Step
}

// Clone returns a deep copy of the workflow.
func (w Workflow) Clone() Workflow {
	out := Workflow{ID: w.ID, Steps: make([]Step, 0, len(w.Steps))}
	for _, s := range w.Steps {
		out.Steps = append(out.Steps, s.Clone())
	}
	return out
}

// Step returns the step with the given id, if present.
func (w Workflow) Step(id string) (Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// DetectorConfig tunes bottleneck classification.
type DetectorConfig struct {
	// ThresholdPct flags any step whose share of total latency exceeds it.
	ThresholdPct float64
	// TopK additionally flags the K slowest steps by average latency.
	TopK int
}

// DefaultDetectorConfig matches the documented policy: >20% share or the
// single slowest step.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{ThresholdPct: 20, TopK: 1}
}

// PlannerConfig tunes the optimization strategies.
type PlannerConfig struct {
	// BatchDiscount is the fraction of latency and cost saved per merge
	// when batching consecutive same-agent steps. The model assumes
	// sub-linear scaling with batch size; 0.10 is the documented default.
	BatchDiscount float64
}

// DefaultPlannerConfig returns the documented strategy defaults.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{BatchDiscount: 0.10}
}
