package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/your-org/workflow-analyzer/internal/analysis"
	"github.com/your-org/workflow-analyzer/internal/cost"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// Strategy is a structural rewrite rule applied to a workflow.
type Strategy string

const (
	StrategyParallelization Strategy = "parallelization"
	StrategyCaching         Strategy = "caching"
	StrategyBatching        Strategy = "batching"
)

// Result is one applied strategy with its predicted improvement relative to
// the unoptimized baseline.
type Result struct {
	Strategy            Strategy `json:"strategy"`
	Steps               []string `json:"steps"`
	LatencyReductionPct float64  `json:"latency_reduction_pct"`
	CostReductionPct    float64  `json:"cost_reduction_pct"`
	Detail              string   `json:"detail,omitempty"`
}

// Planner rewrites workflows. It is pure computation over the workflow
// definition and aggregated metrics; it never mutates its input.
type Planner struct {
	cfg     workflow.PlannerConfig
	resolve analysis.ProfileResolver
}

func New(cfg workflow.PlannerConfig, resolve analysis.ProfileResolver) *Planner {
	if cfg.BatchDiscount <= 0 || cfg.BatchDiscount >= 1 {
		cfg.BatchDiscount = workflow.DefaultPlannerConfig().BatchDiscount
	}
	if resolve == nil {
		resolve = func(string) workflow.Profile { return workflow.Profile{} }
	}
	return &Planner{cfg: cfg, resolve: resolve}
}

// Optimize applies the strategies in fixed priority order, each evaluated
// against the current (possibly already-rewritten) workflow so later
// strategies see the effect of earlier ones. When no precondition holds the
// input workflow is returned unchanged with an empty result list; identity
// optimization is valid output, not an error.
func (p *Planner) Optimize(w workflow.Workflow, hist *analysis.Result) (workflow.Workflow, []Result, error) {
	if _, err := Build(w, false); err != nil {
		return workflow.Workflow{}, nil, fmt.Errorf("optimize %q: %w", w.ID, err)
	}

	base := p.baseline(w, hist)
	out := w.Clone()
	results := make([]Result, 0)

	if r, ok := p.parallelize(&out, base); ok {
		results = append(results, r)
	}
	if r, ok := p.cache(&out, base); ok {
		results = append(results, r)
	}
	if r, ok := p.batch(&out, base); ok {
		results = append(results, r)
	}
	return out, results, nil
}

// baseline holds per-step latency/cost estimates used for predictions.
// Historical metrics win when supplied; otherwise declared agent profiles
// provide the dry structural estimate.
type baseline struct {
	latency      map[string]time.Duration
	cost         map[string]float64
	totalLatency time.Duration
	totalCost    float64
}

func (p *Planner) baseline(w workflow.Workflow, hist *analysis.Result) baseline {
	b := baseline{
		latency: make(map[string]time.Duration, len(w.Steps)),
		cost:    make(map[string]float64, len(w.Steps)),
	}

	measured := make(map[string]analysis.StepStat)
	if hist != nil && hist.Executions > 0 {
		for _, s := range hist.Steps {
			measured[s.StepID] = s
		}
	}

	for _, s := range w.Steps {
		if m, ok := measured[s.ID]; ok {
			b.latency[s.ID] = m.AverageLatency
			b.cost[s.ID] = m.AverageCost
			continue
		}
		profile := p.resolve(s.AgentID)
		tokens := s.InputTokens + s.OutputTokens
		b.latency[s.ID] = profile.EstimateLatency(tokens)
		b.cost[s.ID] = cost.Model{USDPerThousand: profile.USDPerThousandTokens}.Charge(tokens)
	}

	if hist != nil && hist.Executions > 0 {
		b.totalLatency = hist.TotalLatency
		b.totalCost = hist.TotalCost
		return b
	}
	for _, s := range w.Steps {
		b.totalLatency += b.latency[s.ID]
		b.totalCost += b.cost[s.ID]
	}
	return b
}

// parallelize groups steps with no transitive dependency between them.
// Topological levels of the declared graph are used: same-level steps are
// mutually unreachable by construction. Predicted latency reduction is
// (sum - max) / total for each group; cost is unchanged because
// parallelization does not change total work.
func (p *Planner) parallelize(w *workflow.Workflow, base baseline) (Result, bool) {
	g, err := Build(*w, false)
	if err != nil {
		return Result{}, false
	}

	grouped := make([]string, 0)
	var saved time.Duration
	groupNum := 0

	for _, level := range g.Levels() {
		candidates := make([]string, 0, len(level))
		for _, id := range level {
			step, ok := w.Step(id)
			if ok && step.ConcurrentGroup == "" {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) < 2 {
			continue
		}

		groupNum++
		group := fmt.Sprintf("parallel-%d", groupNum)
		var sum, max time.Duration
		for _, id := range candidates {
			for i := range w.Steps {
				if w.Steps[i].ID == id {
					w.Steps[i].ConcurrentGroup = group
				}
			}
			lat := base.latency[id]
			sum += lat
			if lat > max {
				max = lat
			}
			grouped = append(grouped, id)
		}
		saved += sum - max
	}

	if len(grouped) == 0 {
		return Result{}, false
	}
	sort.Strings(grouped)
	return Result{
		Strategy:            StrategyParallelization,
		Steps:               grouped,
		LatencyReductionPct: pct(float64(saved), float64(base.totalLatency)),
		CostReductionPct:    0,
		Detail:              fmt.Sprintf("%d concurrent group(s)", groupNum),
	}, true
}

// cache collapses repeated (agent, input) pairs into cache-lookup markers.
// The first occurrence keeps executing; later occurrences short-circuit.
// Predicted reductions are the elided calls' share of the baseline totals.
func (p *Planner) cache(w *workflow.Workflow, base baseline) (Result, bool) {
	firstBySignature := make(map[string]string)
	elided := make([]string, 0)
	var latSaved time.Duration
	var costSaved float64

	for i := range w.Steps {
		s := &w.Steps[i]
		if s.CacheOf != "" {
			continue
		}
		sig := fmt.Sprintf("%s/%d", s.AgentID, s.InputTokens)
		first, seen := firstBySignature[sig]
		if !seen {
			firstBySignature[sig] = s.ID
			continue
		}
		s.CacheOf = first
		elided = append(elided, s.ID)
		latSaved += base.latency[s.ID]
		costSaved += base.cost[s.ID]
	}

	if len(elided) == 0 {
		return Result{}, false
	}
	return Result{
		Strategy:            StrategyCaching,
		Steps:               elided,
		LatencyReductionPct: pct(float64(latSaved), float64(base.totalLatency)),
		CostReductionPct:    pct(costSaved, base.totalCost),
		Detail:              fmt.Sprintf("%d repeated call(s) served from cache", len(elided)),
	}, true
}

// batch merges consecutive steps that share an agent and have no
// intervening dependency on another agent's output. Each merge is predicted
// to save a fixed fraction (PlannerConfig.BatchDiscount) of the merged
// pair's combined baseline, the documented stand-in for a richer sub-linear
// scaling model.
func (p *Planner) batch(w *workflow.Workflow, base baseline) (Result, bool) {
	lat := make(map[string]time.Duration, len(base.latency))
	for k, v := range base.latency {
		lat[k] = v
	}
	costs := make(map[string]float64, len(base.cost))
	for k, v := range base.cost {
		costs[k] = v
	}

	merged := make([]string, 0)
	var latSaved time.Duration
	var costSaved float64
	merges := 0

	steps := w.Steps
	for i := 1; i < len(steps); {
		prev, curr := &steps[i-1], steps[i]
		if !mergeable(*prev, curr) {
			i++
			continue
		}

		prev.InputTokens += curr.InputTokens
		prev.OutputTokens += curr.OutputTokens
		prev.MergedFrom = append(prev.MergedFrom, curr.ID)
		prev.MergedFrom = append(prev.MergedFrom, curr.MergedFrom...)

		combinedLat := lat[prev.ID] + lat[curr.ID]
		combinedCost := costs[prev.ID] + costs[curr.ID]
		latSaved += time.Duration(float64(combinedLat) * p.cfg.BatchDiscount)
		costSaved += combinedCost * p.cfg.BatchDiscount
		lat[prev.ID] = time.Duration(float64(combinedLat) * (1 - p.cfg.BatchDiscount))
		costs[prev.ID] = combinedCost * (1 - p.cfg.BatchDiscount)

		steps = append(steps[:i], steps[i+1:]...)
		rewireDeps(steps, curr.ID, prev.ID)
		if !contains(merged, prev.ID) {
			merged = append(merged, prev.ID)
		}
		merges++
	}
	w.Steps = steps

	if merges == 0 {
		return Result{}, false
	}
	return Result{
		Strategy:            StrategyBatching,
		Steps:               merged,
		LatencyReductionPct: pct(float64(latSaved), float64(base.totalLatency)),
		CostReductionPct:    pct(costSaved, base.totalCost),
		Detail:              fmt.Sprintf("%d merge(s) at %.0f%% discount", merges, p.cfg.BatchDiscount*100),
	}, true
}

// mergeable holds when the second step consumes nothing produced outside
// the pair: same agent, not a cache lookup, and depending at most on its
// predecessor.
func mergeable(prev workflow.Step, curr workflow.Step) bool {
	if prev.AgentID != curr.AgentID || prev.CacheOf != "" || curr.CacheOf != "" {
		return false
	}
	for _, dep := range curr.DependsOn {
		if dep != prev.ID {
			return false
		}
	}
	return true
}

func rewireDeps(steps []workflow.Step, from string, to string) {
	for i := range steps {
		for j, dep := range steps[i].DependsOn {
			if dep == from {
				steps[i].DependsOn[j] = to
			}
		}
		steps[i].DependsOn = dedup(steps[i].DependsOn, steps[i].ID)
	}
}

func dedup(deps []string, self string) []string {
	out := deps[:0]
	for _, d := range deps {
		if d == self || contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func pct(part float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// Describe renders a short human summary of applied strategies.
func Describe(results []Result) string {
	if len(results) == 0 {
		return "no applicable optimization"
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s latency=-%.1f%% cost=-%.1f%%", r.Strategy, r.LatencyReductionPct, r.CostReductionPct))
	}
	return strings.Join(parts, "; ")
}
