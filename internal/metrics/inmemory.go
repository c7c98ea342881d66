package metrics

import (
	"sync"
	"time"
)

// AgentStats aggregates raw counters per agent.
type AgentStats struct {
	Successes    int64
	Errors       int64
	ForcedCloses int64
}

// Snapshot is a point-in-time copy of the in-memory counters.
type Snapshot struct {
	TotalSteps      int64
	ErrorSteps      int64
	ForcedCloses    int64
	TotalExecutions int64
	ByAgent         map[string]AgentStats
}

// InMemoryRecorder counts steps and executions for run summaries.
type InMemoryRecorder struct {
	mu         sync.Mutex
	steps      int64
	errorSteps int64
	forced     int64
	executions int64
	byAgent    map[string]AgentStats
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{byAgent: make(map[string]AgentStats)}
}

func (r *InMemoryRecorder) ObserveStep(agentID string, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps++
	s := r.byAgent[agentID]
	if status == "success" {
		s.Successes++
	} else {
		r.errorSteps++
		s.Errors++
	}
	r.byAgent[agentID] = s
}

func (r *InMemoryRecorder) ObserveExecution(string, string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions++
}

func (r *InMemoryRecorder) ObserveForcedClose(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.forced++
	s := r.byAgent[agentID]
	s.ForcedCloses++
	r.byAgent[agentID] = s
}

func (r *InMemoryRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAgent := make(map[string]AgentStats, len(r.byAgent))
	for k, v := range r.byAgent {
		byAgent[k] = v
	}
	return Snapshot{
		TotalSteps:      r.steps,
		ErrorSteps:      r.errorSteps,
		ForcedCloses:    r.forced,
		TotalExecutions: r.executions,
		ByAgent:         byAgent,
	}
}
