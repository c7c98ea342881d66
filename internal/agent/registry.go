package agent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/your-org/workflow-analyzer/internal/ident"
	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

var (
	ErrEmptyAgentID   = errors.New("agent id is empty")
	ErrDuplicateAgent = errors.New("agent id already registered")
	ErrUnknownAgent   = errors.New("agent not registered")
)

// Registry stores immutable agent descriptors by ID. Re-registration under
// the same id is rejected so cost/latency baselines stay stable across an
// analysis session.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]workflow.Agent
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]workflow.Agent)}
}

func (r *Registry) Register(a workflow.Agent) error {
	if a.ID == "" {
		return ErrEmptyAgentID
	}
	if err := ident.Validate(a.ID); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	key := ident.Normalize(a.ID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, key)
	}
	a.ID = key
	a.Capabilities = append([]string(nil), a.Capabilities...)
	r.agents[key] = a
	return nil
}

func (r *Registry) Lookup(agentID string) (workflow.Agent, error) {
	key := ident.Normalize(agentID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[key]
	if !ok {
		return workflow.Agent{}, fmt.Errorf("%w: %s", ErrUnknownAgent, key)
	}
	return a, nil
}

// Profile resolves an agent's declared profile, falling back to the
// zero-cost default when the agent is unknown. Analysis must never fail
// solely due to incomplete agent metadata.
func (r *Registry) Profile(agentID string) workflow.Profile {
	a, err := r.Lookup(agentID)
	if err != nil {
		return workflow.Profile{}
	}
	return a.Profile
}

// Clear drops every registered agent. Used by Dispose.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]workflow.Agent)
}
