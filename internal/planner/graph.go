package planner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

var (
	ErrEmptyWorkflow = errors.New("workflow has no steps")
	ErrCycle         = errors.New("workflow dependency graph contains cycle")
)

// Graph is the dependency structure of a workflow: topological levels plus
// transitive reachability, used to decide which steps may run concurrently
// without breaking workflow semantics.
type Graph struct {
	Steps    []workflow.Step
	byID     map[string]workflow.Step
	children map[string][]string
	levels   [][]string
	reach    map[string]map[string]bool
}

// Build validates the declared dependency graph of the workflow and derives
// its topology. When sequentialDefault is set, steps with no declared
// dependencies are chained after their predecessor, which is the execution
// model the tracer assumes; the planner builds without it to reason about
// declared semantics only.
func Build(w workflow.Workflow, sequentialDefault bool) (Graph, error) {
	if len(w.Steps) == 0 {
		return Graph{}, ErrEmptyWorkflow
	}

	byID := make(map[string]workflow.Step, len(w.Steps))
	for _, s := range w.Steps {
		if s.ID == "" {
			return Graph{}, errors.New("workflow step has empty id")
		}
		if _, exists := byID[s.ID]; exists {
			return Graph{}, fmt.Errorf("workflow has duplicate step id %q", s.ID)
		}
		byID[s.ID] = s
	}

	deps := make(map[string][]string, len(w.Steps))
	for i, s := range w.Steps {
		if len(s.DependsOn) == 0 {
			if sequentialDefault && i > 0 {
				deps[s.ID] = []string{w.Steps[i-1].ID}
			}
			continue
		}
		for _, depID := range s.DependsOn {
			if depID == s.ID {
				return Graph{}, fmt.Errorf("step %q depends on itself", s.ID)
			}
			if _, ok := byID[depID]; !ok {
				return Graph{}, fmt.Errorf("step %q depends on unknown step %q", s.ID, depID)
			}
		}
		deps[s.ID] = append([]string(nil), s.DependsOn...)
	}

	inDegree := make(map[string]int, len(w.Steps))
	children := make(map[string][]string, len(w.Steps))
	for _, s := range w.Steps {
		inDegree[s.ID] = len(deps[s.ID])
		for _, depID := range deps[s.ID] {
			children[depID] = append(children[depID], s.ID)
		}
	}

	queue := make([]string, 0)
	for _, s := range w.Steps {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}
	sort.Strings(queue)

	visited := 0
	levels := make([][]string, 0)
	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		levels = append(levels, level)
		visited += len(level)

		next := make([]string, 0)
		for _, curr := range level {
			for _, child := range children[curr] {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}
	if visited != len(w.Steps) {
		return Graph{}, ErrCycle
	}

	g := Graph{
		Steps:    append([]workflow.Step(nil), w.Steps...),
		byID:     byID,
		children: children,
		levels:   levels,
	}
	g.reach = g.closure()
	return g, nil
}

// Levels returns the topological levels of the graph. Steps in the same
// level have no ordering relation between them.
func (g Graph) Levels() [][]string {
	return g.levels
}

// Reaches reports whether from can transitively reach to.
func (g Graph) Reaches(from string, to string) bool {
	return g.reach[from][to]
}

// Independent reports whether neither step can reach the other.
func (g Graph) Independent(a string, b string) bool {
	if a == b {
		return false
	}
	return !g.Reaches(a, b) && !g.Reaches(b, a)
}

func (g Graph) closure() map[string]map[string]bool {
	reach := make(map[string]map[string]bool, len(g.Steps))
	var visit func(set map[string]bool, id string)
	visit = func(set map[string]bool, id string) {
		for _, child := range g.children[id] {
			if !set[child] {
				set[child] = true
				visit(set, child)
			}
		}
	}
	for _, s := range g.Steps {
		set := make(map[string]bool)
		visit(set, s.ID)
		reach[s.ID] = set
	}
	return reach
}
