package planner

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

// DOT renders the workflow dependency graph in Graphviz format. Declared
// dependencies are solid edges; the implicit sequential chain is dashed.
// Steps in the same concurrent group share a fill color and cache lookups
// are drawn as ellipses.
func DOT(w workflow.Workflow) (string, error) {
	if _, err := Build(w, false); err != nil {
		return "", fmt.Errorf("dot %q: %w", w.ID, err)
	}

	g := gographviz.NewGraph()
	name := strconv.Quote(w.ID)
	if err := g.SetName(name); err != nil {
		return "", fmt.Errorf("dot: set name: %w", err)
	}
	if err := g.SetDir(true); err != nil {
		return "", fmt.Errorf("dot: set directed: %w", err)
	}

	for _, s := range w.Steps {
		attrs := map[string]string{
			"label": strconv.Quote(fmt.Sprintf("%s\\n%s", s.ID, s.AgentID)),
			"shape": "box",
		}
		if s.CacheOf != "" {
			attrs["shape"] = "ellipse"
			attrs["label"] = strconv.Quote(fmt.Sprintf("%s\\ncache of %s", s.ID, s.CacheOf))
		}
		if s.ConcurrentGroup != "" {
			attrs["style"] = strconv.Quote("filled")
			attrs["fillcolor"] = strconv.Quote("lightblue")
		}
		if err := g.AddNode(name, strconv.Quote(s.ID), attrs); err != nil {
			return "", fmt.Errorf("dot: add node %q: %w", s.ID, err)
		}
	}

	for i, s := range w.Steps {
		if len(s.DependsOn) == 0 {
			if i > 0 && s.ConcurrentGroup == "" && s.CacheOf == "" {
				prev := w.Steps[i-1].ID
				if err := g.AddEdge(strconv.Quote(prev), strconv.Quote(s.ID), true, map[string]string{"style": strconv.Quote("dashed")}); err != nil {
					return "", fmt.Errorf("dot: add chain edge: %w", err)
				}
			}
			continue
		}
		for _, dep := range s.DependsOn {
			if err := g.AddEdge(strconv.Quote(dep), strconv.Quote(s.ID), true, nil); err != nil {
				return "", fmt.Errorf("dot: add edge %s->%s: %w", dep, s.ID, err)
			}
		}
	}

	return g.String(), nil
}
