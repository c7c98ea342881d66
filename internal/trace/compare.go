package trace

import (
	"sort"
	"strconv"
)

// Divergence describes where two frozen traces differ for one step id.
type Divergence struct {
	StepID   string
	Field    string
	Expected string
	Actual   string
}

// Compare reports the step-level divergences between two frozen traces,
// the latest event per step id winning on each side. An empty list means
// the traces agree on every replay-significant field.
func Compare(expected ExecutionTrace, actual ExecutionTrace) []Divergence {
	expMap := latestByStep(expected)
	actMap := latestByStep(actual)

	ids := make([]string, 0, len(expMap)+len(actMap))
	seen := map[string]struct{}{}
	for id := range expMap {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range actMap {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]Divergence, 0)
	for _, id := range ids {
		e, eok := expMap[id]
		a, aok := actMap[id]
		if !eok {
			out = append(out, Divergence{StepID: id, Field: "missing_expected", Actual: a.AgentID})
			continue
		}
		if !aok {
			out = append(out, Divergence{StepID: id, Field: "missing_actual", Expected: e.AgentID})
			continue
		}
		if e.AgentID != a.AgentID {
			out = append(out, Divergence{StepID: id, Field: "agent_id", Expected: e.AgentID, Actual: a.AgentID})
		}
		if e.Success != a.Success {
			out = append(out, Divergence{StepID: id, Field: "success", Expected: strconv.FormatBool(e.Success), Actual: strconv.FormatBool(a.Success)})
		}
		if e.Error != a.Error {
			out = append(out, Divergence{StepID: id, Field: "error", Expected: e.Error, Actual: a.Error})
		}
		if e.InputTokens != a.InputTokens {
			out = append(out, Divergence{StepID: id, Field: "input_tokens", Expected: strconv.Itoa(e.InputTokens), Actual: strconv.Itoa(a.InputTokens)})
		}
		if e.OutputTokens != a.OutputTokens {
			out = append(out, Divergence{StepID: id, Field: "output_tokens", Expected: strconv.Itoa(e.OutputTokens), Actual: strconv.Itoa(a.OutputTokens)})
		}
	}
	return out
}

func latestByStep(tr ExecutionTrace) map[string]StepEvent {
	out := make(map[string]StepEvent, len(tr.Events))
	for _, ev := range tr.Events {
		out[ev.StepID] = ev
	}
	return out
}
