package trace

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveToFile persists a frozen trace as indented JSON. Callers persist
// finalized traces only; an execution still running would snapshot events
// that are still being stamped.
func SaveToFile(path string, tr ExecutionTrace) error {
	b, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("persist trace %q: %w", tr.ID, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("persist trace to %q: %w", path, err)
	}
	return nil
}

// LoadFromFile reads a trace written by SaveToFile back into memory, for
// offline replay analysis or divergence comparison.
func LoadFromFile(path string) (ExecutionTrace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExecutionTrace{}, fmt.Errorf("load trace from %q: %w", path, err)
	}
	var tr ExecutionTrace
	if err := json.Unmarshal(b, &tr); err != nil {
		return ExecutionTrace{}, fmt.Errorf("decode trace %q: %w", path, err)
	}
	return tr, nil
}
