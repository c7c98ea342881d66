package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/your-org/workflow-analyzer/pkg/workflow"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	a := workflow.Agent{
		ID:           "Classifier",
		Capabilities: []string{"triage"},
		Profile:      workflow.Profile{BaseLatency: 20 * time.Millisecond},
	}
	if err := r.Register(a); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Lookup is case-insensitive through normalization.
	got, err := r.Lookup("classifier")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != "classifier" {
		t.Fatalf("stored id = %q, want normalized", got.ID)
	}
	if got.Profile.BaseLatency != 20*time.Millisecond {
		t.Fatalf("profile lost: %+v", got.Profile)
	}
}

func TestRegisterRejectsDuplicatesAndBadIDs(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(workflow.Agent{}); !errors.Is(err, ErrEmptyAgentID) {
		t.Fatalf("expected ErrEmptyAgentID, got %v", err)
	}
	if err := r.Register(workflow.Agent{ID: "bad id!"}); err == nil {
		t.Fatalf("invalid identifier accepted")
	}

	if err := r.Register(workflow.Agent{ID: "drafter"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(workflow.Agent{ID: "Drafter"}); !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("expected ErrDuplicateAgent, got %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestProfileFallsBackToZero(t *testing.T) {
	r := NewRegistry()
	if p := r.Profile("ghost"); p != (workflow.Profile{}) {
		t.Fatalf("unknown agent must resolve to the zero profile, got %+v", p)
	}

	r.Register(workflow.Agent{ID: "a", Profile: workflow.Profile{USDPerThousandTokens: 3}})
	if p := r.Profile("a"); p.USDPerThousandTokens != 3 {
		t.Fatalf("profile not resolved: %+v", p)
	}

	r.Clear()
	if _, err := r.Lookup("a"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("Clear left agents behind")
	}
}
