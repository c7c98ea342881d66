package ident

import "testing"

func TestNormalize(t *testing.T) {
	if got := Normalize("  Support-Triage "); got != "support-triage" {
		t.Fatalf("normalize = %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := []string{"a", "classifier", "step-1", "wf.prod_2", "0x"}
	for _, id := range valid {
		if err := Validate(id); err != nil {
			t.Fatalf("%q rejected: %v", id, err)
		}
	}

	invalid := []string{"", "-leading", ".dot", "has space", "UPPER!", "päck"}
	for _, id := range invalid {
		if err := Validate(id); err == nil {
			t.Fatalf("%q accepted", id)
		}
	}
}
