package cost

import "testing"

func TestCharge(t *testing.T) {
	m, err := NewModel(2.0)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if got := m.Charge(1500); got != 3.0 {
		t.Fatalf("charge(1500) = %f, want 3.0", got)
	}
	if got := m.Charge(0); got != 0 {
		t.Fatalf("charge(0) = %f", got)
	}
	if got := m.Charge(-10); got != 0 {
		t.Fatalf("negative tokens must charge nothing, got %f", got)
	}
}

func TestZeroModelChargesNothing(t *testing.T) {
	var m Model
	if got := m.Charge(100000); got != 0 {
		t.Fatalf("zero model charged %f", got)
	}
}

func TestNewModelRejectsNegativePrice(t *testing.T) {
	if _, err := NewModel(-0.5); err == nil {
		t.Fatalf("negative price accepted")
	}
}
