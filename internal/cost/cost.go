package cost

import "fmt"

// Model prices agent work in USD per 1000 tokens. The zero value charges
// nothing, which is the documented fallback for agents with no profile.
type Model struct {
	USDPerThousand float64
}

func NewModel(usdPerThousand float64) (Model, error) {
	if usdPerThousand < 0 {
		return Model{}, fmt.Errorf("negative price is invalid")
	}
	return Model{USDPerThousand: usdPerThousand}, nil
}

// Charge returns the USD cost of processing the given token volume.
func (m Model) Charge(tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	return (float64(tokens) / 1000.0) * m.USDPerThousand
}
