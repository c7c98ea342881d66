// Package channel holds small channel helpers shared by the simulator's
// fan-out paths.
package channel

// NewBufferedResultChannel allocates a result channel sized to the fan-out
// so producers never block on collection. A zero or negative size gets a
// floor of 1.
func NewBufferedResultChannel[T any](size int) chan T {
	if size <= 0 {
		size = 1
	}
	return make(chan T, size)
}
