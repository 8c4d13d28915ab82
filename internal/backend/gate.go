package backend

import "context"

// gate serializes generations against a non-reentrant backend: one in-flight
// generation at a time, waiters admitted in arrival order. This is the
// broker's backpressure point; waiters are never dropped or reordered, they
// hold their slot until admitted or their context is canceled.
type gate struct {
	slot chan struct{}
}

func newGate() *gate {
	return &gate{slot: make(chan struct{}, 1)}
}

// acquire blocks until the in-flight slot is free. The returned release func
// must be called exactly once when the generation finishes.
func (g *gate) acquire(ctx context.Context) (func(), error) {
	// Respect an already-canceled context before queueing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case g.slot <- struct{}{}:
		return func() { <-g.slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
