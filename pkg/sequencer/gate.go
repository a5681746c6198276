// Package sequencer serializes the side effects of concurrently running
// session tasks.
//
// A Gate holds a single ticket. Whichever task's wait is scheduled next gets
// the ticket, so side effects are ordered by completion of the preceding
// work, not by submission. Remote calls happen outside of any gate and
// overlap freely.
package sequencer

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate is a single-ticket turnstile.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Acquire waits for the ticket. The returned release func must be called
// exactly once.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

// Do runs fn while holding the ticket. The ticket is returned on every exit
// path, including a panic in fn.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	release, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Sequencer holds the two independent gates of a run: one for console
// output and one for mutating the local store.
type Sequencer struct {
	Print    *Gate
	Mutation *Gate
}

func New() *Sequencer {
	return &Sequencer{Print: NewGate(), Mutation: NewGate()}
}
