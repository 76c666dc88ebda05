package state

import (
	"context"
	"errors"
)

// ErrShutdown is returned for mutations submitted after the ledger has
// been shut down.
var ErrShutdown = errors.New("ledger is shut down")

// queueDepth is how many mutations can wait in line before submitters
// block on the channel itself.
const queueDepth = 128

// operation is one structural mutation waiting for its turn.
type operation struct {
	name   string
	fn     func() error
	result chan error
}

// mutationQueue admits exactly one in-flight mutation at a time. A single
// goroutine drains the channel in order, so two concurrent mine/add/import
// calls can never interleave their balance folds or chain appends.
type mutationQueue struct {
	ops       chan operation
	shut      chan struct{}
	done      chan struct{}
	evHandler EventHandler
}

func newMutationQueue(evHandler EventHandler) *mutationQueue {
	q := mutationQueue{
		ops:       make(chan operation, queueDepth),
		shut:      make(chan struct{}),
		done:      make(chan struct{}),
		evHandler: evHandler,
	}

	go q.run()

	return &q
}

// run is the single goroutine executing mutations in FIFO order.
func (q *mutationQueue) run() {
	defer close(q.done)

	for {
		select {
		case op := <-q.ops:
			q.evHandler("queue: run: executing[%s]", op.name)
			op.result <- op.fn()

		case <-q.shut:

			// Fail anything still waiting in line.
			for {
				select {
				case op := <-q.ops:
					op.result <- ErrShutdown
				default:
					return
				}
			}
		}
	}
}

// submit places a mutation at the back of the queue and blocks until it
// has run. The context is honored while waiting in line; once the
// mutation is admitted it runs to completion and its result is returned.
func (q *mutationQueue) submit(ctx context.Context, name string, fn func() error) error {
	op := operation{
		name:   name,
		fn:     fn,
		result: make(chan error, 1),
	}

	select {
	case q.ops <- op:
	case <-q.shut:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-op.result:
		return err
	case <-q.done:
		return ErrShutdown
	}
}

// shutdown stops the queue goroutine and waits for it to drain.
func (q *mutationQueue) shutdown() {
	close(q.shut)
	<-q.done
}
