package fanout

import "context"

// queue is an unbounded per-group FIFO of *Operation. Enqueue never
// blocks on a full buffer (there is none); dequeue blocks until an item
// is available. Cancelling ctx stops new enqueues and, once the
// already-buffered items have been drained through out, closes out.
type queue struct {
	in  chan *Operation
	out chan *Operation
}

func newQueue(ctx context.Context) *queue {
	q := &queue{
		in:  make(chan *Operation),
		out: make(chan *Operation),
	}
	go q.pump(ctx)
	return q
}

func (q *queue) pump(ctx context.Context) {
	var buf []*Operation
	inCh := q.in
	doneCh := ctx.Done()

	for {
		var outCh chan *Operation
		var next *Operation
		if len(buf) > 0 {
			outCh = q.out
			next = buf[0]
		} else if inCh == nil {
			close(q.out)
			return
		}

		select {
		case op := <-inCh:
			buf = append(buf, op)
		case outCh <- next:
			buf = buf[1:]
		case <-doneCh:
			inCh = nil
			doneCh = nil
		}
	}
}

// push enqueues op. It only blocks momentarily on the pump goroutine's
// select loop, never on queue depth; it gives up silently if ctx is
// cancelled first (the group is shutting down).
func (q *queue) push(ctx context.Context, op *Operation) {
	select {
	case q.in <- op:
	case <-ctx.Done():
	}
}
