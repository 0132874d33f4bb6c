// Package fanout implements the Group Fan-out Engine: the per-group
// serialized operation queue, the worker that drains it, and the
// broadcast/edit/delete/pin/unpin strategies.
package fanout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/store"
)

// Kind tags an Operation with the strategy the Worker should dispatch to.
type Kind int

const (
	KindBroadcast Kind = iota
	KindEdit
	KindDelete
	KindPin
	KindUnpin
)

func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindEdit:
		return "edit"
	case KindDelete:
		return "delete"
	case KindPin:
		return "pin"
	case KindUnpin:
		return "unpin"
	default:
		return "unknown"
	}
}

// Operation is a queued unit of fan-out work, represented as a tagged
// variant rather than a class hierarchy.
type Operation struct {
	ID           uuid.UUID
	Kind         Kind
	GroupID      uuid.UUID
	Message      *store.Message // original message the operation targets
	ReplyTo      *store.Message // set only for a threaded Broadcast
	OriginatorID uuid.UUID      // member to skip for Broadcast/Edit
	Mask         string         // mask to prefix with for Broadcast/Edit
	Created      time.Time

	done chan struct{}
	once sync.Once

	// Requests/Errors are written only by the Worker goroutine processing
	// this operation and read only after done is closed, so no mutex is
	// needed: the channel close supplies the happens-before edge.
	Requests int
	Errors   int
}

// NewOperation builds an Operation ready to enqueue.
func NewOperation(kind Kind, groupID uuid.UUID) *Operation {
	return &Operation{
		ID:      store.GenID(),
		Kind:    kind,
		GroupID: groupID,
		Created: time.Now(),
		done:    make(chan struct{}),
	}
}

// finish signals completion exactly once, even if the Worker recovered
// from a panic while processing this operation.
func (op *Operation) finish() {
	op.once.Do(func() { close(op.done) })
}

// ErrTimeout is surfaced to a waiting caller when an operation does not
// complete within the hard 120s deadline. The Worker is not
// aborted; it continues processing in the background.
var ErrTimeout = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string { return "fanout: operation timed out" }

// DefaultWaitTimeout is the hard per-operation wait timeout.
const DefaultWaitTimeout = 120 * time.Second

// Wait blocks until the operation completes or timeout elapses,
// whichever comes first. It never aborts the underlying Worker.
func (op *Operation) Wait(timeout time.Duration) error {
	select {
	case <-op.done:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Done reports whether the operation has completed.
func (op *Operation) Done() bool {
	select {
	case <-op.done:
		return true
	default:
		return false
	}
}
