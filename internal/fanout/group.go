package fanout

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/anonchat/goclaw-anon/internal/mask"
	"github.com/anonchat/goclaw-anon/internal/member"
	"github.com/anonchat/goclaw-anon/internal/store"
	"github.com/anonchat/goclaw-anon/internal/transport"
)

// Group owns one Telegram bot's operation queue and the single Worker
// goroutine draining it. Every group runs independently; ordering is
// only guaranteed within one Group.
type Group struct {
	ID        uuid.UUID
	Stores    *store.Stores
	Directory *member.Directory
	MaskPool  *mask.Pool
	Transport transport.Client
	Global    *Status
	Local     GroupStatus

	queue   *queue
	stopped chan struct{}
}

// NewGroup wires a Group's dependencies. global must be shared across
// every Group in the process (it is the single process-wide aggregator).
func NewGroup(ctx context.Context, id uuid.UUID, stores *store.Stores, dir *member.Directory, pool *mask.Pool, tc transport.Client, global *Status) *Group {
	return &Group{
		ID:        id,
		Stores:    stores,
		Directory: dir,
		MaskPool:  pool,
		Transport: tc,
		Global:    global,
		queue:     newQueue(ctx),
		stopped:   make(chan struct{}),
	}
}

// Enqueue is the non-blocking producer side of the Operation Queue.
func (g *Group) Enqueue(ctx context.Context, op *Operation) {
	g.queue.push(ctx, op)
}

// Run is the Worker: it drains the queue one operation at a time until
// the queue's context is cancelled and every buffered operation has been
// processed, then returns.
func (g *Group) Run(ctx context.Context) {
	defer close(g.stopped)
	for op := range g.queue.out {
		g.process(ctx, op)
	}
}

// Stopped reports whether Run has drained the queue and exited.
func (g *Group) Stopped() <-chan struct{} { return g.stopped }

func (g *Group) process(ctx context.Context, op *Operation) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("fanout: worker panic recovered",
				"group", g.ID, "op", op.Kind.String(), "recover", r, "stack", string(debug.Stack()))
		}
		op.finish()
	}()

	grp, err := g.Stores.Groups.Get(ctx, g.ID)
	if err != nil {
		slog.Warn("fanout: group lookup failed", "group", g.ID, "error", err)
		return
	}

	// A group-wide RECEIVE ban short-circuits the entire operation with
	// no recipients walked.
	if grp.DefaultBanMask.Has(store.BanReceive) {
		return
	}

	recipients, err := g.Directory.UserMembers(ctx, g.ID)
	if err != nil {
		slog.Warn("fanout: recipient snapshot failed", "group", g.ID, "error", err)
		return
	}

	switch op.Kind {
	case KindBroadcast:
		g.broadcast(ctx, op, recipients)
	case KindEdit:
		g.edit(ctx, op, recipients)
	case KindDelete:
		g.delete(ctx, op)
	case KindPin:
		g.pinOrUnpin(ctx, op, recipients, true)
	case KindUnpin:
		g.pinOrUnpin(ctx, op, recipients, false)
	}

	dur := time.Since(op.Created)
	g.Local.record(op.Requests, op.Errors, dur)
	g.Global.Record(op.Requests, op.Errors, dur)
}
