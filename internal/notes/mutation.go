package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// MutationKind names the operation.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// MutationState is the lifecycle of one mutation:
// Idle -> Pending -> Applied | Rejected.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Applied
	Rejected
)

func (s MutationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("MutationState(%d)", int(s))
}

// Mutation is reported to observers on every state transition.
type Mutation struct {
	ID     string
	Kind   MutationKind
	NoteID string
	State  MutationState
	Err    error
}

// OnMutation registers an observer. Observers run synchronously on the
// goroutine performing the mutation.
func (m *Manager) OnMutation(fn func(Mutation)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) newOpID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

func (m *Manager) emit(op Mutation) {
	m.mu.Lock()
	obs := append([]func(Mutation){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range obs {
		fn(op)
	}
}

func (m *Manager) begin(ctx context.Context, kind MutationKind, noteID string) *Mutation {
	op := &Mutation{ID: m.newOpID(), Kind: kind, NoteID: noteID, State: Pending}
	m.logger.DebugContext(ctx, "mutation pending", "op", op.ID, "kind", kind, "note", noteID)
	m.emit(*op)
	return op
}

func (m *Manager) apply(ctx context.Context, op *Mutation) {
	op.State = Applied
	m.logger.DebugContext(ctx, "mutation applied", "op", op.ID, "kind", op.Kind, "note", op.NoteID)
	m.emit(*op)
}

func (m *Manager) reject(ctx context.Context, op *Mutation, err error) error {
	op.State = Rejected
	op.Err = err
	m.logger.WarnContext(ctx, "mutation rejected", "op", op.ID, "kind", op.Kind, "note", op.NoteID, "error", err)
	m.emit(*op)
	return err
}
