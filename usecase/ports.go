package usecase

import (
	"context"

	"github.com/fastygo/agroflow/domain"
)

// Outbox is the durable queue of mutations awaiting remote confirmation.
// Only the domain store enqueues; only the sync engine removes.
type Outbox interface {
	Enqueue(ctx context.Context, entry domain.OutboxEntry) error
	PeekAll(ctx context.Context) ([]domain.OutboxEntry, error)
	RemoveFromOutbox(ctx context.Context, id string) error
	OutboxSize(ctx context.Context) (int, error)
}

// LocalStore persists id-keyed record snapshots per collection across restarts.
type LocalStore interface {
	Outbox

	GetAll(ctx context.Context, c domain.Collection) ([]domain.Document, error)
	BulkPut(ctx context.Context, c domain.Collection, docs []domain.Document) error
	// ReplaceAll is the mirror primitive: clear then bulk write, in one storage transaction.
	ReplaceAll(ctx context.Context, c domain.Collection, docs []domain.Document) error
	Clear(ctx context.Context, c domain.Collection) error
	Delete(ctx context.Context, c domain.Collection, id string) error

	Flag(ctx context.Context, name string) (bool, error)
	SetFlag(ctx context.Context, name string, value bool) error

	Close() error
}

// Syncer runs one drain pass of the outbox.
type Syncer interface {
	Drain(ctx context.Context) error
}
