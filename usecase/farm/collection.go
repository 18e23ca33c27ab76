package farm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/usecase"
)

// FailureRecorder counts persistence failures by operation.
type FailureRecorder interface {
	StoreFailure(op string)
}

type env struct {
	local    usecase.LocalStore
	syncer   usecase.Syncer
	logger   *zap.Logger
	failures FailureRecorder
	policy   PersistencePolicy
	clock    func() time.Time
}

// Collection is the in-memory authoritative view of one entity collection.
// Every mutation is applied in memory, enqueued to the outbox and then
// mirrored to the local store, in that order, under the collection lock.
type Collection[T domain.Record[T]] struct {
	name           domain.Collection
	env            *env
	normalizePatch func(domain.Patch, time.Time) domain.Patch

	mu     sync.Mutex
	items  []T
	events hub
}

func newCollection[T domain.Record[T]](name domain.Collection, e *env) *Collection[T] {
	return &Collection[T]{name: name, env: e}
}

// Name returns the collection the records belong to.
func (c *Collection[T]) Name() domain.Collection {
	return c.name
}

// All returns a snapshot of the records in insertion order.
func (c *Collection[T]) All() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Subscribe registers fn for changes to this collection.
func (c *Collection[T]) Subscribe(fn Listener) (cancel func()) {
	return c.events.subscribe(fn)
}

// Add stamps a fresh id on record, normalizes it and appends it.
func (c *Collection[T]) Add(ctx context.Context, record T) (T, error) {
	now := c.env.clock()
	rec := record.WithID(domain.NewID(now)).Normalize(now)

	c.mu.Lock()
	c.items = append(c.items, rec)
	err := errors.Join(
		c.enqueue(ctx, domain.ActionCreate, rec, now),
		c.mirrorLocked(ctx),
	)
	c.mu.Unlock()

	c.events.publish(Change{Collection: c.name, Action: domain.ActionCreate, IDs: []string{rec.RecordID()}})
	return rec, err
}

// Update merges patch into the record with id. It reports false and does
// nothing else when no such record exists. A patch that does not fit the
// record type is rejected before anything changes.
func (c *Collection[T]) Update(ctx context.Context, id string, patch domain.Patch) (T, bool, error) {
	var zero T
	now := c.env.clock()
	if c.normalizePatch != nil {
		patch = c.normalizePatch(patch, now)
	} else {
		patch = patch.Clone()
	}

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return zero, false, nil
	}
	merged, err := domain.ApplyPatch(c.items[i], patch)
	if err != nil {
		c.mu.Unlock()
		return zero, true, err
	}
	merged = merged.WithID(id)
	c.items[i] = merged
	err = errors.Join(
		c.enqueue(ctx, domain.ActionUpdate, patch.WithID(id), now),
		c.mirrorLocked(ctx),
	)
	c.mu.Unlock()

	c.events.publish(Change{Collection: c.name, Action: domain.ActionUpdate, IDs: []string{id}})
	return merged, true, err
}

// Delete removes the record with id, reporting false when it was absent.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	now := c.env.clock()

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return false, nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	err := errors.Join(
		c.enqueue(ctx, domain.ActionDelete, domain.Patch{"id": id}, now),
		c.mirrorLocked(ctx),
	)
	c.mu.Unlock()

	c.events.publish(Change{Collection: c.name, Action: domain.ActionDelete, IDs: []string{id}})
	return true, err
}

// DeleteAll enqueues one delete per held record before clearing memory, then
// mirrors and asks the syncer for a drain pass. The remote has no
// collection-level wipe, so each record is deleted on its own.
func (c *Collection[T]) DeleteAll(ctx context.Context) (int, error) {
	now := c.env.clock()

	c.mu.Lock()
	ids := make([]string, len(c.items))
	errs := make([]error, 0, len(c.items)+1)
	for i, item := range c.items {
		ids[i] = item.RecordID()
		errs = append(errs, c.enqueue(ctx, domain.ActionDelete, domain.Patch{"id": ids[i]}, now))
	}
	c.items = nil
	errs = append(errs, c.mirrorLocked(ctx))
	c.mu.Unlock()

	if len(ids) > 0 {
		c.events.publish(Change{Collection: c.name, Action: domain.ActionDelete, IDs: ids})
	}

	if c.env.syncer != nil {
		if err := c.env.syncer.Drain(ctx); err != nil {
			c.env.logger.Warn("drain after delete all did not finish",
				zap.String("collection", c.name.String()),
				zap.Error(err))
		}
	}
	return len(ids), errors.Join(errs...)
}

func (c *Collection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) enqueue(ctx context.Context, action domain.Action, payload any, now time.Time) error {
	entry, err := domain.NewOutboxEntry(c.name, action, payload, now)
	if err == nil {
		err = c.env.local.Enqueue(ctx, entry)
	}
	return c.env.persistErr("enqueue", c.name.String(), err)
}

// mirrorLocked rewrites the persisted collection from memory. Callers hold mu.
func (c *Collection[T]) mirrorLocked(ctx context.Context) error {
	docs, err := encodeDocuments(c.items)
	if err == nil {
		err = c.env.local.ReplaceAll(ctx, c.name, docs)
	}
	return c.env.persistErr("mirror", c.name.String(), err)
}

// replace swaps the in-memory records without enqueueing or mirroring.
func (c *Collection[T]) replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

func encodeDocuments[T domain.Record[T]](items []T) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(items))
	for _, item := range items {
		body, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.Document{ID: item.RecordID(), Body: body})
	}
	return docs, nil
}

// decodeDocuments skips documents that do not decode or carry no id.
func decodeDocuments[T domain.Record[T]](docs []domain.Document, logger *zap.Logger, name domain.Collection) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := json.Unmarshal(doc.Body, &rec); err != nil {
			logger.Warn("skipping undecodable record",
				zap.String("collection", name.String()),
				zap.String("id", doc.ID),
				zap.Error(err))
			continue
		}
		if rec.RecordID() == "" {
			if doc.ID == "" {
				logger.Warn("skipping record without id", zap.String("collection", name.String()))
				continue
			}
			rec = rec.WithID(doc.ID)
		}
		out = append(out, rec)
	}
	return out
}
