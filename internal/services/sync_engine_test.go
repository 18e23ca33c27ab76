package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/internal/infrastructure/localstore"
	"github.com/fastygo/agroflow/internal/infrastructure/metrics"
	"github.com/fastygo/agroflow/repository/memory"
)

type fakeMonitor struct {
	mu     sync.Mutex
	online bool
	subs   []func()
}

func (m *fakeMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *fakeMonitor) Subscribe(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
	return func() {}
}

func (m *fakeMonitor) goOnline() {
	m.mu.Lock()
	m.online = true
	subs := append([]func(){}, m.subs...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

type fixture struct {
	store   *localstore.BoltStore
	remote  *memory.RemoteStore
	monitor *fakeMonitor
	metrics *metrics.Metrics
	engine  *SyncEngine
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	store, err := localstore.OpenBolt(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:   store,
		remote:  memory.NewRemoteStore(),
		monitor: &fakeMonitor{online: online},
		metrics: metrics.New(),
	}
	f.engine = NewSyncEngine(f.store, f.remote, f.monitor, f.metrics, nil, EngineConfig{})
	return f
}

func (f *fixture) enqueue(t *testing.T, entity domain.Collection, action domain.Action, payload string) domain.OutboxEntry {
	t.Helper()
	entry := domain.OutboxEntry{
		ID:        domain.NewID(time.Now()),
		Entity:    entity,
		Action:    action,
		Payload:   []byte(payload),
		Timestamp: time.Now(),
	}
	require.NoError(t, f.store.Enqueue(context.Background(), entry))
	return entry
}

func (f *fixture) pending(t *testing.T) []domain.OutboxEntry {
	t.Helper()
	entries, err := f.store.PeekAll(context.Background())
	require.NoError(t, err)
	return entries
}

func TestPass_CreateUpdateDeleteSameRecord(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, domain.CollectionTransactions, domain.ActionCreate, `{"id":"tx-1","amount":"10","date":"01-01-2024"}`)
	f.enqueue(t, domain.CollectionTransactions, domain.ActionUpdate, `{"id":"tx-1","amount":"20"}`)
	f.enqueue(t, domain.CollectionTransactions, domain.ActionDelete, `{"id":"tx-1"}`)

	result, err := f.engine.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
	assert.Empty(t, f.pending(t))

	_, exists := f.remote.Get("transactions", "tx-1")
	assert.False(t, exists)
	assert.Equal(t, []memory.Call{
		{Op: "upsert", Table: "transactions", ID: "tx-1"},
		{Op: "upsert", Table: "transactions", ID: "tx-1"},
		{Op: "delete", Table: "transactions", ID: "tx-1"},
	}, f.remote.Calls())
}

func TestPass_OfflineMakesNoRemoteCalls(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(t, domain.CollectionCrops, domain.ActionCreate, `{"id":"c1","name":"Soja"}`)

	result, err := f.engine.Pass(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Offline)
	assert.Empty(t, f.remote.Calls())
	assert.Len(t, f.pending(t), 1)
}

func TestPass_HaltsAtFirstFailure(t *testing.T) {
	f := newFixture(t, true)
	e1 := f.enqueue(t, domain.CollectionCrops, domain.ActionCreate, `{"id":"c1"}`)
	e2 := f.enqueue(t, domain.CollectionCrops, domain.ActionCreate, `{"id":"c2"}`)
	e3 := f.enqueue(t, domain.CollectionCrops, domain.ActionCreate, `{"id":"c3"}`)
	e4 := f.enqueue(t, domain.CollectionProperties, domain.ActionDelete, `{"id":"p1"}`)

	boom := errors.New("rejected write")
	f.remote.FailID("c2", boom)

	result, err := f.engine.Pass(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 3, result.Remaining)
	assert.Equal(t, e2.ID, result.FailedEntry)

	calls := f.remote.Calls()
	require.Len(t, calls, 2, "entries after the failing one must not be attempted")
	assert.Equal(t, "c2", calls[1].ID)

	pending := f.pending(t)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{e2.ID, e3.ID, e4.ID}, []string{pending[0].ID, pending[1].ID, pending[2].ID})
	assert.NotEqual(t, e1.ID, pending[0].ID)

	f.remote.FailID("c2", nil)
	result, err = f.engine.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
	assert.Empty(t, f.pending(t))

	calls = f.remote.Calls()
	assert.Equal(t, "c2", calls[2].ID, "the failed entry is retried first")
	assert.Equal(t, 3, f.remote.Len("crops"))
}

func TestPass_InvalidEntryBlocksQueue(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, domain.CollectionCrops, domain.ActionCreate, `{"id":"c1","name":["not","a","string"]}`)
	f.enqueue(t, domain.CollectionCrops, domain.ActionCreate, `{"id":"c2"}`)
	f.remote.FailID("c1", domain.ErrInvalidPayload)

	for i := 0; i < 3; i++ {
		_, err := f.engine.Pass(context.Background())
		require.Error(t, err)
	}
	assert.Len(t, f.pending(t), 2)
	for _, call := range f.remote.Calls() {
		assert.Equal(t, "c1", call.ID)
	}
}

func TestPass_RemoteTimeout(t *testing.T) {
	f := newFixture(t, true)
	slow := &slowRemote{RemoteStore: f.remote, delay: time.Second}
	engine := NewSyncEngine(f.store, slow, f.monitor, nil, nil, EngineConfig{RemoteTimeout: 10 * time.Millisecond})
	f.enqueue(t, domain.CollectionCrops, domain.ActionDelete, `{"id":"c1"}`)

	_, err := engine.Pass(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, f.pending(t), 1)
}

func TestStart_DrainsAtStartupAndWhenOnline(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(t, domain.CollectionProperties, domain.ActionCreate, `{"id":"p1"}`)

	ctx := context.Background()
	f.engine.Start(ctx)
	t.Cleanup(func() { f.engine.Stop(ctx) })

	require.Eventually(t, func() bool { return len(f.pending(t)) == 0 }, 2*time.Second, 10*time.Millisecond)

	f.monitor.mu.Lock()
	f.monitor.online = false
	f.monitor.mu.Unlock()
	f.enqueue(t, domain.CollectionProperties, domain.ActionDelete, `{"id":"p1"}`)

	f.monitor.goOnline()
	require.Eventually(t, func() bool { return len(f.pending(t)) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, f.remote.Len("properties"))
}

type slowRemote struct {
	*memory.RemoteStore
	delay time.Duration
}

func (s *slowRemote) Delete(ctx context.Context, table, id string) error {
	select {
	case <-time.After(s.delay):
		return s.RemoteStore.Delete(ctx, table, id)
	case <-ctx.Done():
		return ctx.Err()
	}
}
