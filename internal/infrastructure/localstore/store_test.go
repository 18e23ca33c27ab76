package localstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/usecase"
)

type opener func(path string) (usecase.LocalStore, error)

var drivers = map[string]opener{
	DriverBolt:   func(path string) (usecase.LocalStore, error) { return Open(DriverBolt, path) },
	DriverSQLite: func(path string) (usecase.LocalStore, error) { return Open(DriverSQLite, path) },
}

func forEachDriver(t *testing.T, fn func(t *testing.T, open opener, path string)) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "local."+name)
			fn(t, open, path)
		})
	}
}

func mustOpen(t *testing.T, open opener, path string) usecase.LocalStore {
	t.Helper()
	s, err := open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func docs(ids ...string) []domain.Document {
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Document{ID: id, Body: []byte(fmt.Sprintf(`{"id":%q}`, id))})
	}
	return out
}

func ids(in []domain.Document) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		out = append(out, d.ID)
	}
	sort.Strings(out)
	return out
}

func entry(t *testing.T, action domain.Action, id string) domain.OutboxEntry {
	t.Helper()
	e, err := domain.NewOutboxEntry(domain.CollectionTransactions, action, map[string]string{"id": id}, time.Now())
	require.NoError(t, err)
	return e
}

func TestGetAll_EmptyCollection(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		s := mustOpen(t, open, path)
		got, err := s.GetAll(context.Background(), domain.CollectionCrops)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}

func TestBulkPut_RoundTripSurvivesReopen(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		ctx := context.Background()
		s, err := open(path)
		require.NoError(t, err)
		require.NoError(t, s.BulkPut(ctx, domain.CollectionProperties, docs("p3", "p1", "p2")))
		require.NoError(t, s.BulkPut(ctx, domain.CollectionProperties, nil))
		require.NoError(t, s.Close())

		s = mustOpen(t, open, path)
		got, err := s.GetAll(ctx, domain.CollectionProperties)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p3"}, ids(got))
	})
}

func TestBulkPut_UpsertsByID(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		ctx := context.Background()
		s := mustOpen(t, open, path)
		require.NoError(t, s.BulkPut(ctx, domain.CollectionCrops, []domain.Document{{ID: "c1", Body: []byte(`{"id":"c1","name":"a"}`)}}))
		require.NoError(t, s.BulkPut(ctx, domain.CollectionCrops, []domain.Document{{ID: "c1", Body: []byte(`{"id":"c1","name":"b"}`)}}))

		got, err := s.GetAll(ctx, domain.CollectionCrops)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.JSONEq(t, `{"id":"c1","name":"b"}`, string(got[0].Body))
	})
}

func TestBulkPut_RejectsMissingID(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		s := mustOpen(t, open, path)
		err := s.BulkPut(context.Background(), domain.CollectionCrops, []domain.Document{{Body: []byte(`{}`)}})
		assert.ErrorIs(t, err, domain.ErrMissingID)
	})
}

func TestReplaceAll_ClearAndDelete(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		ctx := context.Background()
		s := mustOpen(t, open, path)
		require.NoError(t, s.BulkPut(ctx, domain.CollectionTransactions, docs("a", "b", "c")))

		require.NoError(t, s.ReplaceAll(ctx, domain.CollectionTransactions, docs("c", "d")))
		got, err := s.GetAll(ctx, domain.CollectionTransactions)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "d"}, ids(got))

		require.NoError(t, s.Delete(ctx, domain.CollectionTransactions, "c"))
		require.NoError(t, s.Delete(ctx, domain.CollectionTransactions, "missing"))
		got, err = s.GetAll(ctx, domain.CollectionTransactions)
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, ids(got))

		require.NoError(t, s.Clear(ctx, domain.CollectionTransactions))
		got, err = s.GetAll(ctx, domain.CollectionTransactions)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUnknownCollection(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		s := mustOpen(t, open, path)
		_, err := s.GetAll(context.Background(), domain.Collection("outbox"))
		assert.ErrorIs(t, err, domain.ErrUnknownCollection)
	})
}

func TestFlags(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		ctx := context.Background()
		s, err := open(path)
		require.NoError(t, err)

		set, err := s.Flag(ctx, domain.InitializedFlag)
		require.NoError(t, err)
		assert.False(t, set)

		require.NoError(t, s.SetFlag(ctx, domain.InitializedFlag, true))
		require.NoError(t, s.Close())

		s = mustOpen(t, open, path)
		set, err = s.Flag(ctx, domain.InitializedFlag)
		require.NoError(t, err)
		assert.True(t, set)
	})
}

func TestOutbox_FIFOAcrossReopen(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		ctx := context.Background()
		s, err := open(path)
		require.NoError(t, err)

		// Timestamps go backwards on purpose: order must follow insertion.
		first := entry(t, domain.ActionCreate, "tx-1")
		second := entry(t, domain.ActionUpdate, "tx-1")
		second.Timestamp = first.Timestamp.Add(-time.Hour)
		third := entry(t, domain.ActionDelete, "tx-1")
		for _, e := range []domain.OutboxEntry{first, second, third} {
			require.NoError(t, s.Enqueue(ctx, e))
		}
		require.NoError(t, s.Close())

		s = mustOpen(t, open, path)
		pending, err := s.PeekAll(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, []string{first.ID, second.ID, third.ID},
			[]string{pending[0].ID, pending[1].ID, pending[2].ID})
		assert.Equal(t, domain.ActionUpdate, pending[1].Action)
		assert.Equal(t, "tx-1", pending[2].RecordID())

		size, err := s.OutboxSize(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, size)

		require.NoError(t, s.RemoveFromOutbox(ctx, second.ID))
		require.NoError(t, s.RemoveFromOutbox(ctx, "unknown"))
		pending, err = s.PeekAll(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		assert.Equal(t, third.ID, pending[1].ID)
	})
}

func TestOutbox_RejectsInvalidEntry(t *testing.T) {
	forEachDriver(t, func(t *testing.T, open opener, path string) {
		s := mustOpen(t, open, path)
		bad := domain.OutboxEntry{ID: "x", Entity: domain.CollectionCrops, Action: domain.ActionDelete, Payload: []byte(`{}`)}
		assert.ErrorIs(t, s.Enqueue(context.Background(), bad), domain.ErrMissingID)
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("leveldb", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}
