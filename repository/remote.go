package repository

import (
	"context"
	"encoding/json"
)

// RemoteStore is the table-oriented backend the sync engine reconciles against.
// Tables are the collection names. Upsert with a partial record merges the
// given fields into the stored one; Delete of an absent id succeeds.
type RemoteStore interface {
	Upsert(ctx context.Context, table string, id string, record json.RawMessage) error
	Delete(ctx context.Context, table string, id string) error
	Ping(ctx context.Context) error
}
