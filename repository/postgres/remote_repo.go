package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/repository"
)

type remoteRepository struct {
	pool *pgxpool.Pool
}

// NewRemoteRepository creates a Postgres-backed RemoteStore. Each collection
// is a table of (id, data jsonb, updated_at).
func NewRemoteRepository(pool *pgxpool.Pool) repository.RemoteStore {
	return &remoteRepository{pool: pool}
}

func (r *remoteRepository) Upsert(ctx context.Context, table string, id string, record json.RawMessage) error {
	ident, err := tableIdent(table)
	if err != nil {
		return err
	}
	if id == "" || !json.Valid(record) {
		return domain.ErrInvalidPayload
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, data, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (id) DO UPDATE
	SET data = %s.data || EXCLUDED.data,
		updated_at = NOW()
	`, ident, ident)

	_, err = r.pool.Exec(ctx, query, id, []byte(record))
	return err
}

func (r *remoteRepository) Delete(ctx context.Context, table string, id string) error {
	ident, err := tableIdent(table)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, ident), id)
	return err
}

func (r *remoteRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return domain.ErrRemoteUnavailable
	}
	return r.pool.Ping(ctx)
}

