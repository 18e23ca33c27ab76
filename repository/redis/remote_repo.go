package redis

import (
	"context"
	"encoding/json"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/repository"
)

type remoteRepository struct {
	client *redislib.Client
	prefix string
}

// NewRemoteRepository creates a Redis-backed RemoteStore. A record is a hash
// at <prefix><table>:<id> with one field per JSON key; <prefix><table>:ids
// indexes the ids of a table.
func NewRemoteRepository(client *redislib.Client, prefix string) repository.RemoteStore {
	if prefix == "" {
		prefix = "agroflow:"
	}
	return &remoteRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *remoteRepository) Upsert(ctx context.Context, table string, id string, record json.RawMessage) error {
	if _, err := domain.ParseCollection(table); err != nil {
		return err
	}
	if id == "" {
		return domain.ErrMissingID
	}
	fields, err := hashFields(record)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.HSet(ctx, r.recordKey(table, id), fields)
		pipe.SAdd(ctx, r.indexKey(table), id)
		return nil
	})
	return err
}

func (r *remoteRepository) Delete(ctx context.Context, table string, id string) error {
	if _, err := domain.ParseCollection(table); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Del(ctx, r.recordKey(table, id))
		pipe.SRem(ctx, r.indexKey(table), id)
		return nil
	})
	return err
}

func (r *remoteRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *remoteRepository) recordKey(table, id string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, table, id)
}

func (r *remoteRepository) indexKey(table string) string {
	return fmt.Sprintf("%s%s:ids", r.prefix, table)
}

// hashFields flattens a JSON object into hash fields holding each value's JSON text.
func hashFields(record json.RawMessage) (map[string]interface{}, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(record, &object); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "record is not a JSON object", err)
	}
	fields := make(map[string]interface{}, len(object))
	for key, value := range object {
		fields[key] = string(value)
	}
	return fields, nil
}
