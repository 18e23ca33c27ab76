package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/repository"
)

// Call records one remote operation, in arrival order.
type Call struct {
	Op    string
	Table string
	ID    string
}

// RemoteStore is an in-process RemoteStore for development and tests. Failures
// can be injected per record id or globally.
type RemoteStore struct {
	mu      sync.Mutex
	tables  map[string]map[string]map[string]json.RawMessage
	calls   []Call
	failIDs map[string]error
	down    error
}

func NewRemoteStore() *RemoteStore {
	return &RemoteStore{
		tables:  make(map[string]map[string]map[string]json.RawMessage),
		failIDs: make(map[string]error),
	}
}

func (s *RemoteStore) Upsert(ctx context.Context, table string, id string, record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "upsert", Table: table, ID: id})
	if err := s.failure(ctx, table, id); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "record is not a JSON object", err)
	}
	rows := s.tables[table]
	if rows == nil {
		rows = make(map[string]map[string]json.RawMessage)
		s.tables[table] = rows
	}
	row := rows[id]
	if row == nil {
		row = make(map[string]json.RawMessage)
		rows[id] = row
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (s *RemoteStore) Delete(ctx context.Context, table string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "delete", Table: table, ID: id})
	if err := s.failure(ctx, table, id); err != nil {
		return err
	}
	delete(s.tables[table], id)
	return nil
}

func (s *RemoteStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.down
}

// Get returns the merged record stored under table/id.
func (s *RemoteStore) Get(table, id string) (map[string]json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tables[table][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]json.RawMessage, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, true
}

// Len returns the number of records in table.
func (s *RemoteStore) Len(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

// Calls returns every operation attempted so far, failed ones included.
func (s *RemoteStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// FailID makes every operation on id return err; a nil err clears it.
func (s *RemoteStore) FailID(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failIDs, id)
		return
	}
	s.failIDs[id] = err
}

// SetDown makes Ping and every operation fail with err; nil brings it back.
func (s *RemoteStore) SetDown(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = err
}

func (s *RemoteStore) failure(ctx context.Context, table, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := domain.ParseCollection(table); err != nil {
		return err
	}
	if s.down != nil {
		return s.down
	}
	return s.failIDs[id]
}

var _ repository.RemoteStore = (*RemoteStore)(nil)
