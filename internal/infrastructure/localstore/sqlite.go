package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/fastygo/agroflow/domain"
)

// SQLiteStore is the SQLite rendition of the local store: one table per
// collection, an outbox table ordered by an autoincrement sequence and a meta
// table for flags.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file and its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS outbox (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			entity TEXT NOT NULL,
			action TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, c := range domain.Collections {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			body BLOB NOT NULL
		)`, c))
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, c domain.Collection) ([]domain.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, body FROM %s ORDER BY id`, c))
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", c, err)
	}
	defer func() { _ = rows.Close() }()

	docs := []domain.Document{}
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Body); err != nil {
			return nil, fmt.Errorf("localstore: scan %s: %w", c, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) BulkPut(ctx context.Context, c domain.Collection, docs []domain.Document) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if err := checkDocuments(docs); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertDocs(ctx, tx, c, docs)
	})
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, c domain.Collection, docs []domain.Document) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if err := checkDocuments(docs); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c)); err != nil {
			return err
		}
		return upsertDocs(ctx, tx, c, docs)
	})
}

func (s *SQLiteStore) Clear(ctx context.Context, c domain.Collection) error {
	return s.ReplaceAll(ctx, c, nil)
}

func (s *SQLiteStore) Delete(ctx context.Context, c domain.Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c), id); err != nil {
		return fmt.Errorf("localstore: delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (s *SQLiteStore) Flag(ctx context.Context, name string) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("localstore: read flag %s: %w", name, err)
	}
	return value == "true", nil
}

func (s *SQLiteStore) SetFlag(ctx context.Context, name string, value bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`,
		name, fmt.Sprintf("%t", value))
	if err != nil {
		return fmt.Errorf("localstore: write flag %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Enqueue(ctx context.Context, entry domain.OutboxEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, entity, action, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Entity), string(entry.Action), []byte(entry.Payload),
		entry.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("localstore: enqueue %s: %w", entry.ID, err)
	}
	return nil
}

func (s *SQLiteStore) PeekAll(ctx context.Context) ([]domain.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, entity, action, payload, created_at FROM outbox ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("localstore: read outbox: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []domain.OutboxEntry{}
	for rows.Next() {
		var (
			entry     domain.OutboxEntry
			entity    string
			action    string
			payload   []byte
			createdAt string
		)
		if err := rows.Scan(&entry.Seq, &entry.ID, &entity, &action, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("localstore: scan outbox: %w", err)
		}
		entry.Entity = domain.Collection(entity)
		entry.Action = domain.Action(action)
		entry.Payload = payload
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) RemoveFromOutbox(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("localstore: remove outbox entry %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) OutboxSize(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&count); err != nil {
		return 0, fmt.Errorf("localstore: count outbox: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("localstore: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstore: commit: %w", err)
	}
	return nil
}

func upsertDocs(ctx context.Context, tx *sql.Tx, c domain.Collection, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, body) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET body = excluded.body`, c))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Body); err != nil {
			return err
		}
	}
	return nil
}
