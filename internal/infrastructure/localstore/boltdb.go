package localstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/agroflow/domain"
)

// BoltStore keeps every collection, the outbox and the flags in one BoltDB
// file. Each call runs in its own Bolt transaction.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt initializes the BoltDB file and ensures all buckets exist.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltBuckets() {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func boltBuckets() []string {
	names := []string{outboxTable, metaTable}
	for _, c := range domain.Collections {
		names = append(names, c.String())
	}
	return names
}

// GetAll returns every stored record of the collection.
func (s *BoltStore) GetAll(ctx context.Context, c domain.Collection) ([]domain.Document, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := checkCollection(c); err != nil {
		return nil, err
	}

	docs := []domain.Document{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(c)).ForEach(func(k, v []byte) error {
			docs = append(docs, domain.Document{
				ID:   string(k),
				Body: append([]byte(nil), v...),
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", c, err)
	}
	return docs, nil
}

// BulkPut upserts the documents by id in a single transaction.
func (s *BoltStore) BulkPut(ctx context.Context, c domain.Collection, docs []domain.Document) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := checkCollection(c); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if err := checkDocuments(docs); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putAll(tx.Bucket([]byte(c)), docs)
	})
	if err != nil {
		return fmt.Errorf("localstore: write %s: %w", c, err)
	}
	return nil
}

// ReplaceAll clears the collection and writes docs in the same transaction.
func (s *BoltStore) ReplaceAll(ctx context.Context, c domain.Collection, docs []domain.Document) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := checkCollection(c); err != nil {
		return err
	}
	if err := checkDocuments(docs); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(c)); err != nil {
			return err
		}
		b, err := tx.CreateBucket([]byte(c))
		if err != nil {
			return err
		}
		return putAll(b, docs)
	})
	if err != nil {
		return fmt.Errorf("localstore: replace %s: %w", c, err)
	}
	return nil
}

// Clear removes all records of the collection.
func (s *BoltStore) Clear(ctx context.Context, c domain.Collection) error {
	return s.ReplaceAll(ctx, c, nil)
}

// Delete removes one record. A missing id is not an error.
func (s *BoltStore) Delete(ctx context.Context, c domain.Collection, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := checkCollection(c); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(c)).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("localstore: delete %s/%s: %w", c, id, err)
	}
	return nil
}

// Flag reads a boolean from the meta bucket; unset flags read as false.
func (s *BoltStore) Flag(ctx context.Context, name string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var value bool
	err := s.db.View(func(tx *bolt.Tx) error {
		value = string(tx.Bucket([]byte(metaTable)).Get([]byte(name))) == "true"
		return nil
	})
	return value, err
}

// SetFlag persists a boolean in the meta bucket.
func (s *BoltStore) SetFlag(ctx context.Context, name string, value bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaTable)).Put([]byte(name), []byte(fmt.Sprintf("%t", value)))
	})
}

// Enqueue appends an entry to the outbox. Keys come from the bucket sequence,
// so cursor order is insertion order.
func (s *BoltStore) Enqueue(ctx context.Context, entry domain.OutboxEntry) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(outboxTable))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry.Seq = seq
		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), payload)
	})
	if err != nil {
		return fmt.Errorf("localstore: enqueue %s: %w", entry.ID, err)
	}
	return nil
}

// PeekAll returns every pending entry in drain order without removing any.
func (s *BoltStore) PeekAll(ctx context.Context) ([]domain.OutboxEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	entries := []domain.OutboxEntry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(outboxTable)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry domain.OutboxEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("localstore: read outbox: %w", err)
	}
	return entries, nil
}

// RemoveFromOutbox deletes the entry with the given id. A missing id is not an error.
func (s *BoltStore) RemoveFromOutbox(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(outboxTable)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry domain.OutboxEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.ID == id {
				return c.Delete()
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("localstore: remove outbox entry %s: %w", id, err)
	}
	return nil
}

// OutboxSize returns the number of pending entries.
func (s *BoltStore) OutboxSize(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(outboxTable)).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) ready(ctx context.Context) error {
	if s == nil || s.db == nil {
		return domain.ErrLocalStoreNotReady
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

func putAll(b *bolt.Bucket, docs []domain.Document) error {
	for _, doc := range docs {
		if err := b.Put([]byte(doc.ID), doc.Body); err != nil {
			return err
		}
	}
	return nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
