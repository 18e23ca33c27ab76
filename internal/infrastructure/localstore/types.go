package localstore

import (
	"fmt"

	"github.com/fastygo/agroflow/domain"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"

	outboxTable = "outbox"
	metaTable   = "meta"
)

func checkCollection(c domain.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("localstore: %w: %q", domain.ErrUnknownCollection, string(c))
	}
	return nil
}

func checkDocuments(docs []domain.Document) error {
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("localstore: %w", domain.ErrMissingID)
		}
	}
	return nil
}
