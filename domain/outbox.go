package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action is the mutation an outbox entry replays against the remote backend.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// OutboxEntry is a mutation not yet confirmed by the remote backend.
type OutboxEntry struct {
	ID        string          `json:"id"`
	Entity    Collection      `json:"entity"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`

	// Seq is the local store's insertion sequence; drain order follows it.
	Seq uint64 `json:"seq,omitempty"`
}

// NewOutboxEntry encodes payload and stamps a fresh entry id.
func NewOutboxEntry(entity Collection, action Action, payload any, now time.Time) (OutboxEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxEntry{}, WrapError(ErrCodeInvalid, "encode outbox payload", err)
	}
	entry := OutboxEntry{
		ID:        uuid.NewString(),
		Entity:    entity,
		Action:    action,
		Payload:   body,
		Timestamp: now,
	}
	if err := entry.Validate(); err != nil {
		return OutboxEntry{}, err
	}
	return entry, nil
}

// Validate enforces a known (entity, action) pair and a payload id.
func (e OutboxEntry) Validate() error {
	if !e.Entity.Valid() {
		return ErrUnknownCollection
	}
	if !e.Action.Valid() {
		return ErrUnknownAction
	}
	if e.RecordID() == "" {
		return ErrMissingID
	}
	return nil
}

// RecordID extracts payload.id, or "" when the payload has none.
func (e OutboxEntry) RecordID() string {
	var head struct {
		ID string `json:"id"`
	}
	if len(e.Payload) == 0 {
		return ""
	}
	if err := json.Unmarshal(e.Payload, &head); err != nil {
		return ""
	}
	return head.ID
}
