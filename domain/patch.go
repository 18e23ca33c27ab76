package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Patch carries the partial fields of an update, keyed by JSON field name.
type Patch map[string]any

// Clone returns a shallow copy without the id key.
func (p Patch) Clone() Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// WithID returns a copy of the patch carrying id, the shape enqueued for
// update operations.
func (p Patch) WithID(id string) Patch {
	out := p.Clone()
	out["id"] = id
	return out
}

// NormalizeTransactionPatch canonicalizes the date key when the patch carries one.
func NormalizeTransactionPatch(p Patch, now time.Time) Patch {
	out := p.Clone()
	if v, ok := out["date"]; ok {
		out["date"] = CanonicalDateValue(v, now)
	}
	return out
}

// ApplyPatch overlays patch fields on record's JSON object and decodes the
// result back into T. Fields unknown to T are rejected.
func ApplyPatch[T any](record T, patch Patch) (T, error) {
	var zero T
	base, err := json.Marshal(record)
	if err != nil {
		return zero, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return zero, err
	}
	for key, value := range patch {
		if key == "id" {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return zero, WrapError(ErrCodeInvalid, "invalid patch field "+key, err)
		}
		fields[key] = raw
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}

	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	var out T
	if err := dec.Decode(&out); err != nil {
		return zero, WrapError(ErrCodeInvalid, "patch does not fit record", err)
	}
	return out, nil
}
