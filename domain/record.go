package domain

import "time"

// Record is the contract every collection element satisfies. Methods return
// modified copies so collections can hold plain values.
type Record[T any] interface {
	RecordID() string
	WithID(id string) T
	Normalize(now time.Time) T
}
