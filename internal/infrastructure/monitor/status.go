package monitor

import "time"

type Status struct {
	Online     bool      `json:"online"`
	Forced     bool      `json:"forced"`
	LastError  string    `json:"last_error,omitempty"`
	OutboxOK   bool      `json:"outbox"`
	OutboxSize int       `json:"outbox_size"`
	LastCheck  time.Time `json:"last_check"`
}
