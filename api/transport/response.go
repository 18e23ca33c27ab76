package transport

import "encoding/json"

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// ListMeta accompanies collection listings.
type ListMeta struct {
	Count int `json:"count"`
}

// DeleteAllResult reports how many records a collection wipe removed.
type DeleteAllResult struct {
	Deleted int `json:"deleted"`
}

// OutboxEntry is the API view of a pending mutation.
type OutboxEntry struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Action    string          `json:"action"`
	RecordID  string          `json:"record_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}
