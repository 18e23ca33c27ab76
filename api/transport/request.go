package transport

// ConnectivityRequest pins the connectivity state. A null or missing Online
// hands control back to the probe.
type ConnectivityRequest struct {
	Online *bool `json:"online"`
}
