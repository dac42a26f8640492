package capture

import "time"

// Request is the persisted record of one inbound delivery to a hook.
// Body and Headers hold pre-serialized JSON text (see Body and Snapshot);
// the row is written once at capture time and never mutated.
type Request struct {
	ID        string    `json:"id"`
	HookID    string    `json:"hook_id"`
	Body      string    `json:"body"`
	Headers   string    `json:"headers"`
	IP        string    `json:"ip"`
	Method    string    `json:"method"`
	IsCron    bool      `json:"is_cron"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the list-view projection of a Request. Body and headers are
// deliberately omitted to keep list payloads small.
type Summary struct {
	IP        string    `json:"ip"`
	Method    string    `json:"method"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds a capture row for a hook that was verified to exist.
func New(id, hookID string, body Body, headers Snapshot, ip, method string, now time.Time) *Request {
	ts := now.UTC()
	return &Request{
		ID:        id,
		HookID:    hookID,
		Body:      body.Text,
		Headers:   string(headers),
		IP:        ip,
		Method:    method,
		IsCron:    false,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}
