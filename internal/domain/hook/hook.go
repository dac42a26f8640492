package hook

import "time"

// Hook is a provisioned capture endpoint. Inbound deliveries against it are
// accepted at /r/<id> and recorded as capture.Request rows.
//
// Owner, CustomJS, Salt and IsRedirect are reserved schema fields carried
// through persistence; nothing writes them yet.
type Hook struct {
	ID                string    `json:"id"`
	Owner             *string   `json:"owner"`
	Description       *string   `json:"description"`
	Active            bool      `json:"active"`
	TotalRequestCount int64     `json:"total_request_count"`
	IsRedirect        bool      `json:"is_redirect"`
	CustomJS          *string   `json:"custom_js"`
	Salt              *string   `json:"salt"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// New returns a freshly provisioned hook. Hooks are immutable after creation:
// there is no update or delete path, so both timestamps stay equal for the
// lifetime of the row.
func New(id string, now time.Time) *Hook {
	ts := now.UTC()
	return &Hook{
		ID:        id,
		Active:    true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}
