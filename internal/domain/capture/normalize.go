package capture

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// BodyKind tags the normalized form a payload was reduced to.
type BodyKind int

const (
	// BodyEmpty marks requests whose payload was absent or not read.
	BodyEmpty BodyKind = iota
	// BodyJSON marks payloads re-serialized from application/json.
	BodyJSON
	// BodyForm marks payloads decoded from application/x-www-form-urlencoded.
	BodyForm
	// BodyRaw marks payloads of any other content type, stored verbatim.
	BodyRaw
)

// EmptyBody is the stored representation of an absent payload.
const EmptyBody = "{}"

// Body is the canonical textual form of a request payload. Text is what gets
// persisted; Kind records which branch of the normalization produced it.
type Body struct {
	Kind BodyKind
	Text string
}

// NormalizeBody reduces a raw payload to its canonical stored text.
//
// Only POST, PUT and PATCH carry a body; for every other method the payload
// is not read and the empty-object text is stored. JSON payloads are parsed
// and re-serialized so the stored text is canonical; a payload that claims
// application/json but does not parse is a hard failure. Form payloads decode
// to a flat field mapping (first value wins) serialized as JSON. Anything
// else is kept verbatim. An empty result always collapses to EmptyBody.
func NormalizeBody(method, contentType string, raw []byte) (Body, error) {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return Body{Kind: BodyEmpty, Text: EmptyBody}, nil
	}

	if len(raw) == 0 {
		return Body{Kind: BodyEmpty, Text: EmptyBody}, nil
	}

	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch strings.ToLower(mediaType) {
	case "application/json":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return Body{}, fmt.Errorf("parse json body: %w", err)
		}
		text, err := json.Marshal(v)
		if err != nil {
			return Body{}, fmt.Errorf("serialize json body: %w", err)
		}
		return Body{Kind: BodyJSON, Text: string(text)}, nil

	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return Body{}, fmt.Errorf("parse form body: %w", err)
		}
		fields := make(map[string]string, len(values))
		for k := range values {
			fields[k] = values.Get(k)
		}
		text, err := json.Marshal(fields)
		if err != nil {
			return Body{}, fmt.Errorf("serialize form body: %w", err)
		}
		return Body{Kind: BodyForm, Text: string(text)}, nil
	}

	return Body{Kind: BodyRaw, Text: string(raw)}, nil
}

// Snapshot is the serialized JSON blob of an inbound request's header set
// plus its query parameters.
type Snapshot string

// queryParamsKey is the synthetic member embedded in every snapshot that
// carries the request's query-string mapping.
const queryParamsKey = "query_params"

// SnapshotHeaders serializes every header name/value pair together with the
// query parameters into a single JSON text blob.
func SnapshotHeaders(headers map[string]string, query map[string]string) (Snapshot, error) {
	if query == nil {
		query = map[string]string{}
	}
	blob := make(map[string]any, len(headers)+1)
	for k, v := range headers {
		blob[k] = v
	}
	blob[queryParamsKey] = query

	text, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("serialize header snapshot: %w", err)
	}
	return Snapshot(text), nil
}
