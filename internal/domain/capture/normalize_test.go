package capture

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeBody_JSONRoundTrips(t *testing.T) {
	b, err := NormalizeBody("POST", "application/json", []byte(`{"a": 1}`))
	if err != nil {
		t.Fatalf("NormalizeBody: %v", err)
	}
	if b.Kind != BodyJSON {
		t.Fatalf("kind = %v, want BodyJSON", b.Kind)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(b.Text), &got); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	want := map[string]any{"a": float64(1)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("body = %v, want %v", got, want)
	}
}

func TestNormalizeBody_JSONWithCharsetParameter(t *testing.T) {
	b, err := NormalizeBody("POST", "application/json; charset=utf-8", []byte(`[1,2]`))
	if err != nil {
		t.Fatalf("NormalizeBody: %v", err)
	}
	if b.Kind != BodyJSON || b.Text != "[1,2]" {
		t.Fatalf("got kind=%v text=%q", b.Kind, b.Text)
	}
}

func TestNormalizeBody_MalformedJSONIsHardFailure(t *testing.T) {
	if _, err := NormalizeBody("POST", "application/json", []byte(`{"a":`)); err == nil {
		t.Fatal("expected error for malformed json body")
	}
}

func TestNormalizeBody_FormDecodesToFlatMapping(t *testing.T) {
	b, err := NormalizeBody("POST", "application/x-www-form-urlencoded", []byte("a=1&b=2"))
	if err != nil {
		t.Fatalf("NormalizeBody: %v", err)
	}
	if b.Kind != BodyForm {
		t.Fatalf("kind = %v, want BodyForm", b.Kind)
	}

	var got map[string]string
	if err := json.Unmarshal([]byte(b.Text), &got); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	want := map[string]string{"a": "1", "b": "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("body = %v, want %v", got, want)
	}
}

func TestNormalizeBody_EmptyBodyStoresEmptyObjectText(t *testing.T) {
	for _, method := range []string{"POST", "PUT", "PATCH"} {
		b, err := NormalizeBody(method, "application/json", nil)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if b.Text != EmptyBody {
			t.Fatalf("%s: body = %q, want %q", method, b.Text, EmptyBody)
		}
	}
}

func TestNormalizeBody_BodyNotReadForOtherMethods(t *testing.T) {
	b, err := NormalizeBody("GET", "application/json", []byte(`{"ignored":true}`))
	if err != nil {
		t.Fatalf("NormalizeBody: %v", err)
	}
	if b.Kind != BodyEmpty || b.Text != EmptyBody {
		t.Fatalf("got kind=%v text=%q, want empty body", b.Kind, b.Text)
	}
}

func TestNormalizeBody_UnknownContentTypeKeptVerbatim(t *testing.T) {
	raw := "plain payload, not json"
	b, err := NormalizeBody("POST", "text/plain", []byte(raw))
	if err != nil {
		t.Fatalf("NormalizeBody: %v", err)
	}
	if b.Kind != BodyRaw || b.Text != raw {
		t.Fatalf("got kind=%v text=%q, want raw %q", b.Kind, b.Text, raw)
	}
}

func TestSnapshotHeaders_EmbedsQueryParams(t *testing.T) {
	snap, err := SnapshotHeaders(
		map[string]string{"Content-Type": "application/json", "X-Custom": "yes"},
		map[string]string{"token": "abc"},
	)
	if err != nil {
		t.Fatalf("SnapshotHeaders: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(snap), &got); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if got["Content-Type"] != "application/json" || got["X-Custom"] != "yes" {
		t.Fatalf("headers missing from snapshot: %v", got)
	}
	qp, ok := got["query_params"].(map[string]any)
	if !ok {
		t.Fatalf("query_params missing or wrong shape: %v", got["query_params"])
	}
	if qp["token"] != "abc" {
		t.Fatalf("query_params = %v", qp)
	}
}

func TestSnapshotHeaders_NilQuerySerializesToEmptyObject(t *testing.T) {
	snap, err := SnapshotHeaders(map[string]string{}, nil)
	if err != nil {
		t.Fatalf("SnapshotHeaders: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(snap), &got); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if qp, ok := got["query_params"].(map[string]any); !ok || len(qp) != 0 {
		t.Fatalf("query_params = %v, want empty object", got["query_params"])
	}
}
