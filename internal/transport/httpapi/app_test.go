package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"hooktrap/internal/application/captures"
	"hooktrap/internal/application/hooks"
	"hooktrap/internal/infrastructure/configfile"
	"hooktrap/internal/infrastructure/repository/memory"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := configfile.Default()
	hookRepo := memory.NewHooksRepo()
	requestRepo := memory.NewRequestsRepo()

	app, err := NewApp(Deps{
		Version:  "test",
		Config:   cfg,
		Hooks:    hooks.NewService(hookRepo),
		Captures: captures.NewService(hookRepo, requestRepo),
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createHook(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/new/hook", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create hook status = %d", resp.StatusCode)
	}
	var out struct {
		Status bool   `json:"status"`
		ID     string `json:"id"`
	}
	decodeBody(t, resp, &out)
	if !out.Status || out.ID == "" {
		t.Fatalf("create hook response = %+v", out)
	}
	return out.ID
}

func captureJSON(t *testing.T, app *fiber.App, hookID, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/r/"+hookID, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := doRequest(t, app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("capture status = %d", resp.StatusCode)
	}
	var out struct {
		Status    bool   `json:"status"`
		ID        string `json:"id"`
		WebhookID string `json:"webhook_id"`
	}
	decodeBody(t, resp, &out)
	if !out.Status || out.ID == "" {
		t.Fatalf("capture response = %+v", out)
	}
	if out.WebhookID != hookID {
		t.Fatalf("webhook_id = %q, want %q", out.WebhookID, hookID)
	}
	return out.ID
}

func TestCreateHook_ReturnsUniqueIDs(t *testing.T) {
	app := newTestApp(t)
	a := createHook(t, app)
	b := createHook(t, app)
	if a == b {
		t.Fatalf("two hooks share id %q", a)
	}
}

func TestCapture_JSONBodyRoundTrips(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	req := httptest.NewRequest(http.MethodPost, "/r/"+hookID+"?token=abc", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	resp := doRequest(t, app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("capture status = %d", resp.StatusCode)
	}
	var captured struct {
		Status    bool   `json:"status"`
		ID        string `json:"id"`
		WebhookID string `json:"webhook_id"`
	}
	decodeBody(t, resp, &captured)
	if captured.WebhookID != hookID {
		t.Fatalf("webhook_id = %q, want %q", captured.WebhookID, hookID)
	}

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/request/"+captured.ID, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get request status = %d", resp.StatusCode)
	}
	var detail struct {
		Status bool `json:"status"`
		Data   struct {
			ID      string `json:"id"`
			HookID  string `json:"hook_id"`
			Body    string `json:"body"`
			Headers string `json:"headers"`
			IP      string `json:"ip"`
			Method  string `json:"method"`
			IsCron  bool   `json:"is_cron"`
		} `json:"data"`
	}
	decodeBody(t, resp, &detail)

	var body map[string]any
	if err := json.Unmarshal([]byte(detail.Data.Body), &body); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	if !reflect.DeepEqual(body, map[string]any{"a": float64(1)}) {
		t.Fatalf("body = %v", body)
	}
	if detail.Data.IP != "203.0.113.9" {
		t.Fatalf("ip = %q, want trusted header value", detail.Data.IP)
	}
	if detail.Data.Method != http.MethodPost || detail.Data.IsCron {
		t.Fatalf("row = %+v", detail.Data)
	}

	var headers map[string]any
	if err := json.Unmarshal([]byte(detail.Data.Headers), &headers); err != nil {
		t.Fatalf("stored headers are not JSON: %v", err)
	}
	qp, ok := headers["query_params"].(map[string]any)
	if !ok || qp["token"] != "abc" {
		t.Fatalf("query_params = %v", headers["query_params"])
	}
}

func TestCapture_FormBody(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	req := httptest.NewRequest(http.MethodPost, "/r/"+hookID, strings.NewReader("a=1&b=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := doRequest(t, app, req)
	var captured struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &captured)

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/request/"+captured.ID, nil))
	var detail struct {
		Data struct {
			Body string `json:"body"`
		} `json:"data"`
	}
	decodeBody(t, resp, &detail)

	var body map[string]string
	if err := json.Unmarshal([]byte(detail.Data.Body), &body); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	if !reflect.DeepEqual(body, map[string]string{"a": "1", "b": "2"}) {
		t.Fatalf("body = %v", body)
	}
}

func TestCapture_EmptyBodyStoresEmptyObjectText(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	captureID := captureJSON(t, app, hookID, "")

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/request/"+captureID, nil))
	var detail struct {
		Data struct {
			Body string `json:"body"`
		} `json:"data"`
	}
	decodeBody(t, resp, &detail)
	if detail.Data.Body != "{}" {
		t.Fatalf("body = %q, want {}", detail.Data.Body)
	}
}

func TestCapture_MalformedJSONBodyIsStoreError(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	req := httptest.NewRequest(http.MethodPost, "/r/"+hookID, strings.NewReader(`{"broken`))
	req.Header.Set("Content-Type", "application/json")
	resp := doRequest(t, app, req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out struct {
		Status bool   `json:"status"`
		Error  string `json:"error"`
		Log    string `json:"log"`
	}
	decodeBody(t, resp, &out)
	if out.Status || out.Error == "" || out.Log == "" {
		t.Fatalf("error envelope = %+v", out)
	}
}

func TestCapture_UnknownHookPersistsNothing(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/r/never-created", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp := doRequest(t, app, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/webhook/never-created/list", nil))
	var listing struct {
		Status   bool              `json:"status"`
		Requests []json.RawMessage `json:"requests"`
	}
	decodeBody(t, resp, &listing)
	if !listing.Status || len(listing.Requests) != 0 {
		t.Fatalf("listing = %+v", listing)
	}
}

func TestCapture_EmptyHookID(t *testing.T) {
	app := newTestApp(t)
	resp := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/r/", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var out struct {
		Status bool   `json:"status"`
		Error  string `json:"error"`
	}
	decodeBody(t, resp, &out)
	if out.Status || out.Error == "" {
		t.Fatalf("error envelope = %+v", out)
	}
}

func TestListRequests_EmptyHookIsNotNotFound(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/webhook/"+hookID+"/list", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var listing struct {
		Status   bool              `json:"status"`
		Requests []json.RawMessage `json:"requests"`
	}
	decodeBody(t, resp, &listing)
	if !listing.Status {
		t.Fatal("status = false")
	}
	if listing.Requests == nil || len(listing.Requests) != 0 {
		t.Fatalf("requests = %v, want empty list", listing.Requests)
	}
}

func TestListRequests_SortOrders(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	ids := []string{
		captureJSON(t, app, hookID, `{"n":1}`),
		captureJSON(t, app, hookID, `{"n":2}`),
		captureJSON(t, app, hookID, `{"n":3}`),
	}

	type row struct {
		ID        string `json:"id"`
		CreatedAt string `json:"created_at"`
	}
	fetch := func(query string) []row {
		resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/webhook/"+hookID+"/list"+query, nil))
		var listing struct {
			Status   bool  `json:"status"`
			Requests []row `json:"requests"`
		}
		decodeBody(t, resp, &listing)
		if !listing.Status || len(listing.Requests) != len(ids) {
			t.Fatalf("listing for %q = %+v", query, listing)
		}
		return listing.Requests
	}

	parseTS := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			t.Fatalf("created_at %q: %v", s, err)
		}
		return ts
	}

	oldFirst := fetch("?sort=old")
	for i := 1; i < len(oldFirst); i++ {
		if parseTS(oldFirst[i].CreatedAt).Before(parseTS(oldFirst[i-1].CreatedAt)) {
			t.Fatalf("sort=old not non-decreasing: %+v", oldFirst)
		}
	}

	newFirst := fetch("?sort=new")
	defaultOrder := fetch("")
	if !reflect.DeepEqual(newFirst, defaultOrder) {
		t.Fatalf("default order differs from sort=new:\n%+v\n%+v", defaultOrder, newFirst)
	}
	for i := range newFirst {
		if newFirst[i] != oldFirst[len(oldFirst)-1-i] {
			t.Fatalf("sort=new is not the reverse of sort=old:\n%+v\n%+v", newFirst, oldFirst)
		}
	}
}

func TestGetRequest_Unknown(t *testing.T) {
	app := newTestApp(t)
	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/request/never-created", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListHooks(t *testing.T) {
	app := newTestApp(t)

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/webhook/list", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var listing struct {
		Status   bool              `json:"status"`
		Webhooks []json.RawMessage `json:"webhooks"`
	}
	decodeBody(t, resp, &listing)
	if !listing.Status || len(listing.Webhooks) != 0 {
		t.Fatalf("empty listing = %+v", listing)
	}

	createHook(t, app)
	createHook(t, app)
	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/webhook/list", nil))
	decodeBody(t, resp, &listing)
	if len(listing.Webhooks) != 2 {
		t.Fatalf("len = %d, want 2", len(listing.Webhooks))
	}
}

func TestOptions_PreflightEchoesRequestedHeaders(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/r/anything", nil)
	req.Header.Set("Access-Control-Request-Headers", "content-type, x-custom")
	resp := doRequest(t, app, req)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("status = %d, want 2xx", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "content-type, x-custom" {
		t.Fatalf("allow-headers = %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("allow-methods missing")
	}
	if got := resp.Header.Get("Access-Control-Max-Age"); got != "86400" {
		t.Fatalf("max-age = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(body) != 0 {
		t.Fatalf("preflight body = %q, want empty", body)
	}
}

func TestUnmatchedPathServesGreeting(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/definitely/not/a/route"} {
		resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != "Hello World!" {
			t.Fatalf("%s: body = %q", path, body)
		}
	}

	// Method mismatch on a known path falls through to the greeting too.
	resp := doRequest(t, app, httptest.NewRequest(http.MethodPost, "/webhook/list", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCORSHeadersOnJSONResponses(t *testing.T) {
	app := newTestApp(t)
	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/webhook/list", nil))
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestDebugRoutes(t *testing.T) {
	app := newTestApp(t)
	hookID := createHook(t, app)

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/v1/debug/routes", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Routes []struct {
			Method string `json:"method"`
			Path   string `json:"path"`
		} `json:"routes"`
		Hooks []struct {
			ID     string `json:"id"`
			Active bool   `json:"active"`
		} `json:"hooks"`
	}
	decodeBody(t, resp, &out)
	if len(out.Routes) == 0 {
		t.Fatal("no routes reported")
	}
	if len(out.Hooks) != 1 || out.Hooks[0].ID != hookID || !out.Hooks[0].Active {
		t.Fatalf("hooks = %+v", out.Hooks)
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
