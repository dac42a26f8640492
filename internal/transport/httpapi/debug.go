package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

type debugRoute struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type debugHook struct {
	ID                string    `json:"id"`
	Active            bool      `json:"active"`
	TotalRequestCount int64     `json:"total_request_count"`
	CreatedAt         time.Time `json:"created_at"`
}

type debugRoutesOutput struct {
	Body struct {
		Routes []debugRoute `json:"routes"`
		Hooks  []debugHook  `json:"hooks"`
	}
}

// registerDebugRoutes mounts the debug surface: the capture routing table
// plus the current hook set.
func registerDebugRoutes(api huma.API, s *server) {
	huma.Get(api, "/v1/debug/routes", func(ctx context.Context, _ *struct{}) (*debugRoutesOutput, error) {
		out := &debugRoutesOutput{}
		out.Body.Routes = []debugRoute{
			{Method: http.MethodPost, Path: "/new/hook"},
			{Method: "ANY", Path: "/r/{hook_id}"},
			{Method: http.MethodGet, Path: "/webhook/list"},
			{Method: http.MethodGet, Path: "/webhook/{hook_id}/list"},
			{Method: http.MethodGet, Path: "/request/{request_id}"},
			{Method: http.MethodGet, Path: "/v1/debug/routes"},
		}

		hs, err := s.hooks.List(ctx)
		if err != nil {
			return nil, err
		}
		out.Body.Hooks = make([]debugHook, 0, len(hs))
		for _, h := range hs {
			out.Body.Hooks = append(out.Body.Hooks, debugHook{
				ID:                h.ID,
				Active:            h.Active,
				TotalRequestCount: h.TotalRequestCount,
				CreatedAt:         h.CreatedAt,
			})
		}
		return out, nil
	})
}
