package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hooktrap/internal/application/captures"
	"hooktrap/internal/application/hooks"
	"hooktrap/internal/application/ports"
	"hooktrap/internal/domain/capture"
	"hooktrap/internal/domain/hook"
	"hooktrap/internal/infrastructure/configfile"
)

type server struct {
	cfg      configfile.Config
	hooks    *hooks.Service
	captures *captures.Service
	log      *zap.Logger
}

// Every endpoint answers inside the legacy envelope: {status:true,...} on
// success, {status:false,error,log?} on failure. The log field echoes the
// underlying error text; the detailed error additionally goes to the
// server-side logger.
type errorEnvelope struct {
	Status bool   `json:"status"`
	Error  string `json:"error"`
	Log    string `json:"log,omitempty"`
}

type createHookResponse struct {
	Status bool   `json:"status"`
	ID     string `json:"id"`
}

type captureResponse struct {
	Status    bool   `json:"status"`
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`
}

type hookListResponse struct {
	Status   bool         `json:"status"`
	Webhooks []*hook.Hook `json:"webhooks"`
}

type requestListResponse struct {
	Status   bool              `json:"status"`
	Requests []capture.Summary `json:"requests"`
}

type requestDetailResponse struct {
	Status bool             `json:"status"`
	Data   *capture.Request `json:"data"`
}

func (s *server) fail(c *fiber.Ctx, status int, msg string, err error) error {
	env := errorEnvelope{Status: false, Error: msg}
	if err != nil {
		env.Log = err.Error()
		s.log.Error(msg,
			zap.Int("status", status),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(env)
}

func (s *server) createHook(c *fiber.Ctx) error {
	h, err := s.hooks.Create(c.UserContext())
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, "Error while creating new hook", err)
	}
	return c.JSON(createHookResponse{Status: true, ID: h.ID})
}

func (s *server) captureRequest(c *fiber.Ctx) error {
	hookID := c.Params("*")
	// The id is the whole remainder after /r/, up to an embedded query marker.
	if i := strings.IndexByte(hookID, '?'); i >= 0 {
		hookID = hookID[:i]
	}
	if hookID == "" {
		return s.fail(c, fiber.StatusBadRequest, "Hook ID not found", nil)
	}

	headers := make(map[string]string)
	for k, vs := range c.GetReqHeaders() {
		headers[k] = strings.Join(vs, ", ")
	}

	r, err := s.captures.Capture(c.UserContext(), captures.Params{
		HookID:      hookID,
		Method:      c.Method(),
		ContentType: c.Get(fiber.HeaderContentType),
		Headers:     headers,
		Query:       c.Queries(),
		Body:        c.Body(),
		ClientIP:    c.Get(s.cfg.Capture.TrustedIPHeader),
	})
	if errors.Is(err, captures.ErrHookNotFound) {
		return s.fail(c, fiber.StatusNotFound, "Webhook not found", nil)
	}
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, "Error while recording request", err)
	}
	return c.JSON(captureResponse{Status: true, ID: r.ID, WebhookID: r.HookID})
}

func (s *server) listHooks(c *fiber.Ctx) error {
	hs, err := s.hooks.List(c.UserContext())
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, "Error while fetching webhooks", err)
	}
	if hs == nil {
		hs = []*hook.Hook{}
	}
	return c.JSON(hookListResponse{Status: true, Webhooks: hs})
}

func (s *server) listHookRequests(c *fiber.Ctx) error {
	hookID := strings.TrimSpace(c.Params("id"))
	if hookID == "" {
		return s.fail(c, fiber.StatusBadRequest, "Webhook ID not found", nil)
	}

	order := ports.OrderFromQuery(c.Query("sort"))
	rs, err := s.captures.ListForHook(c.UserContext(), hookID, order)
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, "Error while fetching requests", err)
	}
	if rs == nil {
		rs = []capture.Summary{}
	}
	return c.JSON(requestListResponse{Status: true, Requests: rs})
}

func (s *server) getRequest(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return s.fail(c, fiber.StatusBadRequest, "Request ID not found", nil)
	}

	r, ok, err := s.captures.Get(c.UserContext(), id)
	if err != nil {
		return s.fail(c, fiber.StatusInternalServerError, "Error while fetching request details", err)
	}
	if !ok {
		return s.fail(c, fiber.StatusNotFound, "Request not found", nil)
	}
	return c.JSON(requestDetailResponse{Status: true, Data: r})
}
