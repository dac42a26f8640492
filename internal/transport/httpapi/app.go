package httpapi

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humafiber"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"hooktrap/internal/application/captures"
	"hooktrap/internal/application/hooks"
	"hooktrap/internal/infrastructure/configfile"
)

type Deps struct {
	Version  string
	Config   configfile.Config
	Hooks    *hooks.Service
	Captures *captures.Service
	Logger   *zap.Logger
}

const allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

func NewApp(d Deps) (*fiber.App, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Request spans are no-ops unless a TracerProvider is configured (see internal/observability).
	app.Use(otelfiber.Middleware())
	app.Use(recover.New())
	app.Use(requestLogger(d.Logger))
	app.Use(corsHeaders())

	s := &server{
		cfg:      d.Config,
		hooks:    d.Hooks,
		captures: d.Captures,
		log:      d.Logger,
	}

	// Non-API health check.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Capture surface. Registration order is routing precedence:
	// /webhook/list must come before /webhook/:id/list.
	app.Post("/new/hook", s.createHook)
	app.All("/r/*", s.captureRequest)
	app.Get("/webhook/list", s.listHooks)
	app.Get("/webhook/:id/list", s.listHookRequests)
	app.Get("/request/:id", s.getRequest)

	// Debug surface stays on huma so it keeps an OpenAPI description.
	humaAPI := humafiber.New(app, huma.DefaultConfig("hooktrap", d.Version))
	registerDebugRoutes(humaAPI, s)

	// Explicit fallback: anything unmatched gets a 200 plain-text greeting,
	// never an error.
	greeting := d.Config.Capture.Greeting
	app.Use(func(c *fiber.Ctx) error {
		return c.SendString(greeting)
	})

	return app, nil
}

// corsHeaders applies permissive cross-origin headers to every response and
// short-circuits OPTIONS before path routing, reflecting the requested
// headers back as allowed.
func corsHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, allowedMethods)
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")
		if c.Method() == fiber.MethodOptions {
			if requested := c.Get(fiber.HeaderAccessControlRequestHeaders); requested != "" {
				c.Set(fiber.HeaderAccessControlAllowHeaders, requested)
			}
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}
