package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/metrics"
	"github.com/meikuraledutech/phenotree/prompt"
	"github.com/meikuraledutech/phenotree/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type appDeps struct {
	sess      *session.Session
	feed      *renderFeed
	metrics   *metrics.Collector
	logger    *zap.Logger
	backendUp func() bool
}

type messageRequest struct {
	Text string `json:"text"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

type panelRequest struct {
	Position phenotree.Position `json:"position"`
	Viewport session.Size       `json:"viewport"`
	Box      session.Size       `json:"box"`
}

func newApp(d appDeps) *fiber.App {
	app := fiber.New()
	sess := d.sess

	app.Use(func(c fiber.Ctx) error {
		id := uuid.NewString()
		c.Set("X-Request-ID", id)
		start := time.Now()
		err := c.Next()
		d.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)))
		return err
	})

	// ── Conversation ──────────────────────────────────────────────────
	app.Get("/state", func(c fiber.Ctx) error {
		st := sess.Snapshot()
		out := fiber.Map{"state": st}
		if len(st.History) == 0 {
			out["greeting"] = session.Greeting
			out["examples"] = prompt.Examples
		}
		return c.JSON(out)
	})

	app.Post("/messages", func(c fiber.Ctx) error {
		var req messageRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		turn, err := sess.Submit(c.Context(), req.Text)
		switch {
		case errors.Is(err, phenotree.ErrEmptyMessage):
			return c.Status(400).JSON(fiber.Map{"error": "message is empty"})
		case errors.Is(err, phenotree.ErrBusy):
			return c.Status(409).JSON(fiber.Map{"error": "a reply is still pending"})
		case errors.Is(err, phenotree.ErrStaleResponse):
			return c.Status(409).JSON(fiber.Map{"error": "conversation was reset"})
		case err != nil:
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"turn": turn})
	})

	app.Put("/draft", func(c fiber.Ctx) error {
		var req messageRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		sess.SetDraft(req.Text)
		return c.SendStatus(204)
	})

	app.Get("/examples", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"examples": prompt.Examples})
	})

	app.Post("/examples/:index", func(c fiber.Ctx) error {
		i, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "index must be a number"})
		}
		text, err := sess.SelectExample(i)
		if errors.Is(err, session.ErrNoSuchExample) {
			return c.Status(404).JSON(fiber.Map{"error": "example not found"})
		}
		return c.JSON(fiber.Map{"draft": text})
	})

	app.Post("/reset", func(c fiber.Ctx) error {
		var req resetRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := sess.Reset(c.Context(), req.Confirm); errors.Is(err, phenotree.ErrNotConfirmed) {
			return c.Status(400).JSON(fiber.Map{"error": "reset must be confirmed"})
		}
		return c.SendStatus(204)
	})

	// ── Canvas ────────────────────────────────────────────────────────
	app.Put("/graph", func(c fiber.Ctx) error {
		var g phenotree.Graph
		if err := c.Bind().JSON(&g); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := phenotree.ValidateGraph(&g); err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		sess.ApplyCanvasEdit(c.Context(), g)
		return c.SendStatus(204)
	})

	app.Get("/canvas", func(c fiber.Ctx) error {
		g, rev := d.feed.latest()
		if since := c.Query("since"); since != "" {
			if n, err := strconv.ParseUint(since, 10, 64); err == nil && n == rev {
				return c.SendStatus(304)
			}
		}
		return c.JSON(fiber.Map{"revision": rev, "graph": g})
	})

	// ── Chat panel ────────────────────────────────────────────────────
	app.Put("/panel", func(c fiber.Ctx) error {
		var req panelRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		pos := sess.MovePanel(c.Context(), req.Position, req.Viewport, req.Box)
		return c.JSON(fiber.Map{"position": pos})
	})

	app.Post("/panel/resize", func(c fiber.Ctx) error {
		var req panelRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		pos := sess.ResizeViewport(c.Context(), req.Viewport, req.Box)
		return c.JSON(fiber.Map{"position": pos})
	})

	app.Post("/panel/toggle", func(c fiber.Ctx) error {
		var req panelRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		return c.JSON(fiber.Map{"panel": sess.ToggleExpanded(c.Context(), req.Viewport)})
	})

	// ── Ops ───────────────────────────────────────────────────────────
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.metrics.Registry(), promhttp.HandlerOpts{})))

	app.Get("/healthz", func(c fiber.Ctx) error {
		out := fiber.Map{"status": "ok", "backend": d.backendUp()}
		if err := sess.LastPersistError(); err != nil {
			out["persist_error"] = err.Error()
		}
		return c.JSON(out)
	})

	return app
}
