package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/basekick-labs/linkview/internal/coordinator"
	"github.com/basekick-labs/linkview/internal/session"
	"github.com/basekick-labs/linkview/internal/view"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandler serves workspaces: their scenes, interaction events,
// external selections and the selection stream.
type SessionHandler struct {
	manager *session.Manager
	hub     *session.Hub
	logger  zerolog.Logger
}

// NewSessionHandler creates a session handler. hub may be nil, which
// disables the stream endpoint.
func NewSessionHandler(manager *session.Manager, hub *session.Hub, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		hub:     hub,
		logger:  logger.With().Str("component", "session-handler").Logger(),
	}
}

// RegisterRoutes registers session endpoints
func (h *SessionHandler) RegisterRoutes(app *fiber.App) {
	g := app.Group("/api/v1/sessions")
	g.Post("/", h.createSession)
	g.Get("/:id", h.getSession)
	g.Delete("/:id", h.deleteSession)

	g.Get("/:id/scatter", h.scatterScene)
	g.Get("/:id/scatter.svg", h.scatterSVG)
	g.Get("/:id/parallel", h.parallelScene)
	g.Get("/:id/parallel.svg", h.parallelSVG)

	g.Post("/:id/events", h.applyEvent)
	g.Post("/:id/selection", h.updateSelection)
	g.Get("/:id/summary", h.summary)

	if h.hub != nil {
		g.Get("/:id/stream", h.streamUpgrade, h.streamHandler())
	}
}

func (h *SessionHandler) createSession(c *fiber.Ctx) error {
	w, err := h.manager.Create()
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         w.ID(),
		"created_at": w.CreatedAt().UTC().Format(time.RFC3339),
		"ready":      h.manager.Ready(),
	})
}

func (h *SessionHandler) getSession(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":         w.ID(),
		"created_at": w.CreatedAt().UTC().Format(time.RFC3339),
		"ready":      h.manager.Ready(),
		"selected":   w.Selected(),
	})
}

func (h *SessionHandler) deleteSession(c *fiber.Ctx) error {
	if err := h.manager.Delete(c.Params("id")); err != nil {
		return h.sessionError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) scatterScene(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(w.ScatterScene())
}

func (h *SessionHandler) parallelScene(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(w.ParallelScene())
}

func (h *SessionHandler) scatterSVG(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	var buf bytes.Buffer
	if err := view.WriteScatterSVG(&buf, w.ScatterScene()); err != nil {
		return err
	}
	c.Type("svg")
	return c.Send(buf.Bytes())
}

func (h *SessionHandler) parallelSVG(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	var buf bytes.Buffer
	if err := view.WriteParallelSVG(&buf, w.ParallelScene()); err != nil {
		return err
	}
	c.Type("svg")
	return c.Send(buf.Bytes())
}

// applyEvent runs one interaction event. The body is JSON or MessagePack,
// optionally gzip-compressed.
func (h *SessionHandler) applyEvent(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}

	// Request().Body() skips fasthttp's own Content-Encoding handling
	payload := c.Request().Body()
	if len(payload) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty payload",
		})
	}
	payload, err = coordinator.Inflate(payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var ev session.Event
	if isMsgPack(c) {
		err = msgpack.Unmarshal(payload, &ev)
	} else {
		err = json.Unmarshal(payload, &ev)
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid event payload: " + err.Error(),
		})
	}

	res, err := w.Apply(ev)
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(res)
}

// updateSelection feeds an external selection payload to the coordinator.
// An empty body clears the selection; a body that decodes to anything other
// than an id list clears it too.
func (h *SessionHandler) updateSelection(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}

	raw, err := coordinator.DecodePayload(c.Get(fiber.HeaderContentType), c.Request().Body())
	if err != nil && !errors.Is(err, coordinator.ErrEmptyPayload) {
		h.logger.Debug().Err(err).Str("session", w.ID()).Msg("Undecodable selection payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	res, err := w.Select(raw)
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(res)
}

func (h *SessionHandler) summary(c *fiber.Ctx) error {
	w, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(w.Summary())
}

func isMsgPack(c *fiber.Ctx) bool {
	return strings.Contains(strings.ToLower(c.Get(fiber.HeaderContentType)), "msgpack")
}

// sessionError maps session and view errors to HTTP statuses
func (h *SessionHandler) sessionError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, session.ErrTooManySessions):
		code = fiber.StatusTooManyRequests
	case errors.Is(err, session.ErrUnknownEvent),
		errors.Is(err, session.ErrInvalidEvent),
		errors.Is(err, view.ErrUnknownDimension),
		errors.Is(err, view.ErrUnknownRecord):
		code = fiber.StatusBadRequest
	}
	if code == fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("Session request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
