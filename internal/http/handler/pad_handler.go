package handler

import (
	"context"
	"errors"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	"github.com/arslanov/padlock/internal/app/service"
	"github.com/arslanov/padlock/internal/errs"
	httputil "github.com/arslanov/padlock/internal/http/util"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PadDeps groups dependencies required by pad handlers.
type PadDeps struct {
	Logger     *zap.Logger
	Pads       service.PadService
	Summarizer *service.Summarizer
	Tokens     *httputil.TokenSigner

	// RateLimit, when set, guards the secret-guessing entry points
	// (create and verify).
	RateLimit fiber.Handler
}

// PadHandler implements the pad API endpoints.
type PadHandler struct {
	logger     *zap.Logger
	pads       service.PadService
	summarizer *service.Summarizer
	tokens     *httputil.TokenSigner
	rateLimit  fiber.Handler
}

// NewPadHandler creates a pad handler with the provided dependencies.
func NewPadHandler(deps PadDeps) *PadHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PadHandler{
		logger:     logger,
		pads:       deps.Pads,
		summarizer: deps.Summarizer,
		tokens:     deps.Tokens,
		rateLimit:  deps.RateLimit,
	}
}

// Register wires pad routes onto the provided router. Create and verify are
// the endpoints worth brute-forcing, so only they take the rate limiter.
func (h *PadHandler) Register(router fiber.Router) {
	pads := router.Group("/api/pads")
	{
		pads.Get("/:id/exists", h.Exists)
		pads.Post("/:id", h.guarded(h.Create)...)
		pads.Post("/:id/verify", h.guarded(h.Verify)...)
		pads.Post("/:id/get", h.Get)
		pads.Post("/:id/save", h.Save)
		pads.Post("/:id/summary", h.Summarize)
		pads.Post("/:id/activity", h.Activity)
	}
}

func (h *PadHandler) guarded(handler fiber.Handler) []fiber.Handler {
	if h.rateLimit == nil {
		return []fiber.Handler{handler}
	}
	return []fiber.Handler{h.rateLimit, handler}
}

// CredentialsRequest is the common request body for pad-scoped operations.
// Either the pad secret or a token from a prior verify is accepted.
type CredentialsRequest struct {
	Secret string `json:"secret,omitempty"`
	Token  string `json:"token,omitempty"`
}

func (r CredentialsRequest) creds() service.Credentials {
	return service.Credentials{Secret: r.Secret, Token: r.Token}
}

// SaveRequest is the request body for saving pad content.
type SaveRequest struct {
	CredentialsRequest
	Content string `json:"content"`
}

// AttachmentResponse mirrors attachment metadata in API responses.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Exists handles GET /api/pads/:id/exists
func (h *PadHandler) Exists(c *fiber.Ctx) error {
	id := c.Params("id")

	exists, err := h.pads.Exists(requestContext(c), id)
	if err != nil {
		h.logger.Error("failed to check pad existence", zap.Error(err), zap.String("pad_id", id))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to check pad",
		})
	}

	return c.JSON(fiber.Map{"exists": exists})
}

// Create handles POST /api/pads/:id
func (h *PadHandler) Create(c *fiber.Ctx) error {
	id := c.Params("id")

	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Secret == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "secret is required",
		})
	}

	pad, err := h.pads.CreatePad(requestContext(c), id, req.Secret)
	if err != nil {
		return h.fail(c, err, "failed to create pad", id)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         pad.ID,
		"created_at": pad.CreatedAt,
	})
}

// Verify handles POST /api/pads/:id/verify and issues a short-lived token.
func (h *PadHandler) Verify(c *fiber.Ctx) error {
	id := c.Params("id")

	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.pads.Verify(requestContext(c), id, req.Secret); err != nil {
		return h.fail(c, err, "failed to verify pad", id)
	}

	resp := fiber.Map{"ok": true}
	if h.tokens != nil {
		if token, err := h.tokens.Issue(id); err == nil {
			resp["token"] = token
		}
	}
	return c.JSON(resp)
}

// Get handles POST /api/pads/:id/get
func (h *PadHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	view, err := h.pads.GetPad(requestContext(c), id, req.creds())
	if err != nil {
		return h.fail(c, err, "failed to load pad", id)
	}

	files := make([]AttachmentResponse, len(view.Files))
	for i, att := range view.Files {
		files[i] = AttachmentResponse{
			ID:          att.ID,
			Filename:    att.Filename,
			Size:        att.Size,
			ContentType: att.ContentType,
			UploadedAt:  att.UploadedAt,
			ExpiresAt:   att.ExpiresAt,
		}
	}

	return c.JSON(fiber.Map{
		"content":    view.Content,
		"updated_at": view.UpdatedAt,
		"files":      files,
	})
}

// Save handles POST /api/pads/:id/save
func (h *PadHandler) Save(c *fiber.Ctx) error {
	id := c.Params("id")

	var req SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	pad, err := h.pads.SavePad(requestContext(c), id, req.creds(), req.Content)
	if err != nil {
		return h.fail(c, err, "failed to save pad", id)
	}

	return c.JSON(fiber.Map{
		"saved":      true,
		"updated_at": pad.UpdatedAt,
	})
}

// Summarize handles POST /api/pads/:id/summary
func (h *PadHandler) Summarize(c *fiber.Ctx) error {
	id := c.Params("id")

	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	ctx := requestContext(c)
	view, err := h.pads.GetPad(ctx, id, req.creds())
	if err != nil {
		return h.fail(c, err, "failed to load pad", id)
	}

	summary := h.summarizer.Summarize(ctx, view.Content)
	return c.JSON(summary)
}

// Activity handles POST /api/pads/:id/activity
func (h *PadHandler) Activity(c *fiber.Ctx) error {
	id := c.Params("id")

	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	events, err := h.pads.RecentActivity(requestContext(c), id, req.creds(), c.QueryInt("limit"))
	if err != nil {
		return h.fail(c, err, "failed to load pad activity", id)
	}
	if events == nil {
		events = []model.ActivityEvent{}
	}

	return c.JSON(fiber.Map{"events": events})
}

// fail maps service errors to HTTP responses. Authorization failures stay
// generic so pad identifiers are never confirmed by error shape.
func (h *PadHandler) fail(c *fiber.Ctx, err error, logMsg, padID string) error {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	case errors.Is(err, errs.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "pad id is already taken",
		})
	case errors.Is(err, service.ErrInvalidPadID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "pad id must be 1-64 characters of letters, digits, _ or -",
		})
	case errors.Is(err, errs.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "storage backend unavailable",
		})
	default:
		h.logger.Error(logMsg, zap.Error(err), zap.String("pad_id", padID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": logMsg,
		})
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
