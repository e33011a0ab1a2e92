package handler

import (
	"errors"
	"io"

	"github.com/arslanov/padlock/internal/app/service"
	"github.com/arslanov/padlock/internal/errs"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AttachmentDeps groups dependencies required by attachment handlers.
type AttachmentDeps struct {
	Logger      *zap.Logger
	Attachments *service.AttachmentService
}

// AttachmentHandler implements the file upload/download endpoints.
type AttachmentHandler struct {
	logger      *zap.Logger
	attachments *service.AttachmentService
}

// NewAttachmentHandler creates an attachment handler with the provided dependencies.
func NewAttachmentHandler(deps AttachmentDeps) *AttachmentHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentHandler{
		logger:      logger,
		attachments: deps.Attachments,
	}
}

// Register wires attachment routes onto the provided router.
func (h *AttachmentHandler) Register(router fiber.Router) {
	pads := router.Group("/api/pads")
	{
		pads.Post("/:id/files", h.Upload)
		pads.Post("/:id/files/:fileId", h.Download)
	}
}

// Upload handles POST /api/pads/:id/files (multipart: secret/token + file).
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	padID := c.Params("id")

	creds := service.Credentials{
		Secret: c.FormValue("secret"),
		Token:  c.FormValue("token"),
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read file",
		})
	}

	att, err := h.attachments.Upload(requestContext(c), padID, creds, service.Upload{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		return h.fail(c, err, padID)
	}

	return c.Status(fiber.StatusCreated).JSON(AttachmentResponse{
		ID:          att.ID,
		Filename:    att.Filename,
		Size:        att.Size,
		ContentType: att.ContentType,
		UploadedAt:  att.UploadedAt,
		ExpiresAt:   att.ExpiresAt,
	})
}

// Download handles POST /api/pads/:id/files/:fileId and streams the payload.
func (h *AttachmentHandler) Download(c *fiber.Ctx) error {
	padID := c.Params("id")
	fileID := c.Params("fileId")

	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	dl, err := h.attachments.Get(requestContext(c), padID, req.creds(), fileID)
	if err != nil {
		return h.fail(c, err, padID)
	}

	c.Set(fiber.HeaderContentType, dl.Attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+dl.Attachment.Filename+`"`)
	return c.Send(dl.Data)
}

func (h *AttachmentHandler) fail(c *fiber.Ctx, err error, padID string) error {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	case errors.Is(err, errs.ErrTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "file exceeds the maximum allowed size",
		})
	case errors.Is(err, errs.ErrInvalidFile):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file format is not allowed (pdf, jpeg, png, zip)",
		})
	case errors.Is(err, errs.ErrExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "attachment has expired",
		})
	case errors.Is(err, errs.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "attachment not found",
		})
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "storage backend unavailable",
		})
	default:
		h.logger.Error("attachment operation failed", zap.Error(err), zap.String("pad_id", padID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "attachment operation failed",
		})
	}
}
