package handler

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/localaid/localaid-api/internal/service"
	"github.com/localaid/localaid-api/internal/utils"
)

// UploadHandler exposes the image upload endpoints.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler creates an upload handler instance.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register binds upload routes under the authenticated router group.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("/uploads/profile", h.profile)
	router.Post("/uploads/message", h.message)
	router.Post("/uploads/post-images", h.postImages)
}

func (h *UploadHandler) profile(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "image file is required")
	}

	result, err := h.service.UploadProfile(requestContext(c), userIDFromContext(c), file)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "profile picture updated", result)
}

func (h *UploadHandler) message(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "image file is required")
	}

	result, err := h.service.UploadMessageImage(requestContext(c), file)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "image uploaded", result)
}

func (h *UploadHandler) postImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "multipart form required")
	}

	files := collectFiles(form, "images")
	result, err := h.service.UploadPostImages(requestContext(c), files)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "images uploaded", result)
}

func collectFiles(form *multipart.Form, field string) []*multipart.FileHeader {
	if form == nil || form.File == nil {
		return nil
	}
	return form.File[field]
}
