package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// UploadHandler handles attachment uploads and metadata lookups.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes. guards run before each route only, so they never
// intercept neighbouring paths such as the static /uploads mount.
func (h *UploadHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	with := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, guards...), handler)
	}
	router.Post("/upload", with(h.upload)...)
	router.Post("/upload/multiple", with(h.uploadMany)...)
	router.Get("/files/:id", with(h.get)...)
	router.Delete("/files/:id", with(h.delete)...)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "file is required", map[string]string{"file": "file is required"})
	}

	result, err := h.service.Upload(requestContext(c), middleware.UserID(c), file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, result, "upload successful")
}

func (h *UploadHandler) uploadMany(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "files are required", map[string]string{"files": "files is required"})
	}

	results, err := h.service.UploadMany(requestContext(c), middleware.UserID(c), form.File["files"])
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, results, "upload successful")
}

func (h *UploadHandler) get(c *fiber.Ctx) error {
	result, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, result, "file", nil)
}

func (h *UploadHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "file deleted", nil)
}
