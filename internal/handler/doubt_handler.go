package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// DoubtHandler exposes doubt endpoints.
type DoubtHandler struct {
	service service.DoubtService
	logger  zerolog.Logger
}

// NewDoubtHandler constructs a doubt handler.
func NewDoubtHandler(service service.DoubtService, logger zerolog.Logger) *DoubtHandler {
	return &DoubtHandler{
		service: service,
		logger:  logger.With().Str("component", "doubt_handler").Logger(),
	}
}

// RegisterRoomRoutes wires the routes nested under /rooms/:id.
func (h *DoubtHandler) RegisterRoomRoutes(router fiber.Router) {
	router.Get("/:id/doubts", h.list)
	router.Post("/:id/doubts", h.create)
	router.Get("/:id/doubts/search", h.list)
}

// Register wires routes addressed by doubt id.
func (h *DoubtHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/like", h.like)
	router.Delete("/:id/like", h.unlike)
	router.Post("/:id/urgent", h.flag(func(c *fiber.Ctx, userID, id string) (dto.DoubtResponse, error) {
		return h.service.SetUrgent(requestContext(c), userID, id, true)
	}, "doubt marked urgent"))
	router.Delete("/:id/urgent", h.flag(func(c *fiber.Ctx, userID, id string) (dto.DoubtResponse, error) {
		return h.service.SetUrgent(requestContext(c), userID, id, false)
	}, "doubt no longer urgent"))
	router.Post("/:id/close", h.flag(func(c *fiber.Ctx, userID, id string) (dto.DoubtResponse, error) {
		return h.service.SetClosed(requestContext(c), userID, id, true)
	}, "doubt closed"))
	router.Post("/:id/reopen", h.flag(func(c *fiber.Ctx, userID, id string) (dto.DoubtResponse, error) {
		return h.service.SetClosed(requestContext(c), userID, id, false)
	}, "doubt reopened"))
}

func (h *DoubtHandler) list(c *fiber.Ctx) error {
	query, details := listQuery(c)
	if details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	}

	page, err := h.service.List(requestContext(c), middleware.UserID(c), c.Params("id"), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendPage(c, page, "doubts")
}

func (h *DoubtHandler) create(c *fiber.Ctx) error {
	var req dto.CreateDoubtRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	doubt, err := h.service.Create(requestContext(c), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, doubt, "doubt created")
}

func (h *DoubtHandler) get(c *fiber.Ctx) error {
	doubt, err := h.service.Get(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, doubt, "doubt", nil)
}

func (h *DoubtHandler) update(c *fiber.Ctx) error {
	var req dto.UpdateDoubtRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	doubt, err := h.service.Update(requestContext(c), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, doubt, "doubt updated", nil)
}

func (h *DoubtHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "doubt deleted", nil)
}

func (h *DoubtHandler) like(c *fiber.Ctx) error {
	doubt, err := h.service.Like(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, doubt, "doubt liked", nil)
}

func (h *DoubtHandler) unlike(c *fiber.Ctx) error {
	doubt, err := h.service.Unlike(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, doubt, "doubt unliked", nil)
}

type doubtFlagFunc func(c *fiber.Ctx, userID, doubtID string) (dto.DoubtResponse, error)

func (h *DoubtHandler) flag(apply doubtFlagFunc, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doubt, err := apply(c, middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return utils.OK(c, doubt, message, nil)
	}
}
