package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// PostHandler exposes post endpoints.
type PostHandler struct {
	service service.PostService
	logger  zerolog.Logger
}

// NewPostHandler constructs a post handler.
func NewPostHandler(service service.PostService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service: service,
		logger:  logger.With().Str("component", "post_handler").Logger(),
	}
}

// RegisterRoomRoutes wires the routes nested under /rooms/:id.
func (h *PostHandler) RegisterRoomRoutes(router fiber.Router) {
	router.Get("/:id/posts", h.list)
	router.Post("/:id/posts", h.create)
	router.Get("/:id/posts/search", h.list)
}

// Register wires routes addressed by post id.
func (h *PostHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/like", h.like)
	router.Delete("/:id/like", h.unlike)
	router.Post("/:id/pin", h.pin)
	router.Delete("/:id/pin", h.unpin)
}

func (h *PostHandler) list(c *fiber.Ctx) error {
	query, details := listQuery(c)
	if details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	}

	page, err := h.service.List(requestContext(c), middleware.UserID(c), c.Params("id"), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendPage(c, page, "posts")
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	var req dto.CreatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	post, err := h.service.Create(requestContext(c), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, post, "post created")
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	post, err := h.service.Get(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, post, "post", nil)
}

func (h *PostHandler) update(c *fiber.Ctx) error {
	var req dto.UpdatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	post, err := h.service.Update(requestContext(c), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, post, "post updated", nil)
}

func (h *PostHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "post deleted", nil)
}

func (h *PostHandler) like(c *fiber.Ctx) error {
	post, err := h.service.Like(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, post, "post liked", nil)
}

func (h *PostHandler) unlike(c *fiber.Ctx) error {
	post, err := h.service.Unlike(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, post, "post unliked", nil)
}

func (h *PostHandler) pin(c *fiber.Ctx) error {
	return h.setPinned(c, true)
}

func (h *PostHandler) unpin(c *fiber.Ctx) error {
	return h.setPinned(c, false)
}

func (h *PostHandler) setPinned(c *fiber.Ctx, pinned bool) error {
	post, err := h.service.SetPinned(requestContext(c), middleware.UserID(c), c.Params("id"), pinned)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	message := "post unpinned"
	if pinned {
		message = "post pinned"
	}
	return utils.OK(c, post, message, nil)
}
