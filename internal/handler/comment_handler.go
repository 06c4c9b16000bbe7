package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// CommentHandler exposes threaded comment endpoints.
type CommentHandler struct {
	service service.CommentService
	logger  zerolog.Logger
}

// NewCommentHandler constructs a comment handler.
func NewCommentHandler(service service.CommentService, logger zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		service: service,
		logger:  logger.With().Str("component", "comment_handler").Logger(),
	}
}

// Register wires comment routes. GET takes a parent id; the mutating routes take a comment id.
func (h *CommentHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:parentId", h.list)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/like", h.like)
	router.Delete("/:id/like", h.unlike)
	router.Post("/:id/solution", h.markSolution)
	router.Delete("/:id/solution", h.unmarkSolution)
}

func (h *CommentHandler) list(c *fiber.Ctx) error {
	query, details := listQuery(c)
	if details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	}

	page, err := h.service.ListByParent(requestContext(c), middleware.UserID(c), c.Params("parentId"), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendPage(c, page, "comments")
}

func (h *CommentHandler) create(c *fiber.Ctx) error {
	var req dto.CreateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	comment, err := h.service.Create(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, comment, "comment created")
}

func (h *CommentHandler) update(c *fiber.Ctx) error {
	var req dto.UpdateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	comment, err := h.service.Update(requestContext(c), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, comment, "comment updated", nil)
}

func (h *CommentHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "comment deleted", nil)
}

func (h *CommentHandler) like(c *fiber.Ctx) error {
	comment, err := h.service.Like(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, comment, "comment liked", nil)
}

func (h *CommentHandler) unlike(c *fiber.Ctx) error {
	comment, err := h.service.Unlike(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, comment, "comment unliked", nil)
}

func (h *CommentHandler) markSolution(c *fiber.Ctx) error {
	comment, err := h.service.MarkSolution(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, comment, "solution marked", nil)
}

func (h *CommentHandler) unmarkSolution(c *fiber.Ctx) error {
	comment, err := h.service.UnmarkSolution(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, comment, "solution unmarked", nil)
}
