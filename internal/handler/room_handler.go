package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// RoomHandler exposes room and membership endpoints.
type RoomHandler struct {
	service service.RoomService
	logger  zerolog.Logger
}

// NewRoomHandler constructs a room handler.
func NewRoomHandler(service service.RoomService, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		logger:  logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register wires room routes. Static segments are registered before /:id.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/search", h.list)
	router.Post("/join", h.joinByCode)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/join", h.joinPublic)
	router.Post("/:id/leave", h.leave)
	router.Get("/:id/members", h.members)
}

func (h *RoomHandler) list(c *fiber.Ctx) error {
	query, details := listQuery(c)
	if details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	}

	page, err := h.service.List(requestContext(c), middleware.UserID(c), dto.RoomListQuery{
		Query: query.Query,
		Page:  query.Page,
		Limit: query.Limit,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendPage(c, page, "rooms")
}

func (h *RoomHandler) create(c *fiber.Ctx) error {
	var req dto.CreateRoomRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	room, err := h.service.Create(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, room, "room created")
}

func (h *RoomHandler) get(c *fiber.Ctx) error {
	room, err := h.service.Get(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, room, "room", nil)
}

func (h *RoomHandler) update(c *fiber.Ctx) error {
	var req dto.UpdateRoomRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	room, err := h.service.Update(requestContext(c), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, room, "room updated", nil)
}

func (h *RoomHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "room deleted", nil)
}

func (h *RoomHandler) joinByCode(c *fiber.Ctx) error {
	var req dto.JoinRoomRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.InviteCode = strings.TrimSpace(req.InviteCode)

	room, err := h.service.JoinByCode(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, room, "joined room", nil)
}

func (h *RoomHandler) joinPublic(c *fiber.Ctx) error {
	room, err := h.service.JoinPublic(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, room, "joined room", nil)
}

func (h *RoomHandler) leave(c *fiber.Ctx) error {
	if err := h.service.Leave(requestContext(c), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "left room", nil)
}

func (h *RoomHandler) members(c *fiber.Ctx) error {
	members, err := h.service.Members(requestContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, members, "room members", nil)
}
