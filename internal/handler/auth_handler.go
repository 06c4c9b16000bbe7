package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// AuthHandler exposes account endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic wires the unauthenticated signup and login routes.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	router.Post("/signup", h.signup)
	router.Post("/login", h.login)
}

// Register wires routes that require a verified token.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Put("/profile", h.updateProfile)
	router.Put("/password", h.changePassword)
}

func (h *AuthHandler) signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	session, err := h.service.Signup(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.Created(c, session, "account created")
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	session, err := h.service.Login(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, session, "logged in", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.service.Me(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, user, "current user", nil)
}

func (h *AuthHandler) updateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(requestContext(c), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, user, "profile updated", nil)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if err := h.service.ChangePassword(requestContext(c), middleware.UserID(c), req); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, nil, "password changed", nil)
}
