package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/auth"
	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// ProfileLookup resolves the display name announced in presence events.
type ProfileLookup interface {
	Me(ctx context.Context, userID string) (dto.UserResponse, error)
}

// RealtimeHandler upgrades authenticated requests to websocket connections.
type RealtimeHandler struct {
	service  service.RealtimeService
	verifier auth.TokenVerifier
	profiles ProfileLookup
	logger   zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler instance.
func NewRealtimeHandler(service service.RealtimeService, verifier auth.TokenVerifier, profiles ProfileLookup, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		service:  service,
		verifier: verifier,
		profiles: profiles,
		logger:   logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds /ws. The token is verified before the upgrade so failures get a JSON 401.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", middleware.JWTQueryOrHeader(h.verifier), h.prepare)
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RealtimeHandler) prepare(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.SendError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
	}

	ctx := requestContext(c)
	profile, err := h.profiles.Me(ctx, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	c.Locals("user_name", profile.Name)
	c.Locals("correlation_id", middleware.GetCorrelationID(c))
	// The upgraded handler outlives the request, so it must not inherit its cancellation.
	c.Locals("request_ctx", middleware.ContextWithUserID(
		middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c)),
		profile.ID,
	))
	return c.Next()
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	userName, _ := conn.Locals("user_name").(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.RealtimeConnectionOptions{
		UserID:        userID,
		UserName:      userName,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Msg("realtime websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Msg("realtime websocket disconnected")
}
