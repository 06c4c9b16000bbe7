package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
	"github.com/noah-isme/studyrooms-api/internal/service"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// listQuery reads the shared paging and filter parameters.
func listQuery(c *fiber.Ctx) (dto.ListQuery, map[string]string) {
	details := map[string]string{}
	page, err := parseQueryInt(c, "page")
	if err != nil || page < 0 {
		details["page"] = "page must be a positive integer"
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		details["limit"] = "limit must be a positive integer"
	}
	if len(details) > 0 {
		return dto.ListQuery{}, details
	}

	return dto.ListQuery{
		Query:  strings.TrimSpace(c.Query("q")),
		Type:   strings.TrimSpace(c.Query("type")),
		Status: strings.TrimSpace(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}, nil
}

// requestContext carries the request's cancellation plus correlation and caller ids into services.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	if userID := middleware.UserID(c); userID != "" {
		ctx = middleware.ContextWithUserID(ctx, userID)
	}
	return ctx
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func bindJSON(c *fiber.Ctx, target interface{}) error {
	if err := c.BodyParser(target); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func sendPage[T any](c *fiber.Ctx, page service.Paged[T], message string) error {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return utils.OK(c, items, message, utils.PageMeta{Page: page.Page, Limit: page.Limit, Total: page.Total})
}

// respondError maps service errors onto HTTP statuses without leaking internals.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validation.Fields)
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, publicMessage(err, service.ErrForbidden))
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return utils.SendError(c, fiber.StatusConflict, publicMessage(err, service.ErrConflict))
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, service.ErrUploadTooLarge.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrUploadScanFailed):
		return utils.Fail(c, fiber.StatusBadRequest, "upload rejected", map[string]string{"file": err.Error()})
	case errors.Is(err, context.Canceled):
		return utils.SendError(c, fiber.StatusRequestTimeout, "request cancelled")
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// publicMessage drops the "<kind>: " prefix of wrapped sentinel errors.
func publicMessage(err, kind error) string {
	message := err.Error()
	if trimmed := strings.TrimPrefix(message, kind.Error()+": "); trimmed != "" {
		return trimmed
	}
	return message
}
