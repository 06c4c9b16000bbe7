package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studyrooms-api/internal/auth"
	"github.com/noah-isme/studyrooms-api/internal/observability"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

const userIDLocal = "user_id"

type userIDKey struct{}

// JWTProtected validates bearer tokens and binds the verified user id to the request.
func JWTProtected(verifier auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := headerToken(c)
		if !ok {
			return nil
		}
		return authenticate(c, verifier, token)
	}
}

// JWTQueryOrHeader accepts the token from the "token" query parameter, falling back to the
// Authorization header. Browsers cannot set headers on websocket upgrades.
func JWTQueryOrHeader(verifier auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			return authenticate(c, verifier, token)
		}
		token, ok := headerToken(c)
		if !ok {
			return nil
		}
		return authenticate(c, verifier, token)
	}
}

// headerToken reads the bearer token, writing a 401 response when it is absent or malformed.
func headerToken(c *fiber.Ctx) (string, bool) {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authorization == "" {
		observability.AuthFailures().WithLabelValues("missing_token").Inc()
		_ = utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		return "", false
	}

	token, ok := BearerToken(authorization)
	if !ok {
		observability.AuthFailures().WithLabelValues("malformed_header").Inc()
		_ = utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		return "", false
	}
	return token, true
}

func authenticate(c *fiber.Ctx, verifier auth.TokenVerifier, token string) error {
	claims, err := verifier.Verify(token)
	if err != nil {
		return rejectToken(c, err)
	}

	c.Locals(userIDLocal, claims.UserID)
	c.SetUserContext(ContextWithUserID(c.UserContext(), claims.UserID))
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const bearer = "bearer "
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}

func rejectToken(c *fiber.Ctx, err error) error {
	if errors.Is(err, auth.ErrTokenExpired) {
		observability.AuthFailures().WithLabelValues("expired_token").Inc()
		return utils.SendError(c, fiber.StatusUnauthorized, "token expired")
	}
	observability.AuthFailures().WithLabelValues("invalid_token").Inc()
	return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
}

// UserID returns the authenticated user id bound by JWTProtected.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(userIDLocal).(string); ok {
		return id
	}
	return ""
}

// ContextWithUserID attaches the authenticated user id to ctx.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the authenticated user id from ctx, if present.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
