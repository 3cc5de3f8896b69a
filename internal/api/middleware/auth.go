package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"scopedrest/internal/apierr"
	"scopedrest/internal/models"
	"scopedrest/internal/services"
	"scopedrest/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const identityKey = "apiKey"

// TokenResolver looks an opaque bearer token up in the credential store.
type TokenResolver interface {
	FindByToken(ctx context.Context, token string) (*models.APIKey, error)
}

type AuthMiddleware struct {
	tokens TokenResolver
}

func NewAuthMiddleware(tokens TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Middleware resolves the caller or halts the chain with 401.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apierr.Unauthorized("missing authorization header")
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				return apierr.Unauthorized("invalid authorization header format")
			}

			key, err := m.tokens.FindByToken(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrUnknownToken) {
					return apierr.Unauthorized("invalid token")
				}
				return apierr.Internal(log.Error("token lookup failed", err))
			}

			setIdentity(c, key)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c echo.Context, key *models.APIKey) {
	c.Set(identityKey, key)
}

// IdentityFrom returns the key resolved for this request.
func IdentityFrom(c echo.Context) (*models.APIKey, bool) {
	key, ok := c.Get(identityKey).(*models.APIKey)
	return key, ok && key != nil
}
