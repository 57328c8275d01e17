package middleware

import (
	"strings"

	"identity/config"
	"identity/internal/delivery/http/response"
	"identity/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys populated by Authenticate for downstream handlers.
const (
	ContextKeyUserEmail = "userEmail"
	ContextKeyUserRole  = "userRole"
)

// AuthMiddleware provides middleware for JWT authentication and authorization.
type AuthMiddleware struct {
	signingKey []byte
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{signingKey: []byte(cfg.JWT.SigningKey)}
}

// Authenticate validates the bearer access token on protected routes. Unlike
// the refresh flow, expiry is enforced here: an expired token cannot reach
// protected handlers.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return response.Unauthorized(c, "AUTH_HEADER_MISSING", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "AUTH_HEADER_MALFORMED", "Invalid token format, must be Bearer token")
		}

		claims := &service.Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims,
			func(token *jwt.Token) (any, error) {
				return m.signingKey, nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid {
			return response.Unauthorized(c, "TOKEN_INVALID", "Invalid or expired token")
		}

		if claims.Subject == "" {
			return response.Unauthorized(c, "TOKEN_INVALID", "Token carries no subject")
		}

		// Set user info on the context for handlers to use
		c.Set(ContextKeyUserEmail, claims.Subject)
		c.Set(ContextKeyUserRole, claims.Role)

		return next(c)
	}
}

// RequireRole is a middleware factory that checks if the user has a specific role.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireRole(requiredRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextKeyUserRole).(string)
			if !ok || role == "" {
				return response.Forbidden(c, "ROLE_MISSING", "Permission denied: role information missing")
			}

			if role != requiredRole {
				return response.Forbidden(c, "ROLE_FORBIDDEN", "Permission denied: require '"+requiredRole+"' role")
			}

			return next(c)
		}
	}
}
