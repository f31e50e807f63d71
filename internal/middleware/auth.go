// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"strings"

	"glimpse/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// PrincipalLocal is the fiber Locals key holding the authenticated
// external principal id. The principal is the identity provider's opaque
// subject, not an internal user id; resolution to a user happens at the
// handler boundary.
const PrincipalLocal = "principal"

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	principal, err := principalFromHeader(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNAUTHORIZED",
		})
	}
	c.Locals(PrincipalLocal, principal)
	return c.Next()
}

// OptionalAuth extracts the principal when a valid bearer token is present
// and continues unauthenticated otherwise. Read endpoints use this so a
// viewer personalizes is_liked/is_following without requiring sign-in.
func OptionalAuth(c *fiber.Ctx) error {
	if principal, err := principalFromHeader(c); err == nil {
		c.Locals(PrincipalLocal, principal)
	}
	return c.Next()
}

func principalFromHeader(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	// The "sub" claim carries the external principal id (RFC 7519).
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token structure - missing subject")
	}

	return sub, nil
}
