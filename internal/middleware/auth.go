package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AdminContextKey = "admin"
	RoleAdmin       = "admin"
)

// AdminClaims is the token body accepted for moderation calls.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth marks the request as administrative when it carries a valid
// HS256 bearer token with the admin role. Requests without a token pass
// through unmarked; a token that fails to validate is rejected. An empty
// secret disables administration entirely.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || secret == "" {
			return c.Next()
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return Unauthorized("Invalid authorization header format")
		}

		claims, err := ParseAdminToken(parts[1], secret)
		if err != nil {
			return Unauthorized("Invalid or expired token")
		}
		if claims.Role == RoleAdmin {
			c.Locals(AdminContextKey, true)
		}

		return c.Next()
	}
}

func ParseAdminToken(tokenString, secret string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func IsAdmin(c *fiber.Ctx) bool {
	admin, ok := c.Locals(AdminContextKey).(bool)
	return ok && admin
}
