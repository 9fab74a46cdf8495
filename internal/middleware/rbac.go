package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireAdmin guards routes that only moderators may call. It must run
// after AdminAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			return Forbidden("Insufficient permissions for this operation")
		}
		return c.Next()
	}
}
