package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BearerToken returns the token from an "Authorization: Bearer" header, or
// "" when the header is absent or uses another scheme.
func BearerToken(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
