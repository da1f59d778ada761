package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/currency/internal/auth"
	"github.com/congo-pay/currency/internal/ledger"
)

const originKey = "origin"

// Origin lifts the bearer token into the request locals as a ledger origin.
// It does not verify anything: the ledger authenticates the origin itself,
// once per operation, and a missing token simply fails that check.
func Origin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(originKey, ledger.Origin(auth.BearerToken(c)))
		return c.Next()
	}
}

// OriginFrom returns the origin stored by Origin.
func OriginFrom(c *fiber.Ctx) ledger.Origin {
	origin, _ := c.Locals(originKey).(ledger.Origin)
	return origin
}
