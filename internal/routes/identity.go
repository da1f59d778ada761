package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/currency/internal/identity"
)

// RegisterIdentityRoutes wires signer registration. The returned account_id
// is the ledger account the signer's tokens act for.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Handle string `json:"handle"`
			PIN    string `json:"pin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.Credentials{Handle: req.Handle, PIN: req.PIN})
		if err != nil {
			if errors.Is(err, identity.ErrUserExists) {
				return fiber.NewError(http.StatusConflict, err.Error())
			}
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("account_id", user.ID),
				slog.String("handle", user.Handle),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"account_id": user.ID,
			"handle":     user.Handle,
			"created_at": user.CreatedAt,
		})
	})
}
