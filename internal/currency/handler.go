package currency

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/currency/internal/ledger"
	"github.com/congo-pay/currency/internal/middleware"
)

// Handler exposes currency endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a currency handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the currency routes under r.
func (h *Handler) Register(r fiber.Router) {
	group := r.Group("/currency")
	group.Post("/mint_unsafe", h.MintUnsafe)
	group.Post("/transfer", h.Transfer)
	group.Get("/balances/:account", h.Balance)
	group.Get("/issuance", h.Issuance)
}

// Amounts travel as decimal strings; JSON numbers cannot hold 128 bits.
type operationRequest struct {
	Dest   string `json:"dest"`
	Amount string `json:"amount"`
}

type receiptResponse struct {
	Caller string `json:"caller"`
	Dest   string `json:"dest"`
	Amount string `json:"amount"`
}

// MintUnsafe handles POST /currency/mint_unsafe.
func (h *Handler) MintUnsafe(c *fiber.Ctx) error {
	dest, amount, err := parseOperation(c)
	if err != nil {
		return err
	}
	receipt, err := h.service.MintUnsafe(c.UserContext(), middleware.OriginFrom(c), dest, amount)
	if err != nil {
		return ledgerError(err)
	}
	return c.Status(http.StatusCreated).JSON(toReceipt(receipt))
}

// Transfer handles POST /currency/transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	dest, amount, err := parseOperation(c)
	if err != nil {
		return err
	}
	receipt, err := h.service.Transfer(c.UserContext(), middleware.OriginFrom(c), dest, amount)
	if err != nil {
		return ledgerError(err)
	}
	return c.Status(http.StatusOK).JSON(toReceipt(receipt))
}

// Balance handles GET /currency/balances/:account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	account := strings.TrimSpace(c.Params("account"))
	if account == "" {
		return fiber.NewError(http.StatusBadRequest, "account is required")
	}
	view, err := h.service.Balance(c.UserContext(), ledger.AccountID(account))
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(fiber.Map{
		"account": string(view.Account),
		"amount":  view.Amount.String(),
		"exists":  view.Exists,
	})
}

// Issuance handles GET /currency/issuance.
func (h *Handler) Issuance(c *fiber.Ctx) error {
	supply, err := h.service.Supply(c.UserContext())
	if err != nil {
		return ledgerError(err)
	}
	return c.JSON(fiber.Map{
		"issuance": supply.Issuance.String(),
		"balances": supply.Balances.String(),
		"balanced": supply.Balanced(),
	})
}

func parseOperation(c *fiber.Ctx) (ledger.AccountID, ledger.Balance, error) {
	var req operationRequest
	if err := c.BodyParser(&req); err != nil {
		return "", ledger.Balance{}, fiber.NewError(http.StatusBadRequest, err.Error())
	}
	dest := strings.TrimSpace(req.Dest)
	if dest == "" {
		return "", ledger.Balance{}, fiber.NewError(http.StatusBadRequest, "dest is required")
	}
	amount, err := ledger.ParseBalance(strings.TrimSpace(req.Amount))
	if err != nil {
		return "", ledger.Balance{}, fiber.NewError(http.StatusBadRequest, "invalid amount: "+err.Error())
	}
	return ledger.AccountID(dest), amount, nil
}

func toReceipt(r ledger.Receipt) receiptResponse {
	return receiptResponse{Caller: string(r.Caller), Dest: string(r.Dest), Amount: r.Amount.String()}
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrAuthFailed):
		return fiber.NewError(http.StatusUnauthorized, "origin authentication failed")
	case errors.Is(err, ledger.ErrCallerAlreadyFunded):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrNonExistentAccount):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrArithmeticOverflow):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrStoreContention):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
