// Package currency exposes the ledger's mint and transfer operations to
// callers, adding notification, metrics and logging around each one.
package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/currency/internal/ledger"
	"github.com/congo-pay/currency/internal/metrics"
	"github.com/congo-pay/currency/internal/notification"
)

// Operation names used in logs and metrics.
const (
	OpMintUnsafe = "mint_unsafe"
	OpTransfer   = "transfer"
)

// Service dispatches currency operations to the ledger.
type Service struct {
	ledger   *ledger.Ledger
	notifier notification.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewService constructs a currency service. notifier and recorder may be nil.
func NewService(l *ledger.Ledger, notifier notification.Notifier, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, notifier: notifier, metrics: recorder, logger: logger}
}

// AccountBalance is the read view of one account.
type AccountBalance struct {
	Account ledger.AccountID
	Amount  ledger.Balance
	Exists  bool
}

// MintUnsafe creates amount new units in dest on behalf of origin.
func (s *Service) MintUnsafe(ctx context.Context, origin ledger.Origin, dest ledger.AccountID, amount ledger.Balance) (ledger.Receipt, error) {
	receipt, err := s.ledger.MintUnsafe(ctx, origin, dest, amount)
	s.record(ctx, OpMintUnsafe, dest, amount, receipt, err)
	if err != nil {
		return ledger.Receipt{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindMint,
		Destination: string(dest),
		Body:        fmt.Sprintf("%s units were minted to your account", amount),
	})
	return receipt, nil
}

// Transfer moves amount from the account behind origin to dest.
func (s *Service) Transfer(ctx context.Context, origin ledger.Origin, dest ledger.AccountID, amount ledger.Balance) (ledger.Receipt, error) {
	receipt, err := s.ledger.Transfer(ctx, origin, dest, amount)
	s.record(ctx, OpTransfer, dest, amount, receipt, err)
	if err != nil {
		return ledger.Receipt{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindTransfer,
		Destination: string(dest),
		Body:        fmt.Sprintf("You received %s from %s", amount, receipt.Caller),
	})
	return receipt, nil
}

// Balance returns the balance of account. Unknown accounts read as zero with
// Exists unset.
func (s *Service) Balance(ctx context.Context, account ledger.AccountID) (AccountBalance, error) {
	amount, exists, err := s.ledger.Account(ctx, account)
	if err != nil {
		return AccountBalance{}, err
	}
	return AccountBalance{Account: account, Amount: amount, Exists: exists}, nil
}

// Supply returns the issuance counter alongside the sum of all balances.
func (s *Service) Supply(ctx context.Context) (ledger.Supply, error) {
	supply, err := s.ledger.Supply(ctx)
	if err != nil {
		return ledger.Supply{}, err
	}
	if !supply.Balanced() {
		s.logger.Error("issuance does not match balances",
			slog.String("issuance", supply.Issuance.String()),
			slog.String("balances", supply.Balances.String()),
		)
	}
	return supply, nil
}

func (s *Service) record(ctx context.Context, op string, dest ledger.AccountID, amount ledger.Balance, receipt ledger.Receipt, err error) {
	outcome := Outcome(err)
	if s.metrics != nil {
		s.metrics.Observe(op, outcome)
	}

	attrs := []any{
		slog.String("op", op),
		slog.String("dest", string(dest)),
		slog.String("amount", amount.String()),
		slog.String("outcome", outcome),
	}
	if receipt.Caller != "" {
		attrs = append(attrs, slog.String("caller", string(receipt.Caller)))
	}
	switch outcome {
	case metrics.OutcomeOK:
		s.logger.InfoContext(ctx, "currency operation committed", attrs...)
	case metrics.OutcomeRejected:
		s.logger.WarnContext(ctx, "currency operation rejected", append(attrs, slog.Any("error", err))...)
	default:
		s.logger.ErrorContext(ctx, "currency operation failed", append(attrs, slog.Any("error", err))...)
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

// Outcome classifies an operation result for metrics: ledger rejections are
// distinguished from backend failures.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ledger.ErrAuthFailed),
		errors.Is(err, ledger.ErrCallerAlreadyFunded),
		errors.Is(err, ledger.ErrNonExistentAccount),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrArithmeticOverflow):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
