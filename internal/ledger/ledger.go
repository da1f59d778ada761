package ledger

import (
	"context"
	"errors"
)

var (
	// ErrAuthFailed indicates the origin could not be turned into an account.
	// No state is read or written when it is returned.
	ErrAuthFailed = errors.New("origin authentication failed")

	// ErrCallerAlreadyFunded is returned by MintUnsafe when the invoking
	// account already holds a balance entry.
	ErrCallerAlreadyFunded = errors.New("caller already funded")

	// ErrNonExistentAccount is returned by Transfer when the sender has never
	// been credited.
	ErrNonExistentAccount = errors.New("non-existent account")

	// ErrInsufficientBalance is returned by Transfer when the amount exceeds
	// the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrArithmeticOverflow is returned when a credit would exceed MaxBalance.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// AccountID identifies a ledger participant. The ledger assumes nothing
// about its structure.
type AccountID string

// Origin is the credential a caller presents with an operation. It becomes
// an AccountID only through an Authenticator.
type Origin string

// Authenticator verifies an origin and returns the account behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, origin Origin) (AccountID, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, origin Origin) (AccountID, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, origin Origin) (AccountID, error) {
	return f(ctx, origin)
}

// Store holds the balance map and the issuance counter. Update runs fn
// against a staged Tx and commits its writes only when fn returns nil; View
// runs fn against a read-only Tx. Every read made through one Tx observes the
// same committed state.
type Store interface {
	Update(ctx context.Context, fn func(tx *Tx) error) error
	View(ctx context.Context, fn func(tx *Tx) error) error
}
