package auth

import (
	"context"

	"github.com/congo-pay/currency/internal/ledger"
)

// TokenAuthenticator resolves a bearer access token to the ledger account of
// the signer it was issued to.
type TokenAuthenticator struct {
	svc *Service
}

func NewTokenAuthenticator(svc *Service) *TokenAuthenticator {
	return &TokenAuthenticator{svc: svc}
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context, origin ledger.Origin) (ledger.AccountID, error) {
	user, err := a.svc.Verify(ctx, string(origin))
	if err != nil {
		return "", err
	}
	return ledger.AccountID(user.ID), nil
}
