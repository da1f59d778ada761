package ledger

import (
	"context"
	"fmt"
)

// Ledger applies the mint and transfer transitions to a Store on behalf of
// authenticated callers.
type Ledger struct {
	store Store
	auth  Authenticator
}

// New builds a ledger over store, authenticating every operation with auth.
func New(store Store, auth Authenticator) *Ledger {
	return &Ledger{store: store, auth: auth}
}

// Receipt describes a committed operation.
type Receipt struct {
	Caller AccountID
	Dest   AccountID
	Amount Balance
}

// Supply compares the issuance counter with the sum of all balances.
type Supply struct {
	Issuance Balance
	Balances Balance
}

// Balanced reports whether every minted unit is held by some account.
func (s Supply) Balanced() bool {
	return s.Issuance.Cmp(s.Balances) == 0
}

func (l *Ledger) authenticate(ctx context.Context, origin Origin) (AccountID, error) {
	caller, err := l.auth.Authenticate(ctx, origin)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	return caller, nil
}

// MintUnsafe credits dest with amount and grows issuance by the same amount.
// Any authenticated caller may mint, as long as the caller itself holds no
// balance entry yet; dest is not checked.
func (l *Ledger) MintUnsafe(ctx context.Context, origin Origin, dest AccountID, amount Balance) (Receipt, error) {
	caller, err := l.authenticate(ctx, origin)
	if err != nil {
		return Receipt{}, err
	}

	err = l.store.Update(ctx, func(tx *Tx) error {
		funded, err := tx.Contains(caller)
		if err != nil {
			return err
		}
		if funded {
			return ErrCallerAlreadyFunded
		}
		if err := tx.MutateBalance(dest, credit(amount)); err != nil {
			return err
		}
		return tx.MutateIssuance(credit(amount))
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Caller: caller, Dest: dest, Amount: amount}, nil
}

// Transfer moves amount from the authenticated caller to dest.
func (l *Ledger) Transfer(ctx context.Context, origin Origin, dest AccountID, amount Balance) (Receipt, error) {
	caller, err := l.authenticate(ctx, origin)
	if err != nil {
		return Receipt{}, err
	}

	err = l.store.Update(ctx, func(tx *Tx) error {
		exists, err := tx.Contains(caller)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNonExistentAccount
		}
		senderBalance, err := tx.Balance(caller)
		if err != nil {
			return err
		}
		remainder, ok := senderBalance.CheckedSub(amount)
		if !ok {
			return ErrInsufficientBalance
		}
		// credit before writing the remainder; with dest == caller the
		// remainder wins, as it does on chain
		if err := tx.MutateBalance(dest, credit(amount)); err != nil {
			return err
		}
		return tx.SetBalance(caller, remainder)
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Caller: caller, Dest: dest, Amount: amount}, nil
}

// Balance returns the balance of account, zero when it has no entry.
func (l *Ledger) Balance(ctx context.Context, account AccountID) (Balance, error) {
	var balance Balance
	err := l.store.View(ctx, func(tx *Tx) error {
		var err error
		balance, err = tx.Balance(account)
		return err
	})
	return balance, err
}

// AccountExists reports whether account has ever been credited.
func (l *Ledger) AccountExists(ctx context.Context, account AccountID) (bool, error) {
	var exists bool
	err := l.store.View(ctx, func(tx *Tx) error {
		var err error
		exists, err = tx.Contains(account)
		return err
	})
	return exists, err
}

// TotalIssuance returns the issuance counter.
func (l *Ledger) TotalIssuance(ctx context.Context) (Balance, error) {
	var issuance Balance
	err := l.store.View(ctx, func(tx *Tx) error {
		var err error
		issuance, err = tx.Issuance()
		return err
	})
	return issuance, err
}

// Account returns the balance of account and whether it has an entry, both
// read from one snapshot.
func (l *Ledger) Account(ctx context.Context, account AccountID) (Balance, bool, error) {
	var (
		balance Balance
		exists  bool
	)
	err := l.store.View(ctx, func(tx *Tx) error {
		var err error
		if exists, err = tx.Contains(account); err != nil {
			return err
		}
		balance, err = tx.Balance(account)
		return err
	})
	return balance, exists, err
}

// Supply reads the issuance counter and the sum of all balances from one
// snapshot.
func (l *Ledger) Supply(ctx context.Context) (Supply, error) {
	var supply Supply
	err := l.store.View(ctx, func(tx *Tx) error {
		var err error
		if supply.Issuance, err = tx.Issuance(); err != nil {
			return err
		}
		supply.Balances, err = tx.TotalBalances()
		return err
	})
	if err != nil {
		return Supply{}, err
	}
	return supply, nil
}

func credit(amount Balance) func(Balance) (Balance, error) {
	return func(current Balance) (Balance, error) {
		sum, ok := current.CheckedAdd(amount)
		if !ok {
			return Balance{}, ErrArithmeticOverflow
		}
		return sum, nil
	}
}
