// Package genesis seeds an empty ledger from a YAML file.
package genesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/congo-pay/currency/internal/ledger"
)

// ErrAlreadyInitialized is returned when genesis is applied to a store that
// already has issuance.
var ErrAlreadyInitialized = errors.New("ledger already initialized")

// Allocation is one initial balance.
type Allocation struct {
	Account ledger.AccountID `yaml:"account"`
	Amount  string           `yaml:"amount"`
}

// Config is the top-level structure of a genesis file:
//
//	balances:
//	  - account: treasury
//	    amount: "1000000"
type Config struct {
	Balances []Allocation `yaml:"balances"`
}

// Load reads and parses a genesis file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open genesis: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a genesis document and validates every allocation.
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode genesis: %w", err)
	}

	seen := make(map[ledger.AccountID]bool, len(cfg.Balances))
	for i, a := range cfg.Balances {
		if a.Account == "" {
			return Config{}, fmt.Errorf("genesis balance %d: account is required", i)
		}
		if seen[a.Account] {
			return Config{}, fmt.Errorf("genesis balance %d: duplicate account %s", i, a.Account)
		}
		seen[a.Account] = true
		if _, err := ledger.ParseBalance(a.Amount); err != nil {
			return Config{}, fmt.Errorf("genesis balance %s: %w", a.Account, err)
		}
	}
	return cfg, nil
}

// Apply writes every allocation and sets issuance to their sum, in one
// store update. A store with non-zero issuance or any of the listed accounts
// already present is left untouched.
func Apply(ctx context.Context, store ledger.Store, cfg Config) (ledger.Balance, error) {
	var total ledger.Balance
	err := store.Update(ctx, func(tx *ledger.Tx) error {
		issuance, err := tx.Issuance()
		if err != nil {
			return err
		}
		if !issuance.IsZero() {
			return ErrAlreadyInitialized
		}

		for _, a := range cfg.Balances {
			exists, err := tx.Contains(a.Account)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: account %s exists", ErrAlreadyInitialized, a.Account)
			}
			amount, err := ledger.ParseBalance(a.Amount)
			if err != nil {
				return err
			}
			if err := tx.SetBalance(a.Account, amount); err != nil {
				return err
			}
			sum, ok := total.CheckedAdd(amount)
			if !ok {
				return ledger.ErrArithmeticOverflow
			}
			total = sum
		}

		return tx.MutateIssuance(func(ledger.Balance) (ledger.Balance, error) {
			return total, nil
		})
	})
	if err != nil {
		return ledger.Balance{}, err
	}
	return total, nil
}
