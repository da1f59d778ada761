package ledger

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

const balanceBits = 128

// Balance is a non-negative amount bounded to 128 bits. The zero value is a
// zero balance.
type Balance struct {
	n uint256.Int
}

// MaxBalance is the largest representable balance, 2^128-1.
var MaxBalance = func() Balance {
	var b Balance
	b.n.Lsh(uint256.NewInt(1), balanceBits)
	b.n.SubUint64(&b.n, 1)
	return b
}()

// NewBalance returns a balance holding v.
func NewBalance(v uint64) Balance {
	var b Balance
	b.n.SetUint64(v)
	return b
}

// ParseBalance parses a base-10 amount. Values above MaxBalance are rejected
// with ErrArithmeticOverflow.
func ParseBalance(s string) (Balance, error) {
	if s == "" {
		return Balance{}, errors.New("empty balance")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Balance{}, fmt.Errorf("invalid balance %q: only decimal digits are allowed", s)
		}
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid balance %q: %w", s, err)
	}
	if n.BitLen() > balanceBits {
		return Balance{}, fmt.Errorf("balance %q: %w", s, ErrArithmeticOverflow)
	}
	return Balance{n: *n}, nil
}

// CheckedAdd returns b+other, or false when the sum exceeds MaxBalance.
func (b Balance) CheckedAdd(other Balance) (Balance, bool) {
	var sum Balance
	if _, overflow := sum.n.AddOverflow(&b.n, &other.n); overflow || sum.n.BitLen() > balanceBits {
		return Balance{}, false
	}
	return sum, true
}

// CheckedSub returns b-other, or false when other is larger than b.
func (b Balance) CheckedSub(other Balance) (Balance, bool) {
	var diff Balance
	if _, underflow := diff.n.SubOverflow(&b.n, &other.n); underflow {
		return Balance{}, false
	}
	return diff, true
}

// Cmp returns -1, 0 or +1 as b is less than, equal to or greater than other.
func (b Balance) Cmp(other Balance) int {
	return b.n.Cmp(&other.n)
}

func (b Balance) IsZero() bool {
	return b.n.IsZero()
}

func (b Balance) String() string {
	return b.n.Dec()
}

// MarshalText encodes the balance as a decimal string, so JSON carries the
// full 128-bit range.
func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Balance) UnmarshalText(text []byte) error {
	parsed, err := ParseBalance(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
