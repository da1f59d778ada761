package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryStore_ConcurrentTransfersConserveValue(t *testing.T) {
	s := NewInMemory()
	l := New(s, SignedAuthenticator{})
	ctx := context.Background()

	if _, err := l.MintUnsafe(ctx, Signed("treasury"), "wallet:a", NewBalance(100_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	const workers = 10
	amount := NewBalance(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dest := AccountID(fmt.Sprintf("wallet:b%d", i%3))
			if _, err := l.Transfer(ctx, Signed("wallet:a"), dest, amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	expectBalance(t, mustBalance(t, l, "wallet:a"), 100_000-workers*500)

	supply, err := l.Supply(ctx)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if !supply.Balanced() {
		t.Fatalf("ledger not balanced after concurrency: %+v", supply)
	}
}

func TestInMemoryStore_ViewIsReadOnly(t *testing.T) {
	s := NewInMemory()
	err := s.View(context.Background(), func(tx *Tx) error {
		return tx.SetBalance("a", NewBalance(1))
	})
	if err == nil {
		t.Fatal("expected write in view to fail")
	}
	supply, err := New(s, SignedAuthenticator{}).Supply(context.Background())
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if !supply.Balances.IsZero() {
		t.Fatalf("view leaked a write: %s", supply.Balances)
	}
}

func TestInMemoryStore_IssuanceUnsetUntilMint(t *testing.T) {
	s := NewInMemory().(*inMemoryStore)
	if err := SeedBalance(s, "a", NewBalance(9)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if s.issuance != nil {
		t.Fatalf("seeding must not touch issuance")
	}
}
