package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/currency/internal/ledger"
	"github.com/congo-pay/currency/internal/logging"
	"github.com/congo-pay/currency/internal/metrics"
	"github.com/congo-pay/currency/internal/notification"
)

type testNotifier struct {
	sent []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

type testRecorder struct {
	seen map[string]int
}

func (r *testRecorder) Observe(op, outcome string) {
	if r.seen == nil {
		r.seen = map[string]int{}
	}
	r.seen[op+"/"+outcome]++
}

func newTestService(t *testing.T) (*Service, ledger.Store, *testNotifier, *testRecorder) {
	t.Helper()
	store := ledger.NewInMemory()
	notifier := &testNotifier{}
	recorder := &testRecorder{}
	svc := NewService(ledger.New(store, ledger.SignedAuthenticator{}), notifier, recorder, logging.Discard())
	return svc, store, notifier, recorder
}

func TestMintThenTransfer(t *testing.T) {
	svc, _, notifier, recorder := newTestService(t)
	ctx := context.Background()

	_, err := svc.MintUnsafe(ctx, ledger.Signed("alice"), "bob", ledger.NewBalance(100))
	require.NoError(t, err)

	receipt, err := svc.Transfer(ctx, ledger.Signed("bob"), "carol", ledger.NewBalance(30))
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountID("bob"), receipt.Caller)

	bob, err := svc.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "70", bob.Amount.String())
	assert.True(t, bob.Exists)

	supply, err := svc.Supply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", supply.Issuance.String())
	assert.True(t, supply.Balanced())

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, notification.KindMint, notifier.sent[0].Kind)
	assert.Equal(t, "bob", notifier.sent[0].Destination)
	assert.Equal(t, notification.KindTransfer, notifier.sent[1].Kind)
	assert.Equal(t, "carol", notifier.sent[1].Destination)

	assert.Equal(t, 1, recorder.seen["mint_unsafe/ok"])
	assert.Equal(t, 1, recorder.seen["transfer/ok"])
}

func TestRejectionsAreCountedAndNotNotified(t *testing.T) {
	svc, _, notifier, recorder := newTestService(t)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, ledger.Signed("ghost"), "bob", ledger.NewBalance(1))
	assert.ErrorIs(t, err, ledger.ErrNonExistentAccount)

	_, err = svc.MintUnsafe(ctx, ledger.Origin("unsigned"), "bob", ledger.NewBalance(1))
	assert.ErrorIs(t, err, ledger.ErrAuthFailed)

	assert.Empty(t, notifier.sent)
	assert.Equal(t, 1, recorder.seen["transfer/rejected"])
	assert.Equal(t, 1, recorder.seen["mint_unsafe/rejected"])
}

func TestBalanceOfUnknownAccount(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	view, err := svc.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, view.Exists)
	assert.True(t, view.Amount.IsZero())
}

func TestSupplyReportsSeededImbalance(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	require.NoError(t, ledger.SeedBalance(store, "alice", ledger.NewBalance(5)))

	supply, err := svc.Supply(context.Background())
	require.NoError(t, err)
	assert.False(t, supply.Balanced())
	assert.Equal(t, "5", supply.Balances.String())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeOK, Outcome(nil))
	assert.Equal(t, metrics.OutcomeRejected, Outcome(ledger.ErrInsufficientBalance))
	assert.Equal(t, metrics.OutcomeRejected, Outcome(ledger.ErrArithmeticOverflow))
	assert.Equal(t, metrics.OutcomeError, Outcome(errors.New("connection reset")))
	assert.Equal(t, metrics.OutcomeError, Outcome(ledger.ErrStoreContention))
}
