package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerLockKey names the transaction-scoped advisory lock that serializes
// ledger updates across every connection in the pool.
const ledgerLockKey int64 = 0x6375727265_6e6379

const schema = `
CREATE TABLE IF NOT EXISTS currency_balances (
    account_id TEXT PRIMARY KEY,
    amount     NUMERIC(39, 0) NOT NULL CHECK (amount >= 0)
);
CREATE TABLE IF NOT EXISTS currency_issuance (
    id    BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
    total NUMERIC(39, 0) NOT NULL CHECK (total >= 0)
);`

// PostgresStore persists balances and issuance in PostgreSQL. Each Update
// runs in one database transaction that commits all staged writes or none.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger tables when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// Update runs fn inside a transaction holding the ledger advisory lock.
func (s *PostgresStore) Update(ctx context.Context, fn func(tx *Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer dbtx.Rollback(ctx) // nolint:errcheck

	if _, err := dbtx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}

	tx := newTx(&pgSnapshot{ctx: ctx, tx: dbtx}, false)
	if err := fn(tx); err != nil {
		return err
	}

	changes := tx.changes()
	for account, amount := range changes.balances {
		if _, err := dbtx.Exec(ctx, `INSERT INTO currency_balances (account_id, amount) VALUES ($1, $2::numeric)
            ON CONFLICT (account_id) DO UPDATE SET amount = EXCLUDED.amount`, string(account), amount.String()); err != nil {
			return fmt.Errorf("write balance %s: %w", account, err)
		}
	}
	if changes.issuance != nil {
		if _, err := dbtx.Exec(ctx, `INSERT INTO currency_issuance (id, total) VALUES (TRUE, $1::numeric)
            ON CONFLICT (id) DO UPDATE SET total = EXCLUDED.total`, changes.issuance.String()); err != nil {
			return fmt.Errorf("write issuance: %w", err)
		}
	}

	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// View runs fn inside a read-only repeatable-read transaction.
func (s *PostgresStore) View(ctx context.Context, fn func(tx *Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin ledger view: %w", err)
	}
	defer dbtx.Rollback(ctx) // nolint:errcheck

	return fn(newTx(&pgSnapshot{ctx: ctx, tx: dbtx}, true))
}

type pgSnapshot struct {
	ctx context.Context
	tx  pgx.Tx
}

func (p *pgSnapshot) loadBalance(account AccountID) (Balance, bool, error) {
	const query = `SELECT amount::text FROM currency_balances WHERE account_id = $1`
	return p.scan(p.tx.QueryRow(p.ctx, query, string(account)))
}

func (p *pgSnapshot) loadIssuance() (Balance, bool, error) {
	const query = `SELECT total::text FROM currency_issuance WHERE id`
	return p.scan(p.tx.QueryRow(p.ctx, query))
}

func (p *pgSnapshot) loadTotal() (Balance, error) {
	var total string
	if err := p.tx.QueryRow(p.ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM currency_balances`).Scan(&total); err != nil {
		return Balance{}, fmt.Errorf("sum balances: %w", err)
	}
	return ParseBalance(total)
}

func (p *pgSnapshot) scan(row pgx.Row) (Balance, bool, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, false, nil
		}
		return Balance{}, false, err
	}
	amount, err := ParseBalance(raw)
	if err != nil {
		return Balance{}, false, err
	}
	return amount, true, nil
}
