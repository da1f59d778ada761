package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix     = "currency:v1:"
	defaultRedisMaxRetries = 16
)

// ErrStoreContention is returned when an optimistic Redis transaction keeps
// losing to concurrent writers.
var ErrStoreContention = errors.New("ledger store contention")

// RedisStore keeps balances as decimal strings under per-account keys and
// commits each Update with WATCH/MULTI/EXEC. Every key read by the operation
// is watched, so a concurrent write aborts the commit and the operation is
// re-run against fresh state.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

// NewRedisStore constructs a Redis-backed store. An empty prefix selects the
// default key namespace.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, maxRetries: defaultRedisMaxRetries}
}

func (s *RedisStore) balanceKey(account AccountID) string {
	return s.prefix + "balance:" + string(account)
}

func (s *RedisStore) issuanceKey() string {
	return s.prefix + "issuance"
}

func (s *RedisStore) accountsKey() string {
	return s.prefix + "accounts"
}

func (s *RedisStore) Update(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := newTx(&redisSnapshot{ctx: ctx, rtx: rtx, store: s}, false)
			if err := fn(tx); err != nil {
				return err
			}

			changes := tx.changes()
			if changes.empty() {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for account, amount := range changes.balances {
					pipe.Set(ctx, s.balanceKey(account), amount.String(), 0)
					pipe.SAdd(ctx, s.accountsKey(), string(account))
				}
				if changes.issuance != nil {
					pipe.Set(ctx, s.issuanceKey(), changes.issuance.String(), 0)
				}
				return nil
			})
			return err
		}, s.issuanceKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrStoreContention, s.maxRetries)
}

// View runs fn against watched reads and then executes an empty MULTI/EXEC.
// EXEC fails when any key read by fn changed in the meantime, in which case
// fn is run again, so a successful View saw one consistent state.
func (s *RedisStore) View(ctx context.Context, fn func(tx *Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			if err := fn(newTx(&redisSnapshot{ctx: ctx, rtx: rtx, store: s}, true)); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Exists(ctx, s.issuanceKey())
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrStoreContention, s.maxRetries)
}

type redisSnapshot struct {
	ctx   context.Context
	rtx   *redis.Tx
	store *RedisStore
}

func (r *redisSnapshot) loadBalance(account AccountID) (Balance, bool, error) {
	return r.load(r.store.balanceKey(account))
}

func (r *redisSnapshot) loadIssuance() (Balance, bool, error) {
	return r.load(r.store.issuanceKey())
}

// loadTotal watches the account set and every balance key before reading
// them, so a concurrent write invalidates the surrounding transaction.
func (r *redisSnapshot) loadTotal() (Balance, error) {
	accountsKey := r.store.accountsKey()
	if err := r.rtx.Watch(r.ctx, accountsKey).Err(); err != nil {
		return Balance{}, fmt.Errorf("watch %s: %w", accountsKey, err)
	}
	accounts, err := r.rtx.SMembers(r.ctx, accountsKey).Result()
	if err != nil {
		return Balance{}, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return Balance{}, nil
	}

	keys := make([]string, 0, len(accounts))
	for _, account := range accounts {
		keys = append(keys, r.store.balanceKey(AccountID(account)))
	}
	if err := r.rtx.Watch(r.ctx, keys...).Err(); err != nil {
		return Balance{}, fmt.Errorf("watch balances: %w", err)
	}
	values, err := r.rtx.MGet(r.ctx, keys...).Result()
	if err != nil {
		return Balance{}, fmt.Errorf("read balances: %w", err)
	}

	var total Balance
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		amount, err := ParseBalance(raw)
		if err != nil {
			return Balance{}, fmt.Errorf("decode balance %s: %w", accounts[i], err)
		}
		sum, ok := total.CheckedAdd(amount)
		if !ok {
			return Balance{}, ErrArithmeticOverflow
		}
		total = sum
	}
	return total, nil
}

func (r *redisSnapshot) load(key string) (Balance, bool, error) {
	if err := r.rtx.Watch(r.ctx, key).Err(); err != nil {
		return Balance{}, false, fmt.Errorf("watch %s: %w", key, err)
	}
	raw, err := r.rtx.Get(r.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Balance{}, false, nil
	}
	if err != nil {
		return Balance{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	amount, err := ParseBalance(raw)
	if err != nil {
		return Balance{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return amount, true, nil
}
