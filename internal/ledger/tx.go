package ledger

import "errors"

var errReadOnly = errors.New("write in read-only ledger transaction")

// snapshot is the read side a backend exposes to a Tx. The bool result
// reports whether the value is stored at all.
type snapshot interface {
	loadBalance(account AccountID) (Balance, bool, error)
	loadIssuance() (Balance, bool, error)
	loadTotal() (Balance, error)
}

type entry struct {
	amount Balance
	exists bool
}

// changeSet is what a successful Update hands back to its backend.
type changeSet struct {
	balances map[AccountID]Balance
	issuance *Balance
}

func (c changeSet) empty() bool {
	return len(c.balances) == 0 && c.issuance == nil
}

// Tx is the view of the store seen by one ledger operation. Reads are
// cached so the operation observes a single snapshot; writes are buffered
// and never reach the backend unless the operation succeeds.
type Tx struct {
	base     snapshot
	readOnly bool

	reads    map[AccountID]entry
	writes   map[AccountID]Balance
	issuance *entry
	minted   *Balance
}

func newTx(base snapshot, readOnly bool) *Tx {
	return &Tx{
		base:     base,
		readOnly: readOnly,
		reads:    make(map[AccountID]entry),
		writes:   make(map[AccountID]Balance),
	}
}

func (tx *Tx) lookup(account AccountID) (entry, error) {
	if amount, ok := tx.writes[account]; ok {
		return entry{amount: amount, exists: true}, nil
	}
	if e, ok := tx.reads[account]; ok {
		return e, nil
	}
	amount, exists, err := tx.base.loadBalance(account)
	if err != nil {
		return entry{}, err
	}
	e := entry{amount: amount, exists: exists}
	tx.reads[account] = e
	return e, nil
}

// Balance returns the account balance, zero when the account has no entry.
func (tx *Tx) Balance(account AccountID) (Balance, error) {
	e, err := tx.lookup(account)
	return e.amount, err
}

// Contains reports whether the account has an entry, even a zero one.
func (tx *Tx) Contains(account AccountID) (bool, error) {
	e, err := tx.lookup(account)
	return e.exists, err
}

// SetBalance overwrites or inserts the account entry.
func (tx *Tx) SetBalance(account AccountID, amount Balance) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.writes[account] = amount
	return nil
}

// MutateBalance applies f to the current balance (zero if absent) and
// stores the result. An error from f leaves the entry untouched.
func (tx *Tx) MutateBalance(account AccountID, f func(Balance) (Balance, error)) error {
	current, err := tx.Balance(account)
	if err != nil {
		return err
	}
	next, err := f(current)
	if err != nil {
		return err
	}
	return tx.SetBalance(account, next)
}

// Issuance returns the issuance counter, zero when never set.
func (tx *Tx) Issuance() (Balance, error) {
	if tx.minted != nil {
		return *tx.minted, nil
	}
	if tx.issuance == nil {
		amount, exists, err := tx.base.loadIssuance()
		if err != nil {
			return Balance{}, err
		}
		tx.issuance = &entry{amount: amount, exists: exists}
	}
	return tx.issuance.amount, nil
}

// MutateIssuance applies f to the issuance counter and stores the result.
func (tx *Tx) MutateIssuance(f func(Balance) (Balance, error)) error {
	if tx.readOnly {
		return errReadOnly
	}
	current, err := tx.Issuance()
	if err != nil {
		return err
	}
	next, err := f(current)
	if err != nil {
		return err
	}
	tx.minted = &next
	return nil
}

// TotalBalances sums every balance entry, staged writes included.
func (tx *Tx) TotalBalances() (Balance, error) {
	total, err := tx.base.loadTotal()
	if err != nil {
		return Balance{}, err
	}
	for account, amount := range tx.writes {
		before, ok := tx.reads[account]
		if !ok {
			if before.amount, before.exists, err = tx.base.loadBalance(account); err != nil {
				return Balance{}, err
			}
			tx.reads[account] = before
		}
		if total, ok = total.CheckedSub(before.amount); !ok {
			return Balance{}, ErrArithmeticOverflow
		}
		if total, ok = total.CheckedAdd(amount); !ok {
			return Balance{}, ErrArithmeticOverflow
		}
	}
	return total, nil
}

func (tx *Tx) changes() changeSet {
	return changeSet{balances: tx.writes, issuance: tx.minted}
}
