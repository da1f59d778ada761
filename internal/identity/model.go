package identity

import "time"

// User is a registered signer. Its ID doubles as the ledger account the
// signer acts for.
type User struct {
	ID           string
	Handle       string
	PINHash      []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials request structure.
type Credentials struct {
	Handle string
	PIN    string
}
