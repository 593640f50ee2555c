package session

import "context"

// Record is the persisted session: the raw token and its expiry in epoch seconds.
type Record struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

// Store keeps the single persisted session record.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
}
