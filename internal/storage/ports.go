package storage

import (
	"context"
	"errors"

	"leaderboard/internal/core"
)

// ErrPersistence wraps every read or write failure of a backing store.
var ErrPersistence = errors.New("persistence failure")

// Gateway loads and saves the whole ledger document. Load returns an empty
// ledger when nothing has been stored yet. Save overwrites the document.
type Gateway interface {
	Load(ctx context.Context) (*core.Ledger, error)
	Save(ctx context.Context, l *core.Ledger) error
}
