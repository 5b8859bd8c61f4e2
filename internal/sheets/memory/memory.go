package memory

import (
	"context"
	"sync"

	"leaderboard/internal/sheets"
)

// Store keeps the snapshots it is given. Useful when no spreadsheet is
// configured and in tests.
type Store struct {
	mu     sync.Mutex
	last   sheets.Snapshot
	writes int
}

var _ sheets.StandingsWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteStandings records the snapshot.
func (s *Store) WriteStandings(ctx context.Context, snap sheets.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snap
	s.writes++
	return nil
}

// Last returns the most recent snapshot and whether one was written.
func (s *Store) Last() (sheets.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.writes > 0
}

// Writes returns how many snapshots were written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
