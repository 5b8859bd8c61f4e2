package sheets

import (
	"context"
	"time"

	"leaderboard/internal/core"
)

// Ports for outbound adapters.
type (
	// StandingsWriter publishes a computed leaderboard to an external surface.
	// Each call replaces whatever was written before.
	StandingsWriter interface {
		WriteStandings(ctx context.Context, s Snapshot) error
	}
)

// WeekTable is the ranking of a single week.
type WeekTable struct {
	Week      core.WeekKey
	Standings []core.Standing
}

// Snapshot is everything an export needs, computed from one ledger read.
type Snapshot struct {
	GeneratedAt time.Time
	Standings   []core.Standing
	Summary     core.Summary
	// Weeks holds active weeks only, newest first.
	Weeks []WeekTable
}

// BuildSnapshot ranks the ledger all-time and for every active week.
func BuildSnapshot(reg *core.Registry, l *core.Ledger, now time.Time) Snapshot {
	standings := core.Leaderboard(reg, l)
	weeks := core.ActiveWeeks(l)
	s := Snapshot{
		GeneratedAt: now.UTC(),
		Standings:   standings,
		Summary:     core.Summarize(standings),
		Weeks:       make([]WeekTable, 0, len(weeks)),
	}
	for _, w := range weeks {
		s.Weeks = append(s.Weeks, WeekTable{Week: w, Standings: core.WeeklyLeaderboard(reg, l, w)})
	}
	return s
}

// Ranks assigns competition ranks ("1224") to standings already sorted by
// points, descending.
func Ranks(standings []core.Standing) []int {
	ranks := make([]int, len(standings))
	for i, s := range standings {
		if i > 0 && s.Points == standings[i-1].Points {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}
