package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrDuplicateMember = errors.New("duplicate member")
	ErrUnknownMember   = errors.New("unknown member")
	ErrInvalidCount    = errors.New("invalid count")
	// ErrInvalidMemberName is always reported together with ErrDuplicateMember
	// so callers matching on the latter keep working.
	ErrInvalidMemberName = errors.New("member name cannot be blank")
)

// ActivityCount maps a raw category key to a non-negative count. Keys that
// are not in the Registry are kept as-is and score zero.
type ActivityCount map[string]int

// Ledger is the whole persisted document: the roster plus a sparse
// week -> member -> counts table. A missing week or member entry means zero.
type Ledger struct {
	Members    []string                             `json:"team_members"`
	WeeklyData map[WeekKey]map[string]ActivityCount `json:"weekly_data"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Members:    []string{},
		WeeklyData: map[WeekKey]map[string]ActivityCount{},
	}
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		Members:    append([]string{}, l.Members...),
		WeeklyData: make(map[WeekKey]map[string]ActivityCount, len(l.WeeklyData)),
	}
	for week, entries := range l.WeeklyData {
		cp := make(map[string]ActivityCount, len(entries))
		for member, counts := range entries {
			cp[member] = counts.clone()
		}
		out.WeeklyData[week] = cp
	}
	return out
}

// Normalize replaces nil collections with empty ones, as decoded documents
// may omit either field.
func (l *Ledger) Normalize() {
	if l.Members == nil {
		l.Members = []string{}
	}
	if l.WeeklyData == nil {
		l.WeeklyData = map[WeekKey]map[string]ActivityCount{}
	}
}

// HasMember reports whether name is on the roster (exact match).
func (l *Ledger) HasMember(name string) bool {
	return slices.Contains(l.Members, name)
}

// Entry returns the counts recorded for member in week, and whether an entry exists.
func (l *Ledger) Entry(week WeekKey, member string) (ActivityCount, bool) {
	entries, ok := l.WeeklyData[week]
	if !ok {
		return nil, false
	}
	counts, ok := entries[member]
	return counts, ok
}

// AddMember appends name to the roster.
func (l *Ledger) AddMember(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %w", ErrDuplicateMember, ErrInvalidMemberName)
	}
	if l.HasMember(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateMember, name)
	}
	l.Members = append(l.Members, name)
	return nil
}

// RenameMember renames oldName in place and carries its entries in every
// week over to newName. A stale newName entry in a week is overwritten.
func (l *Ledger) RenameMember(oldName, newName string) error {
	idx := slices.Index(l.Members, oldName)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownMember, oldName)
	}
	if oldName == newName {
		return nil
	}
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("%w: %w", ErrDuplicateMember, ErrInvalidMemberName)
	}
	if l.HasMember(newName) {
		return fmt.Errorf("%w: %q", ErrDuplicateMember, newName)
	}

	l.Members[idx] = newName
	for _, entries := range l.WeeklyData {
		if counts, ok := entries[oldName]; ok {
			entries[newName] = counts
			delete(entries, oldName)
		}
	}
	return nil
}

// RemoveMember drops name from the roster and deletes its entries from every week.
func (l *Ledger) RemoveMember(name string) error {
	idx := slices.Index(l.Members, name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownMember, name)
	}
	l.Members = slices.Delete(l.Members, idx, idx+1)
	for _, entries := range l.WeeklyData {
		delete(entries, name)
	}
	return nil
}

// RecordWeeklyCounts replaces the member's entry for week with a copy of
// counts. Categories omitted from counts are zero afterwards.
func (l *Ledger) RecordWeeklyCounts(week WeekKey, member string, counts ActivityCount) error {
	if WeekKeyOf(week.Date()) != week {
		return fmt.Errorf("%w: %q is not a week key", ErrInvalidWeek, week)
	}
	if !l.HasMember(member) {
		return fmt.Errorf("%w: %q", ErrUnknownMember, member)
	}
	for key, n := range counts {
		if n < 0 {
			return fmt.Errorf("%w: %q has %d", ErrInvalidCount, key, n)
		}
	}

	l.Normalize()
	entries, ok := l.WeeklyData[week]
	if !ok {
		entries = map[string]ActivityCount{}
		l.WeeklyData[week] = entries
	}
	entries[member] = counts.clone()
	return nil
}

func (c ActivityCount) clone() ActivityCount {
	out := make(ActivityCount, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// hasActivity reports whether any count is positive.
func (c ActivityCount) hasActivity() bool {
	for _, n := range c {
		if n > 0 {
			return true
		}
	}
	return false
}
