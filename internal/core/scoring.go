package core

import (
	"slices"
	"sort"
)

// PointsFor sums count * points over the categories known to reg.
// Unknown keys contribute nothing.
func PointsFor(reg *Registry, counts ActivityCount) int {
	total := 0
	for key, n := range counts {
		name, ok := reg.Lookup(key)
		if !ok {
			continue
		}
		total += n * reg.Points(name)
	}
	return total
}

// Leaderboard ranks every roster member by all-time points, highest first.
// Ties keep roster order.
func Leaderboard(reg *Registry, l *Ledger) []Standing {
	standings := make([]Standing, len(l.Members))
	for i, member := range l.Members {
		total := 0
		for _, entries := range l.WeeklyData {
			if counts, ok := entries[member]; ok {
				total += PointsFor(reg, counts)
			}
		}
		standings[i] = Standing{Member: member, Points: total}
	}
	rank(standings)
	return standings
}

// WeeklyLeaderboard ranks every roster member by points in one week.
// Members without an entry score zero and are still listed.
func WeeklyLeaderboard(reg *Registry, l *Ledger, week WeekKey) []Standing {
	standings := make([]Standing, len(l.Members))
	for i, member := range l.Members {
		points := 0
		if counts, ok := l.Entry(week, member); ok {
			points = PointsFor(reg, counts)
		}
		standings[i] = Standing{Member: member, Points: points}
	}
	rank(standings)
	return standings
}

func rank(standings []Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
}

// MemberBreakdown totals a member's counts per category across all weeks.
// Every registry category is present, in registry order.
func MemberBreakdown(reg *Registry, l *Ledger, member string) []CategoryTotal {
	names := reg.Names()
	counts := make(map[CategoryName]int, len(names))
	for _, entries := range l.WeeklyData {
		entry, ok := entries[member]
		if !ok {
			continue
		}
		for key, n := range entry {
			if name, ok := reg.Lookup(key); ok {
				counts[name] += n
			}
		}
	}

	out := make([]CategoryTotal, len(names))
	for i, name := range names {
		out[i] = CategoryTotal{
			Category: name,
			Count:    counts[name],
			Points:   counts[name] * reg.Points(name),
		}
	}
	return out
}

// MemberWeeklyPoints lists a member's points per week in ascending week
// order. Weeks worth zero points are left out.
func MemberWeeklyPoints(reg *Registry, l *Ledger, member string) []WeekPoints {
	out := []WeekPoints{}
	for week, entries := range l.WeeklyData {
		counts, ok := entries[member]
		if !ok {
			continue
		}
		if pts := PointsFor(reg, counts); pts > 0 {
			out = append(out, WeekPoints{Week: week, Points: pts})
		}
	}
	slices.SortFunc(out, func(a, b WeekPoints) int {
		return compareWeeks(a.Week, b.Week)
	})
	return out
}

// ActiveWeeks returns, newest first, every week in which at least one member
// has a positive count.
func ActiveWeeks(l *Ledger) []WeekKey {
	out := []WeekKey{}
	for week, entries := range l.WeeklyData {
		for _, counts := range entries {
			if counts.hasActivity() {
				out = append(out, week)
				break
			}
		}
	}
	sortWeeksDesc(out)
	return out
}

// MemberWeeks returns, newest first, the weeks in which member has a positive count.
func MemberWeeks(l *Ledger, member string) []WeekKey {
	out := []WeekKey{}
	for week, entries := range l.WeeklyData {
		if counts, ok := entries[member]; ok && counts.hasActivity() {
			out = append(out, week)
		}
	}
	sortWeeksDesc(out)
	return out
}

// EntryBreakdown details a single entry: registry categories with a
// positive count, in registry order.
func EntryBreakdown(reg *Registry, counts ActivityCount) []CategoryTotal {
	out := []CategoryTotal{}
	for _, name := range reg.Names() {
		n := counts[string(name)]
		if n <= 0 {
			continue
		}
		out = append(out, CategoryTotal{Category: name, Count: n, Points: n * reg.Points(name)})
	}
	return out
}

// Summarize computes headline figures for a ranked leaderboard.
func Summarize(standings []Standing) Summary {
	s := Summary{Members: len(standings)}
	for _, st := range standings {
		s.TotalPoints += st.Points
		if st.Points > 0 {
			s.ActiveMembers++
		}
	}
	if len(standings) > 0 && standings[0].Points > 0 {
		s.Leader = standings[0].Member
		s.LeaderPoints = standings[0].Points
	}
	return s
}

func sortWeeksDesc(weeks []WeekKey) {
	slices.SortFunc(weeks, func(a, b WeekKey) int {
		return compareWeeks(b, a)
	})
}

func compareWeeks(a, b WeekKey) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
