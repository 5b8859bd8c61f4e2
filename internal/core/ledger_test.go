package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const week1 WeekKey = "2025-01-06"
const week2 WeekKey = "2025-01-13"

func ledgerWith(members ...string) *Ledger {
	l := NewLedger()
	for _, m := range members {
		if err := l.AddMember(m); err != nil {
			panic(err)
		}
	}
	return l
}

func TestAddMember(t *testing.T) {
	l := ledgerWith("Alice")
	if err := l.AddMember("Bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(l.Members, []string{"Alice", "Bob"}) {
		t.Fatalf("unexpected roster: %v", l.Members)
	}
	if err := l.AddMember("Alice"); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
	err := l.AddMember("   ")
	if !errors.Is(err, ErrDuplicateMember) || !errors.Is(err, ErrInvalidMemberName) {
		t.Fatalf("expected blank name rejection, got %v", err)
	}
	// Case-sensitive.
	if err := l.AddMember("alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenameMember(t *testing.T) {
	l := ledgerWith("Alice", "Bob")
	_ = l.RecordWeeklyCounts(week1, "Alice", ActivityCount{"A": 2})
	_ = l.RecordWeeklyCounts(week2, "Alice", ActivityCount{"B": 1})

	if err := l.RenameMember("Alice", "Alicia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(l.Members, []string{"Alicia", "Bob"}) {
		t.Fatalf("rename should keep position: %v", l.Members)
	}
	for _, w := range []WeekKey{week1, week2} {
		if _, ok := l.Entry(w, "Alice"); ok {
			t.Fatalf("old name still present in %s", w)
		}
		if _, ok := l.Entry(w, "Alicia"); !ok {
			t.Fatalf("new name missing in %s", w)
		}
	}

	if err := l.RenameMember("Nobody", "X"); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
	if err := l.RenameMember("Bob", "Alicia"); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
	if err := l.RenameMember("Bob", "Bob"); err != nil {
		t.Fatalf("same-name rename should be a no-op, got %v", err)
	}
	if err := l.RenameMember("Bob", ""); !errors.Is(err, ErrInvalidMemberName) {
		t.Fatalf("expected ErrInvalidMemberName, got %v", err)
	}
}

func TestRenameOverwritesStaleEntry(t *testing.T) {
	l := ledgerWith("Alice")
	_ = l.RecordWeeklyCounts(week1, "Alice", ActivityCount{"A": 2})
	// Leftover data under a name that is no longer on the roster.
	l.WeeklyData[week1]["Ghost"] = ActivityCount{"B": 9}

	if err := l.RenameMember("Alice", "Ghost"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := l.Entry(week1, "Ghost")
	if !reflect.DeepEqual(got, ActivityCount{"A": 2}) {
		t.Fatalf("expected last-write-wins, got %v", got)
	}
}

func TestScenarioC(t *testing.T) {
	l := ledgerWith("Alice", "Bob")
	if err := l.RenameMember("Alice", "Alicia"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := l.AddMember("Alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.RenameMember("Bob", "Alice"); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	l := ledgerWith("Alice", "Bob", "Carol")
	_ = l.RecordWeeklyCounts(week1, "Bob", ActivityCount{"A": 1})
	_ = l.RecordWeeklyCounts(week2, "Bob", ActivityCount{"A": 1})
	_ = l.RecordWeeklyCounts(week2, "Carol", ActivityCount{"A": 1})

	if err := l.RemoveMember("Bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(l.Members, []string{"Alice", "Carol"}) {
		t.Fatalf("unexpected roster: %v", l.Members)
	}
	for w, entries := range l.WeeklyData {
		if _, ok := entries["Bob"]; ok {
			t.Fatalf("Bob still present in %s", w)
		}
	}
	if _, ok := l.Entry(week2, "Carol"); !ok {
		t.Fatalf("Carol's entry should survive")
	}
	if err := l.RemoveMember("Bob"); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("expected ErrUnknownMember, got %v", err)
	}
}

func TestRecordWeeklyCounts(t *testing.T) {
	l := ledgerWith("Alice")

	cases := []struct {
		name   string
		week   WeekKey
		member string
		counts ActivityCount
		err    error
	}{
		{"ok", week1, "Alice", ActivityCount{"A": 2}, nil},
		{"zero ok", week1, "Alice", ActivityCount{"A": 0}, nil},
		{"unknown member", week1, "Bob", ActivityCount{"A": 1}, ErrUnknownMember},
		{"negative", week1, "Alice", ActivityCount{"A": -1}, ErrInvalidCount},
		{"not a monday", "2025-01-07", "Alice", ActivityCount{"A": 1}, ErrInvalidWeek},
		{"malformed week", "soon", "Alice", ActivityCount{"A": 1}, ErrInvalidWeek},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := l.RecordWeeklyCounts(tc.week, tc.member, tc.counts)
			if tc.err == nil && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestRecordWeeklyCountsCopiesInput(t *testing.T) {
	l := ledgerWith("Alice")
	in := ActivityCount{"A": 2}
	_ = l.RecordWeeklyCounts(week1, "Alice", in)
	in["A"] = 100
	got, _ := l.Entry(week1, "Alice")
	if got["A"] != 2 {
		t.Fatalf("stored entry aliased caller map")
	}
}

func TestScenarioD(t *testing.T) {
	l := ledgerWith("Alice")
	_ = l.RecordWeeklyCounts(week1, "Alice", ActivityCount{"A": 2})
	_ = l.RecordWeeklyCounts(week1, "Alice", ActivityCount{"B": 1})
	got, _ := l.Entry(week1, "Alice")
	if !reflect.DeepEqual(got, ActivityCount{"B": 1}) {
		t.Fatalf("expected full replacement, got %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	l := ledgerWith("Alice")
	_ = l.RecordWeeklyCounts(week1, "Alice", ActivityCount{"A": 2})
	c := l.Clone()
	c.Members[0] = "Zed"
	c.WeeklyData[week1]["Alice"]["A"] = 50
	if l.Members[0] != "Alice" {
		t.Fatalf("roster aliased")
	}
	if got, _ := l.Entry(week1, "Alice"); got["A"] != 2 {
		t.Fatalf("counts aliased")
	}
}

func TestLedgerJSONShape(t *testing.T) {
	raw := `{"team_members":["Alice"],"weekly_data":{"2025-01-06":{"Alice":{"Hands On Labs":1,"Retired":3}}}}`
	var l Ledger
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := l.Entry(week1, "Alice")
	if !ok || got["Retired"] != 3 {
		t.Fatalf("unknown category keys must survive decoding: %v", got)
	}

	var empty Ledger
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	empty.Normalize()
	if empty.Members == nil || empty.WeeklyData == nil {
		t.Fatalf("Normalize left nil collections")
	}
}

// multiWeekLedger spreads three members over three weeks, including a
// category key the registry does not know.
func multiWeekLedger(t *testing.T) *Ledger {
	t.Helper()
	l := ledgerWith("Ann", "Ben", "Cid")
	records := []struct {
		week   WeekKey
		member string
		counts ActivityCount
	}{
		{week1, "Ann", ActivityCount{"CECs": 2, "Go-Lives": 1, "Retired": 7}},
		{week1, "Ben", ActivityCount{"Hands On Labs": 3}},
		{week2, "Ann", ActivityCount{"Summit Registrants": 4}},
		{week2, "Cid", ActivityCount{"Technical Wins": 1, "Retired": 2}},
		{"2025-01-20", "Ann", ActivityCount{"CECs": 0}},
		{"2025-01-20", "Ben", ActivityCount{"New POCs Started": 2}},
	}
	for _, r := range records {
		if err := l.RecordWeeklyCounts(r.week, r.member, r.counts); err != nil {
			t.Fatalf("record %s/%s: %v", r.week, r.member, err)
		}
	}
	return l
}

func totalPoints(reg *Registry, l *Ledger) int {
	total := 0
	for _, s := range Leaderboard(reg, l) {
		total += s.Points
	}
	return total
}

func TestRenamePreservesBreakdown(t *testing.T) {
	reg := DefaultRegistry()
	for _, member := range []string{"Ann", "Ben", "Cid"} {
		t.Run(member, func(t *testing.T) {
			l := multiWeekLedger(t)
			before := MemberBreakdown(reg, l, member)
			weeklyBefore := MemberWeeklyPoints(reg, l, member)

			if err := l.RenameMember(member, member+"-renamed"); err != nil {
				t.Fatalf("rename: %v", err)
			}
			if got := MemberBreakdown(reg, l, member+"-renamed"); !reflect.DeepEqual(got, before) {
				t.Errorf("breakdown after rename = %v, want %v", got, before)
			}
			if got := MemberWeeklyPoints(reg, l, member+"-renamed"); !reflect.DeepEqual(got, weeklyBefore) {
				t.Errorf("weekly points after rename = %v, want %v", got, weeklyBefore)
			}
		})
	}
}

func TestRemoveDecreasesTotalByMemberPoints(t *testing.T) {
	reg := DefaultRegistry()
	for _, member := range []string{"Ann", "Ben", "Cid"} {
		t.Run(member, func(t *testing.T) {
			l := multiWeekLedger(t)
			before := totalPoints(reg, l)
			prior := 0
			for _, s := range Leaderboard(reg, l) {
				if s.Member == member {
					prior = s.Points
				}
			}
			if prior == 0 {
				t.Fatalf("fixture gives %s no points", member)
			}

			if err := l.RemoveMember(member); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if after := totalPoints(reg, l); before-after != prior {
				t.Errorf("total dropped by %d, want %d", before-after, prior)
			}
		})
	}
}
