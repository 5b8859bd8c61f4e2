package http

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"leaderboard/internal/core"
	"leaderboard/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	traceMetrics := s.traceMiddleware.GetMetrics()
	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"http": map[string]int64{
			"requests_total":      traceMetrics.TotalRequests,
			"avg_response_us":     traceMetrics.AverageResponseTime,
			"rate_limit_clients":  int64(s.rateLimiter.ActiveClients()),
			"rate_limit_hits":     s.security.rateLimitHitsTotal(),
			"suspicious_requests": s.security.suspiciousRequestsTotal(),
		},
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"categories": s.ledger.Registry().Entries(),
	}).Write(w)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	standings, summary := s.ledger.Leaderboard()
	NewJSONResponse().Body(map[string]any{
		"standings": standings,
		"summary":   summary,
	}).Write(w)
}

func (s *Server) handleWeeks(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"current": core.WeekKeyOf(s.now()),
		"weeks":   s.ledger.ActiveWeeks(),
	}).Write(w)
}

func (s *Server) handleWeeklyLeaderboard(w http.ResponseWriter, r *http.Request) {
	week, err := ParseWeekParam(r, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	standings := s.ledger.WeeklyLeaderboard(week)
	NewJSONResponse().Body(map[string]any{
		"week":      week,
		"standings": standings,
		"summary":   core.Summarize(standings),
	}).Write(w)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	week, err := ParseWeekParam(r, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.ledger.Entry(week, MemberParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

// handlePutEntry replaces a member's counts for a week. Categories left out
// of the body are zero afterwards.
func (s *Server) handlePutEntry(w http.ResponseWriter, r *http.Request) {
	week, err := ParseWeekParam(r, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	counts, err := NewRequestBodyParser(w, r).Counts()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	member := MemberParam(r)
	if err := s.ledger.RecordWeeklyCounts(r.Context(), week, member, counts); err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.ledger.Entry(week, member)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"members": s.ledger.Members(),
	}).Write(w)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, err)
		return
	}
	name := p.Get("name")
	if err := s.ledger.AddMember(r.Context(), name); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/members/"+url.PathEscape(name)).
		Body(map[string]string{"name": name}).
		Write(w)
}

func (s *Server) handleRenameMember(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, err)
		return
	}
	newName := p.Get("name")
	if err := s.ledger.RenameMember(r.Context(), MemberParam(r), newName); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"name": newName}).Write(w)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveMember(r.Context(), MemberParam(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleMemberBreakdown(w http.ResponseWriter, r *http.Request) {
	member := MemberParam(r)
	breakdown, err := s.ledger.MemberBreakdown(member)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	total := 0
	for _, c := range breakdown {
		total += c.Points
	}
	NewJSONResponse().Body(map[string]any{
		"member":       member,
		"categories":   breakdown,
		"total_points": total,
	}).Write(w)
}

func (s *Server) handleMemberWeekly(w http.ResponseWriter, r *http.Request) {
	member := MemberParam(r)
	points, err := s.ledger.MemberWeeklyPoints(member)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"member": member,
		"weeks":  points,
	}).Write(w)
}

func (s *Server) handleMemberWeeks(w http.ResponseWriter, r *http.Request) {
	member := MemberParam(r)
	weeks, err := s.ledger.MemberWeeks(member)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"member": member,
		"weeks":  weeks,
	}).Write(w)
}

// handleResync asks the worker to re-export the current standings.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Resync(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusAccepted).Body(map[string]string{"status": "queued"}).Write(w)
}

// fail writes the error response for err, logging server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorFor(err)
	if resp.statusCode == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
	resp.Write(w)
}
