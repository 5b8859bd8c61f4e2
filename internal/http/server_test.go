package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leaderboard/internal/amqp"
	"leaderboard/internal/core"
	"leaderboard/internal/services"
	"leaderboard/internal/storage"
)

// wednesday falls in the week of 2025-01-13.
var wednesday = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, checks map[string]ReadinessCheck, members ...string) (*Server, *services.LedgerService) {
	t.Helper()
	reg, err := core.NewRegistry([]core.CategoryPoints{{Name: "CECs", Points: 10}, {Name: "Go-Lives", Points: 40}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc := services.NewLedgerService(storage.NewMemoryStore(), reg, nil, nil)
	for _, m := range members {
		if err := svc.AddMember(context.Background(), m); err != nil {
			t.Fatalf("add %s: %v", m, err)
		}
	}
	srv := NewServer(":0", svc, checks, nil, Options{WriteLimit: 1000, Now: func() time.Time { return wednesday }})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, map[string]ReadinessCheck{
		"storage": func(context.Context) error { return nil },
	})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("metrics status=%d", rr.Code)
	}
}

func TestReadyReportsFailingCheck(t *testing.T) {
	srv, _ := newTestServer(t, map[string]ReadinessCheck{
		"storage": func(context.Context) error { return errors.New("database is locked") },
		"cache":   func(context.Context) error { return nil },
	})
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	body := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, rr)
	if body.Status != "not_ready" || body.Checks["cache"] != "ok" || !strings.Contains(body.Checks["storage"], "locked") {
		t.Errorf("unexpected readiness body: %+v", body)
	}
}

func TestMemberLifecycle(t *testing.T) {
	srv, svc := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/members", `{"name":"Ann Lee"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/api/members/Ann%20Lee" {
		t.Errorf("Location = %q", loc)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	// Form bodies are accepted too.
	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader("name=Ben"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("form add status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/members/Ann%20Lee", `{"name":"Ann"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("rename status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/members", "")
	members := decode[struct {
		Members []string `json:"members"`
	}](t, rr)
	if strings.Join(members.Members, ",") != "Ann,Ben" {
		t.Fatalf("members = %v", members.Members)
	}

	rr = do(t, srv, http.MethodDelete, "/api/members/Ben", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove status=%d", rr.Code)
	}
	if got := svc.Members(); len(got) != 1 || got[0] != "Ann" {
		t.Fatalf("service members = %v", got)
	}
}

func TestMemberErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil, "Ann", "Ben")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
		code   string
	}{
		{"duplicate add", http.MethodPost, "/api/members", `{"name":"Ann"}`, http.StatusConflict, "conflict"},
		{"blank add", http.MethodPost, "/api/members", `{"name":"   "}`, http.StatusUnprocessableEntity, "invalid"},
		{"malformed json", http.MethodPost, "/api/members", `{"name":`, http.StatusBadRequest, "bad_request"},
		{"rename onto existing", http.MethodPut, "/api/members/Ann", `{"name":"Ben"}`, http.StatusConflict, "conflict"},
		{"rename unknown", http.MethodPut, "/api/members/Zed", `{"name":"Zoe"}`, http.StatusNotFound, "not_found"},
		{"remove unknown", http.MethodDelete, "/api/members/Zed", "", http.StatusNotFound, "not_found"},
		{"breakdown unknown", http.MethodGet, "/api/members/Zed/breakdown", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if got := decode[ErrorBody](t, rr); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/members/Ann", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on a member resource: status=%d, want 405", rr.Code)
	}
}

func TestRecordAndQuery(t *testing.T) {
	srv, _ := newTestServer(t, nil, "Ann", "Ben")

	rr := do(t, srv, http.MethodPut, "/api/weeks/2025-01-08/members/Ann", `{"counts":{"CECs":2,"Go-Lives":1}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("record status=%d body=%s", rr.Code, rr.Body.String())
	}
	entry := decode[services.Entry](t, rr)
	if entry.Week != "2025-01-06" || entry.Points != 60 || !entry.Recorded || len(entry.Categories) != 2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	rr = do(t, srv, http.MethodPut, "/api/weeks/current/members/Ben", `{"counts":{"Go-Lives":2}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("record current status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/leaderboard", "")
	board := decode[struct {
		Standings []core.Standing `json:"standings"`
		Summary   core.Summary    `json:"summary"`
	}](t, rr)
	if board.Standings[0].Member != "Ben" || board.Standings[0].Points != 80 || board.Summary.TotalPoints != 140 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}

	rr = do(t, srv, http.MethodGet, "/api/weeks", "")
	weeks := decode[struct {
		Current core.WeekKey   `json:"current"`
		Weeks   []core.WeekKey `json:"weeks"`
	}](t, rr)
	if weeks.Current != "2025-01-13" || len(weeks.Weeks) != 2 || weeks.Weeks[0] != "2025-01-13" {
		t.Fatalf("unexpected weeks: %+v", weeks)
	}

	rr = do(t, srv, http.MethodGet, "/api/weeks/2025-01-06/leaderboard", "")
	weekly := decode[struct {
		Week      core.WeekKey    `json:"week"`
		Standings []core.Standing `json:"standings"`
	}](t, rr)
	if weekly.Standings[0].Member != "Ann" || weekly.Standings[1].Points != 0 {
		t.Fatalf("unexpected weekly leaderboard: %+v", weekly)
	}

	rr = do(t, srv, http.MethodGet, "/api/members/Ann/breakdown", "")
	breakdown := decode[struct {
		Categories  []core.CategoryTotal `json:"categories"`
		TotalPoints int                  `json:"total_points"`
	}](t, rr)
	if breakdown.TotalPoints != 60 || len(breakdown.Categories) != 2 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}

	rr = do(t, srv, http.MethodGet, "/api/members/Ben/weekly", "")
	if !strings.Contains(rr.Body.String(), `"week":"2025-01-13","points":80`) {
		t.Errorf("unexpected weekly points: %s", rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/members/Ann/weeks", "")
	if !strings.Contains(rr.Body.String(), `"weeks":["2025-01-06"]`) {
		t.Errorf("unexpected member weeks: %s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/weeks/2025-01-13/members/Ann", "")
	absent := decode[services.Entry](t, rr)
	if absent.Recorded || absent.Points != 0 {
		t.Errorf("expected an unrecorded entry, got %+v", absent)
	}
}

func TestRecordErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil, "Ann")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad week", "/api/weeks/2025-13-01/members/Ann", `{"counts":{"CECs":1}}`, http.StatusUnprocessableEntity},
		{"unknown member", "/api/weeks/2025-01-06/members/Zed", `{"counts":{"CECs":1}}`, http.StatusNotFound},
		{"negative", "/api/weeks/2025-01-06/members/Ann", `{"counts":{"CECs":-1}}`, http.StatusUnprocessableEntity},
		{"fractional", "/api/weeks/2025-01-06/members/Ann", `{"counts":{"CECs":1.5}}`, http.StatusUnprocessableEntity},
		{"unknown category", "/api/weeks/2025-01-06/members/Ann", `{"counts":{"Karaoke":1}}`, http.StatusUnprocessableEntity},
		{"missing counts", "/api/weeks/2025-01-06/members/Ann", `{"CECs":1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPut, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestCategoriesAndResync(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	cats := decode[struct {
		Categories []core.CategoryPoints `json:"categories"`
	}](t, rr)
	if len(cats.Categories) != 2 || cats.Categories[1].Name != "Go-Lives" || cats.Categories[1].Points != 40 {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	// The test service has no publisher, so nothing can be queued.
	rr = do(t, srv, http.MethodPost, "/api/resync", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("resync status=%d, want 503", rr.Code)
	}
	if got := decode[ErrorBody](t, rr); got.Code != "notifications_disabled" {
		t.Errorf("code = %q, want notifications_disabled", got.Code)
	}
}

func TestResyncQueued(t *testing.T) {
	reg, err := core.NewRegistry([]core.CategoryPoints{{Name: "CECs", Points: 10}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	pub := &countingPublisher{}
	svc := services.NewLedgerService(storage.NewMemoryStore(), reg, pub, nil)
	srv := NewServer(":0", svc, nil, nil, Options{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := do(t, srv, http.MethodPost, "/api/resync", "")
	if rr.Code != http.StatusAccepted || pub.n != 1 {
		t.Fatalf("status=%d published=%d", rr.Code, pub.n)
	}
}

type countingPublisher struct{ n int }

func (p *countingPublisher) PublishLedgerChanged(context.Context, *amqp.LedgerChangedMessage) error {
	p.n++
	return nil
}

func TestMemberNamesMatchExactly(t *testing.T) {
	srv, svc := newTestServer(t, nil, " Bob")

	rr := do(t, srv, http.MethodGet, "/api/members/%20Bob/breakdown", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("breakdown of \" Bob\": status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/members/Bob/breakdown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("trimmed name must not match: status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/members", `{"name":"Carol  "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[map[string]string](t, rr); got["name"] != "Carol  " {
		t.Errorf("created name = %q, want %q", got["name"], "Carol  ")
	}

	rr = do(t, srv, http.MethodDelete, "/api/members/%20Bob", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := svc.Members(); len(got) != 1 || got[0] != "Carol  " {
		t.Errorf("members = %q", got)
	}
}

func TestWriteRateLimit(t *testing.T) {
	reg := core.DefaultRegistry()
	svc := services.NewLedgerService(storage.NewMemoryStore(), reg, nil, nil)
	srv := NewServer(":0", svc, nil, nil, Options{WriteLimit: 2})
	defer srv.Shutdown(context.Background())

	codes := []int{}
	for _, name := range []string{"a", "b", "c"} {
		codes = append(codes, do(t, srv, http.MethodPost, "/api/members", `{"name":"`+name+`"}`).Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes: %v", codes)
	}

	// Reads are never limited.
	if rr := do(t, srv, http.MethodGet, "/api/members", ""); rr.Code != http.StatusOK {
		t.Fatalf("read after limit: status=%d", rr.Code)
	}
}
