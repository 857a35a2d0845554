package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budget/internal/core"
	"budget/internal/goal"
	"budget/internal/ledger"
)

type memKV struct {
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	kv := &memKV{data: map[string][]byte{}}
	transactions := ledger.New(kv)
	goals := goal.NewStore(kv)
	s := NewServer(":0", transactions, goals, kv, 10)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
	status := decode[map[string]string](t, rec)
	if status["status"] != "ready" {
		t.Errorf("readyz status = %q, want ready", status["status"])
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/transactions",
		`{"description":"groceries","amount":20000,"type":"expense","category":"food","date":"2024-03-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[core.Transaction](t, rec)
	if created.ID == "" {
		t.Fatalf("created transaction has no id")
	}

	rec = do(t, s, http.MethodGet, "/api/transactions?month=3&year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	page := decode[ledger.Page](t, rec)
	if page.TotalItems != 1 || len(page.Items) != 1 || page.Items[0].ID != created.ID {
		t.Errorf("page = %+v", page)
	}

	rec = do(t, s, http.MethodPut, "/api/transactions/"+created.ID, `{"amount":25000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[core.Transaction](t, rec)
	if updated.Amount.Cents != 25000 || updated.Description != "groceries" {
		t.Errorf("updated = %+v", updated)
	}

	rec = do(t, s, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	page = decode[ledger.Page](t, do(t, s, http.MethodGet, "/api/transactions?month=3&year=2024", ""))
	if page.TotalItems != 0 {
		t.Errorf("transactions remain after delete: %+v", page)
	}
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"zero amount", `{"description":"x","amount":0,"type":"expense","date":"2024-03-05"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"description":"x","amount":100,"type":"transfer","date":"2024-03-05"}`, http.StatusUnprocessableEntity},
		{"empty description", `{"description":"","amount":100,"type":"income","date":"2024-03-05"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if rec := do(t, s, http.MethodPost, "/api/transactions", tc.body); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestListTransactionsPagination(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 25; i++ {
		rec := do(t, s, http.MethodPost, "/api/transactions",
			`{"description":"item","amount":100,"type":"expense","category":"misc","date":"2024-03-05"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d = %d", i, rec.Code)
		}
	}

	page := decode[ledger.Page](t, do(t, s, http.MethodGet, "/api/transactions?month=3&year=2024&page=3", ""))
	if page.TotalItems != 25 || page.TotalPages != 3 {
		t.Fatalf("page = %+v", page)
	}
	if len(page.Items) != 5 || !page.HasPrev || page.HasNext {
		t.Errorf("last page = %+v", page)
	}

	// Out-of-range pages clamp instead of failing.
	page = decode[ledger.Page](t, do(t, s, http.MethodGet, "/api/transactions?month=3&year=2024&page=99", ""))
	if page.Page != 3 {
		t.Errorf("clamped page = %d, want 3", page.Page)
	}
}

func TestSummaryAndBreakdown(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{
		`{"description":"paycheck","amount":50000,"type":"income","category":"salary","date":"2024-03-01"}`,
		`{"description":"groceries","amount":20000,"type":"expense","category":"food","date":"2024-03-05"}`,
		`{"description":"takeout","amount":5000,"type":"expense","category":"food","date":"2024-03-10"}`,
	} {
		if rec := do(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create = %d", rec.Code)
		}
	}

	summary := decode[core.PeriodSummary](t, do(t, s, http.MethodGet, "/api/summary?month=3&year=2024", ""))
	if summary.Income.Cents != 50000 || summary.Expenses.Cents != 25000 || summary.Balance.Cents != 25000 {
		t.Errorf("summary = %+v", summary)
	}

	breakdown := decode[[]core.CategoryAmount](t, do(t, s, http.MethodGet, "/api/breakdown?month=3&year=2024", ""))
	if len(breakdown) != 1 || breakdown[0].Category != "food" || breakdown[0].Amount.Cents != 25000 {
		t.Errorf("breakdown = %+v", breakdown)
	}

	// A mutation invalidates the cached summary for its period.
	if rec := do(t, s, http.MethodPost, "/api/transactions",
		`{"description":"bus","amount":1000,"type":"expense","category":"transport","date":"2024-03-11"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}
	summary = decode[core.PeriodSummary](t, do(t, s, http.MethodGet, "/api/summary?month=3&year=2024", ""))
	if summary.Expenses.Cents != 26000 {
		t.Errorf("summary after mutation = %+v, want refreshed expenses", summary)
	}

	if rec := do(t, s, http.MethodGet, "/api/summary?month=13&year=2024", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid month = %d, want 400", rec.Code)
	}
}

func TestGoalLifecycleAndProgress(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{
		`{"description":"paycheck","amount":50000,"type":"income","category":"salary","date":"2024-03-01"}`,
		`{"description":"groceries","amount":25000,"type":"expense","category":"food","date":"2024-03-05"}`,
	} {
		if rec := do(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create tx = %d", rec.Code)
		}
	}

	rec := do(t, s, http.MethodPost, "/api/goals",
		`{"type":"expense-below","amount":20000,"month":3,"year":2024}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[goal.Goal](t, rec)

	goals := decode[[]goal.Goal](t, do(t, s, http.MethodGet, "/api/goals", ""))
	if len(goals) != 1 || goals[0].ID != created.ID {
		t.Errorf("goals = %+v", goals)
	}

	progress := decode[[]goal.Progress](t, do(t, s, http.MethodGet, "/api/goals/progress?month=3&year=2024", ""))
	if len(progress) != 1 {
		t.Fatalf("progress = %+v", progress)
	}
	if progress[0].Percentage != 100 || progress[0].OnTrack {
		t.Errorf("over-budget goal: %+v", progress[0])
	}

	// Another period has no applicable goals.
	progress = decode[[]goal.Progress](t, do(t, s, http.MethodGet, "/api/goals/progress?month=4&year=2024", ""))
	if len(progress) != 0 {
		t.Errorf("progress for other period = %+v", progress)
	}

	if rec := do(t, s, http.MethodPut, "/api/goals/"+created.ID,
		`{"type":"expense-below","amount":30000,"month":3,"year":2024}`); rec.Code != http.StatusNoContent {
		t.Fatalf("update goal = %d: %s", rec.Code, rec.Body.String())
	}
	progress = decode[[]goal.Progress](t, do(t, s, http.MethodGet, "/api/goals/progress?month=3&year=2024", ""))
	if !progress[0].OnTrack {
		t.Errorf("raised limit should be on track: %+v", progress[0])
	}

	if rec := do(t, s, http.MethodDelete, "/api/goals/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete goal = %d", rec.Code)
	}
	goals = decode[[]goal.Goal](t, do(t, s, http.MethodGet, "/api/goals", ""))
	if len(goals) != 0 {
		t.Errorf("goals after delete = %+v", goals)
	}

	if rec := do(t, s, http.MethodPost, "/api/goals", `{"type":"bogus"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid goal = %d, want 422", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Errorf("empty settings = %d %q", rec.Code, rec.Body.String())
	}

	if rec := do(t, s, http.MethodPut, "/api/settings", `{"theme":"dark","currency":"USD"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("put settings = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/settings", "")
	settings := decode[map[string]string](t, rec)
	if settings["theme"] != "dark" || settings["currency"] != "USD" {
		t.Errorf("settings = %+v", settings)
	}

	if rec := do(t, s, http.MethodPut, "/api/settings", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid settings = %d, want 400", rec.Code)
	}
}
