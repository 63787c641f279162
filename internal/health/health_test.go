package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cachememory "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache/memory"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
	catalogmock "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog/mock"
)

func pass(context.Context) error { return nil }

func failWith(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Report {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var rep Report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rep
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := New([]Checker{{Name: "catalog", Check: failWith("down")}})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rep := decode(t, rec); rep.Status != StatusOK || len(rep.Checks) != 0 {
		t.Errorf("report = %+v, want bare ok", rep)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "catalog", Check: pass},
				{Name: "cache", Check: pass},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{"catalog": StatusOK, "cache": StatusOK},
		},
		{
			name: "optional failure degrades",
			checkers: []Checker{
				{Name: "catalog", Check: pass},
				Optional(Checker{Name: "postgres", Check: failWith("refused")}),
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"catalog": StatusOK, "postgres": StatusFail},
		},
		{
			name: "required failure fails",
			checkers: []Checker{
				{Name: "catalog", Check: failWith("down")},
				Optional(Checker{Name: "redis", Check: failWith("refused")}),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"catalog": StatusFail, "redis": StatusFail},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			New(tc.checkers).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			rep := decode(t, rec)
			if rep.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", rep.Status, tc.wantStatus)
			}
			if len(rep.Checks) != len(tc.wantChecks) {
				t.Fatalf("checks = %+v, want %v", rep.Checks, tc.wantChecks)
			}
			for name, want := range tc.wantChecks {
				got := rep.Checks[name]
				if got.Status != want {
					t.Errorf("%s = %q, want %q", name, got.Status, want)
				}
				if (got.Status == StatusFail) != (got.Error != "") {
					t.Errorf("%s: error %q inconsistent with status %q", name, got.Error, got.Status)
				}
			}
		})
	}
}

func TestCheck_TimeoutAndCancellation(t *testing.T) {
	t.Parallel()
	block := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	h := New([]Checker{{Name: "slow", Check: block}}, WithTimeout(20*time.Millisecond))
	if rep := h.Check(context.Background()); rep.Checks["slow"].Error != context.DeadlineExceeded.Error() {
		t.Errorf("timeout report = %+v", rep)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if rep := New([]Checker{{Name: "slow", Check: block}}).Check(ctx); rep.Status != StatusFail {
		t.Errorf("cancelled report status = %q, want fail", rep.Status)
	}
}

func TestCheck_RunsConcurrently(t *testing.T) {
	t.Parallel()
	slow := func(ctx context.Context) error {
		select {
		case <-time.After(100 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h := New([]Checker{{Name: "a", Check: slow}, {Name: "b", Check: slow}, {Name: "c", Check: slow}})

	start := time.Now()
	rep := h.Check(context.Background())
	if rep.Status != StatusOK {
		t.Errorf("status = %q", rep.Status)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("Check took %v, want checks to run in parallel", elapsed)
	}
	if rep.Checks["a"].LatencyMS < 90 {
		t.Errorf("latency = %dms, want about 100", rep.Checks["a"].LatencyMS)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	New(nil).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/readyz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /readyz = %d, want 405", rec.Code)
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCollaboratorCheckers(t *testing.T) {
	t.Parallel()
	cat := &catalogmock.Catalog{
		Items: map[string]catalog.Item{"coffee": {Name: "coffee"}},
		Errs:  map[string]error{"broken": errors.New("connection reset")},
	}

	tests := []struct {
		name    string
		checker Checker
		wantErr bool
	}{
		{"catalog hit", CatalogChecker("catalog", cat, "coffee"), false},
		{"catalog not found is healthy", CatalogChecker("catalog", cat, "pizza"), false},
		{"catalog error", CatalogChecker("catalog", cat, "broken"), true},
		{"cache", CacheChecker("cache", cachememory.New()), false},
		{"ping ok", PingChecker("db", pingerFunc(pass)), false},
		{"ping fail", PingChecker("db", pingerFunc(failWith("down"))), true},
	}
	for _, tc := range tests {
		err := tc.checker.Check(context.Background())
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}
