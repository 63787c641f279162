// Package health serves the liveness and readiness probes of the order
// service.
//
// GET /healthz answers 200 while the process can serve HTTP. GET /readyz
// runs every registered [Checker] concurrently and answers with a [Report]:
// "ok" when everything passed, "degraded" when only optional checks failed
// (still 200), "fail" with 503 when a required check failed.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/cache"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// DefaultTimeout bounds each check.
const DefaultTimeout = 5 * time.Second

// Report statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Checker probes one dependency.
type Checker struct {
	// Name keys the check in the report.
	Name string

	// Check returns nil when the dependency is usable. It must honour ctx.
	Check func(ctx context.Context) error

	// Optional checks only degrade readiness. Use it for dependencies the
	// service can run without, such as a catalog with a fallback.
	Optional bool
}

// Optional returns c marked optional.
func Optional(c Checker) Checker {
	c.Optional = true
	return c
}

// CheckResult is one entry of a [Report].
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the /readyz body.
type Report struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Handler runs a fixed set of checkers.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// Option configures a [Handler].
type Option func(*Handler)

// WithTimeout overrides [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New returns a handler for checkers. The slice is copied.
func New(checkers []Checker, opts ...Option) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Check runs every checker concurrently, each under its own timeout, and
// folds the outcomes into a report.
func (h *Handler) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(h.checkers))

	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			start := time.Now()
			err := c.Check(cctx)
			results[i] = CheckResult{
				Status:    StatusOK,
				Optional:  c.Optional,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				results[i].Status = StatusFail
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Status: StatusOK, Checks: make(map[string]CheckResult, len(results))}
	for i, c := range h.checkers {
		r := results[i]
		rep.Checks[c.Name] = r
		switch {
		case r.Status == StatusOK:
		case c.Optional:
			if rep.Status == StatusOK {
				rep.Status = StatusDegraded
			}
		default:
			rep.Status = StatusFail
		}
	}
	return rep
}

// Healthz answers 200 unconditionally.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Report{Status: StatusOK})
}

// Readyz writes [Handler.Check] for the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := h.Check(r.Context())
	code := http.StatusOK
	if rep.Status == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

// Register mounts both probes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Pinger is a collaborator with a connectivity probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports p.Ping.
func PingChecker(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}

// CatalogChecker looks up probe in c. A not-found answer still proves the
// catalog is reachable.
func CatalogChecker(name string, c catalog.Lookup, probe string) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) error {
		_, err := c.Lookup(ctx, probe)
		if err == nil || errors.Is(err, catalog.ErrNotFound) {
			return nil
		}
		return err
	}}
}

// CacheChecker probes c with an Exists on a fixed key.
func CacheChecker(name string, c cache.Cache) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) error {
		if _, err := c.Exists(ctx, "health:probe"); err != nil {
			return fmt.Errorf("exists: %w", err)
		}
		return nil
	}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
