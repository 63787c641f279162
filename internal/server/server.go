// Package server exposes the order processor over HTTP.
//
// Routes:
//
//   - POST /v1/orders: body {"transcription": "..."}; returns the report.
//   - GET  /healthz, GET /readyz: see the health package.
//   - GET  /metrics: Prometheus scrape endpoint.
//
// Every route is wrapped in [observe.Middleware].
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/health"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/order"
)

// maxBodyBytes caps the size of an order request body.
const maxBodyBytes = 64 << 10

// Processor turns a transcription into an order report.
type Processor interface {
	Process(ctx context.Context, transcription string) (*order.OrderReport, string, error)
}

// Publisher forwards a finished report downstream.
type Publisher interface {
	Publish(ctx context.Context, report *order.OrderReport, text string) error
}

var _ Processor = (*order.Processor)(nil)

// OrderRequest is the body of POST /v1/orders.
type OrderRequest struct {
	Transcription string `json:"transcription"`
}

// OrderResponse is the 200 response of POST /v1/orders.
type OrderResponse struct {
	Report       []order.LineItem    `json:"report"`
	Questions    []order.LineItem    `json:"questions"`
	Unrecognized []string            `json:"unrecognized"`
	Failures     []order.SlotFailure `json:"failures,omitempty"`
	Text         string              `json:"text"`
	Partial      bool                `json:"partial"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the processor.
type Server struct {
	proc     Processor
	pub      Publisher
	health   *health.Handler
	metrics  *observe.Metrics
	gatherer prometheus.Gatherer
}

// Option configures a [Server].
type Option func(*Server)

// WithPublisher publishes every successful report through p.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.pub = p }
}

// WithHealth serves /healthz and /readyz from h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics sets the instruments used by the HTTP middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer serves /metrics from g. Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New returns a Server for proc.
func New(proc Processor, opts ...Option) *Server {
	s := &Server{proc: proc}
	for _, o := range opts {
		o(s)
	}
	if s.health == nil {
		s.health = health.New(nil)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	return s
}

// Handler returns the fully routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/orders", s.handleOrder)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.health.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observe.Logger(ctx)

	var req OrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	report, text, err := s.proc.Process(ctx, req.Transcription)
	switch {
	case errors.Is(err, order.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "transcription must not be empty"})
		return
	case err != nil:
		log.Error("order processing failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if s.pub != nil {
		if err := s.pub.Publish(ctx, report, text); err != nil {
			log.Warn("report dispatch failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		Report:       report.Items,
		Questions:    report.Questions,
		Unrecognized: report.Unrecognized,
		Failures:     report.Failures,
		Text:         text,
		Partial:      report.Partial,
	})
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observe.Logger(context.Background()).Warn("encode response failed", "err", err)
	}
}
