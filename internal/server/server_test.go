package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/health"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/observe"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/order"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
	catalogmock "github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog/mock"
)

type recordingPublisher struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, _ *order.OrderReport, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	return p.err
}

type failingProcessor struct{ err error }

func (f failingProcessor) Process(context.Context, string) (*order.OrderReport, string, error) {
	return nil, "", f.err
}

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	cat := &catalogmock.Catalog{Items: map[string]catalog.Item{
		"latte":        {Name: "latte", Stock: 10, Price: 4.25, Allergies: "dairy"},
		"glazed donut": {Name: "glazed donut", Stock: 48, Price: 1.29},
	}}
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	opts = append([]Option{WithMetrics(m), WithGatherer(prometheus.NewRegistry())}, opts...)
	return New(order.NewProcessor(cat), opts...).Handler()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOrders_OK(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	h := newTestServer(t, WithPublisher(pub))

	rec := post(t, h, `{"transcription": "two lattes and a glazed donut"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Report  []map[string]map[string]any `json:"report"`
		Text    string                      `json:"text"`
		Partial bool                        `json:"partial"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Report) != 2 {
		t.Fatalf("len(report) = %d, want 2", len(resp.Report))
	}
	coffee, ok := resp.Report[0]["CoffeeItem"]
	if !ok {
		t.Fatalf("report[0] = %v, want CoffeeItem", resp.Report[0])
	}
	if _, ok := coffee["allergies"]; ok {
		t.Error("report item exposes allergies")
	}
	if _, ok := resp.Report[1]["BakeryItem"]; !ok {
		t.Errorf("report[1] = %v, want BakeryItem", resp.Report[1])
	}
	if !strings.Contains(resp.Text, "dairy") {
		t.Errorf("text %q missing allergies", resp.Text)
	}
	if resp.Partial {
		t.Error("partial = true, want false")
	}
	if len(pub.texts) != 1 || pub.texts[0] != resp.Text {
		t.Errorf("published %q", pub.texts)
	}
}

func TestOrders_BadRequests(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty transcription", `{"transcription": "  "}`},
		{"malformed json", `{"transcription":`},
		{"unknown field", `{"text": "a latte"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := post(t, h, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == "" {
				t.Errorf("error body = %+v, %v", body, err)
			}
		})
	}
}

func TestOrders_ProcessorFailure(t *testing.T) {
	t.Parallel()
	h := New(failingProcessor{err: errors.New("boom")}, WithGatherer(prometheus.NewRegistry())).Handler()
	rec := post(t, h, `{"transcription": "a latte"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestOrders_PublishFailureStillAnswers(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, WithPublisher(&recordingPublisher{err: errors.New("broker down")}))
	if rec := post(t, h, `{"transcription": "a latte"}`); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestOrders_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/orders", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "beanhub_test_total"}))
	failing := health.New([]health.Checker{{Name: "catalog", Check: func(context.Context) error {
		return errors.New("down")
	}}})
	h := newTestServer(t, WithGatherer(reg), WithHealth(failing))

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/readyz", http.StatusServiceUnavailable, `"error":"down"`},
		{"/metrics", http.StatusOK, "beanhub_test_total"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.wantStatus)
		}
		if !strings.Contains(rec.Body.String(), tc.wantBody) {
			t.Errorf("%s: body %q missing %q", tc.path, rec.Body, tc.wantBody)
		}
	}
}
