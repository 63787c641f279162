package observe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test. Tests calling it must not run in parallel.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestCorrelationID(t *testing.T) {
	exp := useTestTracer(t)

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	ctx, span := StartSpan(context.Background(), "order.process")
	cid := CorrelationID(ctx)
	span.End()

	if len(cid) != 32 {
		t.Fatalf("CorrelationID length = %d, want 32", len(cid))
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if want := spans[0].SpanContext.TraceID().String(); cid != want {
		t.Errorf("CorrelationID = %q, want trace id %q", cid, want)
	}
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	exp := useTestTracer(t)

	ctx, parent := StartSpan(context.Background(), "order.process")
	_, child := StartSpan(ctx, "order.segment")
	child.End()
	parent.End()

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	seg, proc := spans[0], spans[1]
	if seg.Name != "order.segment" || proc.Name != "order.process" {
		t.Fatalf("span names = %q, %q", seg.Name, proc.Name)
	}
	if seg.Parent.SpanID() != proc.SpanContext.SpanID() {
		t.Error("segment span is not a child of the process span")
	}
	if seg.InstrumentationScope.Name != scope {
		t.Errorf("scope = %q, want %q", seg.InstrumentationScope.Name, scope)
	}
}

func TestEndSpan(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantEvents []string
	}{
		{name: "success", wantCode: codes.Unset},
		{name: "failure", err: errors.New("catalog down"), wantCode: codes.Error, wantEvents: []string{"exception"}},
		{name: "cancelled", err: fmt.Errorf("lookup: %w", context.Canceled), wantCode: codes.Unset, wantEvents: []string{"cancelled"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exp := useTestTracer(t)

			_, span := StartSpan(context.Background(), "op")
			EndSpan(span, tc.err)

			spans := exp.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("recorded %d spans, want 1", len(spans))
			}
			got := spans[0]
			if got.Status.Code != tc.wantCode {
				t.Errorf("status = %v, want %v", got.Status.Code, tc.wantCode)
			}
			if len(got.Events) != len(tc.wantEvents) {
				t.Fatalf("events = %v, want %v", got.Events, tc.wantEvents)
			}
			for i, ev := range got.Events {
				if ev.Name != tc.wantEvents[i] {
					t.Errorf("event %d = %q, want %q", i, ev.Name, tc.wantEvents[i])
				}
			}
		})
	}
}
