package observe

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Response headers set by [Middleware].
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

const maxRequestIDLen = 128

// responseWriter remembers the first status written.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *responseWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Middleware instruments every request with a server span continuing any
// W3C trace context in the headers, a request ID, a duration sample and a
// completion log line. A panicking handler is logged and answered with 500.
//
// The request ID is the caller's X-Request-ID when it is well formed,
// otherwise the trace ID. Both IDs are echoed in the response headers.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			rid := requestID(r.Header.Get(HeaderRequestID), cid)
			ctx = WithRequestID(ctx, rid)

			h := w.Header()
			h.Set(HeaderRequestID, rid)
			if cid != "" {
				h.Set(HeaderCorrelationID, cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(h))

			rw := &responseWriter{ResponseWriter: w}
			r = r.WithContext(ctx)
			serve(rw, r, next)

			// ServeMux sets Pattern on the request it routed.
			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}
			status := rw.code()
			elapsed := time.Since(start)

			name := route
			if _, path, ok := strings.Cut(route, " "); ok {
				name = path
			}
			span.SetName(r.Method + " " + name)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.String("status_class", statusClass(status)),
			))

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			Logger(ctx).LogAttrs(ctx, level, "request completed",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Duration("duration", elapsed),
			)
		})
	}
}

// serve runs next and converts a panic into a 500. http.ErrAbortHandler is
// re-raised so the server aborts the connection as usual.
func serve(w *responseWriter, r *http.Request, next http.Handler) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v == http.ErrAbortHandler {
			panic(v)
		}
		Logger(r.Context()).Error("handler panicked",
			"panic", v,
			"stack", string(debug.Stack()),
		)
		if w.status == 0 {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.status = http.StatusInternalServerError
	}()
	next.ServeHTTP(w, r)
}

// requestID accepts a caller-supplied id of printable ASCII, falling back to
// the trace ID and then to a random token.
func requestID(header, traceID string) string {
	if validRequestID(header) {
		return header
	}
	if traceID != "" {
		return traceID
	}
	return rand.Text()
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// statusClass buckets a status code as "2xx", "4xx" and so on.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
