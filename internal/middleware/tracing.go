package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/logging"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-ID"

// MaxTraceIDLength bounds client supplied trace ids.
const MaxTraceIDLength = 128

// TracingMiddleware gives every request a trace id and writes one log line
// per request once the response is done, naming the caller if an inner auth
// middleware resolved one.
type TracingMiddleware struct {
	logger *logging.Logger
}

// NewTracingMiddleware creates a tracing middleware.
func NewTracingMiddleware(logger *logging.Logger) *TracingMiddleware {
	if logger == nil {
		logger = logging.NewDefault("http")
	}
	return &TracingMiddleware{logger: logger}
}

// requestRecord is shared down the handler chain so that the outer log line
// sees who the inner handlers authenticated.
type requestRecord struct {
	userID string
	role   string
}

type recordKey struct{}

// recordCaller notes ident on the request record, if tracing installed one.
func recordCaller(ctx context.Context, ident *auth.Identity) {
	if rec, ok := ctx.Value(recordKey{}).(*requestRecord); ok && ident != nil {
		rec.userID = ident.UserID
		rec.role = ident.Role
	}
}

// Handler echoes a well-formed incoming trace id or generates one.
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if !ValidTraceID(traceID) {
			traceID = logging.NewTraceID()
		}
		w.Header().Set(TraceHeader, traceID)

		rec := &requestRecord{}
		ctx := logging.WithTraceID(r.Context(), traceID)
		ctx = context.WithValue(ctx, recordKey{}, rec)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r.WithContext(ctx))

		if rec.userID != "" {
			ctx = logging.WithUserID(ctx, rec.userID)
			if rec.role != "" {
				ctx = logging.WithRole(ctx, rec.role)
			}
		}
		m.logger.LogRequest(ctx, r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

// ValidTraceID accepts non-empty ids of letters, digits, '-', '_' and '.'
// up to MaxTraceIDLength bytes.
func ValidTraceID(id string) bool {
	if id == "" || len(id) > MaxTraceIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
