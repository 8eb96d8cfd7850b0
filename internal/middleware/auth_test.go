package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/metrics"
	"github.com/R3E-Network/marina/internal/errors"
	"github.com/R3E-Network/marina/internal/logging"
)

type stubResolver map[string]*auth.Identity

func (s stubResolver) ResolveToken(_ context.Context, token string) (*auth.Identity, error) {
	if ident, ok := s[token]; ok {
		return ident, nil
	}
	return nil, errors.InvalidToken(nil)
}

var resolver = stubResolver{
	"good":  {UserID: "u1", Email: "ann@example.com", Token: "good"},
	"admin": {UserID: "root", Role: auth.RoleAdmin, Token: "admin"},
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := auth.IdentityFromContext(r.Context())
		if ident == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(ident.UserID + "|" + GetUserID(r.Context()) + "|" + GetUserRole(r.Context())))
	})
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Token abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestAuthMiddleware_Handler_MissingAuthHeader(t *testing.T) {
	m := metrics.New("test")
	mw := NewAuthMiddleware(resolver, logging.NewDiscard("test"), m)

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	rr := httptest.NewRecorder()
	mw.Handler(echoIdentity()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	body := rr.Body.String()
	if got := gjson.Get(body, "code").Int(); got != 401 {
		t.Errorf("code = %d", got)
	}
	if got := gjson.Get(body, "type").String(); got != string(errors.CodeUnauthorized) {
		t.Errorf("type = %q", got)
	}
	if !strings.Contains(scrape(t, m), `test_auth_failures_total{reason="missing_token"} 1`) {
		t.Errorf("missing_token auth failure not counted")
	}
}

func TestAuthMiddleware_Handler_InvalidToken(t *testing.T) {
	mw := NewAuthMiddleware(resolver, logging.NewDiscard("test"), nil)

	for _, header := range []string{"Bearer nope", "Basic good"} {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		mw.Handler(echoIdentity()).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestAuthMiddleware_Handler_ValidToken(t *testing.T) {
	mw := NewAuthMiddleware(resolver, logging.NewDiscard("test"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.Header.Set("Authorization", "Token admin")
	rr := httptest.NewRecorder()
	mw.Handler(echoIdentity()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Body.String(); got != "root|root|admin" {
		t.Errorf("body = %q", got)
	}
}

func TestAuthMiddleware_Optional(t *testing.T) {
	mw := NewAuthMiddleware(resolver, logging.NewDiscard("test"), nil)
	h := mw.Optional(echoIdentity())

	tests := []struct {
		header string
		want   string
	}{
		{"", "anonymous"},
		{"Bearer nope", "anonymous"},
		{"Bearer good", "u1|u1|"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/profiles/1", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK || rr.Body.String() != tt.want {
			t.Errorf("%q: got %d %q, want 200 %q", tt.header, rr.Code, rr.Body.String(), tt.want)
		}
	}
}

func TestAuthMiddleware_PreservesTraceID(t *testing.T) {
	mw := NewAuthMiddleware(resolver, logging.NewDiscard("test"), nil)
	tracing := NewTracingMiddleware(logging.NewDiscard("test"))

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set(TraceHeader, "trace-123")
	rr := httptest.NewRecorder()
	tracing.Handler(mw.Handler(inner)).ServeHTTP(rr, req)

	if seen != "trace-123" {
		t.Errorf("trace id = %q, want trace-123", seen)
	}
	if got := rr.Header().Get(TraceHeader); got != "trace-123" {
		t.Errorf("response trace header = %q", got)
	}
}
