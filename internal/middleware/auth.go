// Package middleware provides HTTP middleware for the gateway
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/metrics"
	"github.com/R3E-Network/marina/internal/errors"
	internalhttputil "github.com/R3E-Network/marina/internal/httputil"
	"github.com/R3E-Network/marina/internal/logging"
)

// TokenResolver turns a bearer token into the caller it belongs to.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthMiddleware authenticates requests with bearer tokens
type AuthMiddleware struct {
	resolver TokenResolver
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewAuthMiddleware creates a new authentication middleware. m may be nil.
func NewAuthMiddleware(resolver TokenResolver, logger *logging.Logger, m *metrics.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = logging.NewDefault("auth")
	}
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
		metrics:  m,
	}
}

// Handler rejects requests without a valid token with 401.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.respondError(w, r, "missing_token", errors.Unauthorized(""))
			return
		}

		ident, err := m.resolver.ResolveToken(r.Context(), token)
		if err != nil {
			m.respondError(w, r, "invalid_token", err)
			return
		}

		ctx := withIdentity(r.Context(), ident)
		m.logger.WithContext(ctx).Debug("Authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the caller when a valid token is sent and otherwise
// continues anonymously.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := m.resolver.ResolveToken(r.Context(), token)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Debug("Ignoring invalid optional token")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}

// BearerToken extracts the token from an Authorization header value. Both
// the "Bearer" and "Token" schemes are accepted.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	switch parts[0] {
	case "Bearer", "Token":
	default:
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func withIdentity(ctx context.Context, ident *auth.Identity) context.Context {
	recordCaller(ctx, ident)
	ctx = auth.WithIdentity(ctx, ident)
	ctx = logging.WithUserID(ctx, ident.UserID)
	if ident.Role != "" {
		ctx = logging.WithRole(ctx, ident.Role)
	}
	return ctx
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, reason string, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}
	if m.metrics != nil && serviceErr.HTTPStatus == http.StatusUnauthorized {
		m.metrics.RecordAuthFailure(reason)
	}

	internalhttputil.WriteError(w, r, serviceErr)

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("Authentication failed")
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// GetUserRole extracts user role from context
func GetUserRole(ctx context.Context) string {
	return logging.GetRole(ctx)
}
