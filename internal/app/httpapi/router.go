package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/marina/internal/errors"
	"github.com/R3E-Network/marina/internal/httputil"
	"github.com/R3E-Network/marina/internal/middleware"
)

// Router mounts the action table under the base path next to the health,
// info and metrics endpoints. CORS and tracing wrap every request, matched or
// not.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, req, errors.NotFound("Not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, req, errors.New(errors.CodeBadRequest, http.StatusMethodNotAllowed, "Method not allowed"))
	})
	if h.app.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(h.service, h.app.Metrics))
	}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/info", h.info).Methods(http.MethodGet)
	if h.app.Metrics != nil {
		r.Handle("/metrics", h.app.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r
	if h.base != "" {
		api = r.PathPrefix(h.base).Subrouter()
	}
	for _, action := range h.Actions() {
		api.Handle(action.Path, h.chain(action)).Methods(action.Method).Name(action.Name)
	}

	var handler http.Handler = r
	handler = middleware.NewTracingMiddleware(h.log.Named("http")).Handler(handler)
	handler = middleware.NewCORSMiddleware(h.origins).Handler(handler)
	return handler
}

// chain wraps an action handler with authentication and then rate limiting,
// so authenticated callers are throttled by user id.
func (h *Handler) chain(action Action) http.Handler {
	var handler http.Handler = action.Handler
	if h.limiter != nil {
		handler = h.limiter.Handler(handler)
	}
	switch action.Auth {
	case AuthRequired:
		handler = h.auth.Handler(handler)
	case AuthOptional:
		handler = h.auth.Optional(handler)
	}
	return handler
}
