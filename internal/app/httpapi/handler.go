package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/marina/internal/app"
	"github.com/R3E-Network/marina/internal/app/auth"
	"github.com/R3E-Network/marina/internal/app/validation"
	"github.com/R3E-Network/marina/internal/errors"
	"github.com/R3E-Network/marina/internal/httputil"
	"github.com/R3E-Network/marina/internal/logging"
	"github.com/R3E-Network/marina/internal/middleware"
)

// Event listing bounds.
const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// Config wires a Handler.
type Config struct {
	App            *app.Application
	BasePath       string
	Service        string
	Version        string
	Logger         *logging.Logger
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	// Ping reports backing store health for /health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// Handler serves the REST API.
type Handler struct {
	app     *app.Application
	log     *logging.Logger
	auth    *middleware.AuthMiddleware
	limiter *middleware.RateLimiter
	origins []string
	base    string
	service string
	version string
	ping    func(ctx context.Context) error
	started time.Time
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefault("httpapi")
	}
	if cfg.Service == "" {
		cfg.Service = "marina"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Handler{
		app:     cfg.App,
		log:     cfg.Logger,
		auth:    middleware.NewAuthMiddleware(cfg.App.Users, cfg.Logger.Named("auth"), cfg.App.Metrics),
		limiter: cfg.RateLimiter,
		origins: cfg.AllowedOrigins,
		base:    cfg.BasePath,
		service: cfg.Service,
		version: cfg.Version,
		ping:    cfg.Ping,
		started: time.Now(),
	}
}

// BasePath returns the prefix every action path is mounted under.
func (h *Handler) BasePath() string { return h.base }

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := errors.HTTPStatus(err); status >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).Error("request failed")
	}
	httputil.WriteError(w, r, err)
}

func identity(r *http.Request) *auth.Identity {
	return auth.IdentityFromContext(r.Context())
}

// users

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.User == nil {
		h.fail(w, r, validation.Missing("user"))
		return
	}
	pub, err := h.app.Users.Create(r.Context(), *req.User)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, userResponse{User: pub})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.User == nil {
		h.fail(w, r, validation.Missing("user"))
		return
	}
	pub, err := h.app.Users.Login(r.Context(), *req.User, identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userResponse{User: pub})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	pub, err := h.app.Users.Me(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userResponse{User: pub})
}

func (h *Handler) updateMyself(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.User == nil {
		h.fail(w, r, validation.Missing("user"))
		return
	}
	pub, err := h.app.Users.UpdateMyself(r.Context(), identity(r), *req.User)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userResponse{User: pub})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.app.Users.Profile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

// boats

func (h *Handler) decodeBoat(w http.ResponseWriter, r *http.Request) (*boatRequest, bool) {
	var req boatRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if req.Boat == nil {
		h.fail(w, r, validation.Missing("boat"))
		return nil, false
	}
	return &req, true
}

func (h *Handler) createBoat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBoat(w, r)
	if !ok {
		return
	}
	b, err := h.app.Boats.Create(r.Context(), identity(r), *req.Boat)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) getBoat(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Boats.Get(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) updateBoat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBoat(w, r)
	if !ok {
		return
	}
	b, err := h.app.Boats.Update(r.Context(), identity(r), mux.Vars(r)["id"], *req.Boat)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) listBoats(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Boats.List(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) userBoats(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Boats.UserBoats(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) removeMyBoat(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Boats.RemoveMyBoat(r.Context(), identity(r), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) boatsOfUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Boats.BoatsOfUser(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) removeUserBoats(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Boats.RemoveUserBoats(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, removedResponse{Removed: n})
}

func (h *Handler) toggleTrailer(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Boats.ToggleTrailer(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

// admin

func (h *Handler) recentEvents(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Users.CheckAdmin(identity(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, errors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	httputil.WriteJSON(w, http.StatusOK, eventsResponse{Events: h.app.Events.Recent(limit)})
}
