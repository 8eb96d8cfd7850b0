// Package httpapi exposes the users and boats services over REST. Every
// endpoint is declared once as an Action; the router mounts the table and the
// docs generator describes it.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/R3E-Network/marina/internal/app/domain/boat"
	"github.com/R3E-Network/marina/internal/app/domain/user"
	"github.com/R3E-Network/marina/internal/app/events"
	"github.com/R3E-Network/marina/internal/app/services/boats"
	"github.com/R3E-Network/marina/internal/app/services/users"
)

// AuthMode says how an action treats the Authorization header.
type AuthMode int

const (
	// AuthNone ignores credentials.
	AuthNone AuthMode = iota
	// AuthOptional attaches the caller when a valid token is sent.
	AuthOptional
	// AuthRequired rejects requests without a valid token.
	AuthRequired
)

func (m AuthMode) String() string {
	switch m {
	case AuthOptional:
		return "optional"
	case AuthRequired:
		return "required"
	default:
		return "none"
	}
}

// Docs tags.
const (
	TagUsers  = "microservice user"
	TagBoats  = "microservice boat"
	TagSystem = "system"
)

// Action is one named REST endpoint.
type Action struct {
	Name    string
	Method  string
	Path    string // relative to the base path, gorilla/mux template syntax
	Auth    AuthMode
	Admin   bool
	Tag     string
	Summary string

	// Request and Response are zero values of the body types, used for docs.
	// A nil Response documents an empty body.
	Request  interface{}
	Response interface{}
	Status   int
	Query    []QueryParam
	Handler  http.HandlerFunc
}

// QueryParam documents a query string parameter.
type QueryParam struct {
	Name        string
	Type        string
	Description string
}

// PathParams returns the {name} segments of the action path.
func (a Action) PathParams() []string {
	var params []string
	for _, seg := range strings.Split(a.Path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
			if i := strings.IndexByte(name, ':'); i >= 0 {
				name = name[:i]
			}
			params = append(params, name)
		}
	}
	return params
}

// Request and response envelopes.

type createUserRequest struct {
	User *users.CreateInput `json:"user" validate:"required"`
}

type loginRequest struct {
	User *users.LoginInput `json:"user" validate:"required"`
}

type updateUserRequest struct {
	User *users.UpdateInput `json:"user" validate:"required"`
}

type userResponse struct {
	User user.Public `json:"user"`
}

type profileResponse struct {
	Profile user.Profile `json:"profile"`
}

type boatRequest struct {
	Boat *boats.Input `json:"boat" validate:"required"`
}

type removedResponse struct {
	Removed int64 `json:"removed"`
}

type eventsResponse struct {
	Events []events.EntityChanged `json:"events"`
}

// Actions returns the endpoint table in mount order. More specific paths come
// before their {id} siblings.
func (h *Handler) Actions() []Action {
	return []Action{
		{
			Name:     "users.create",
			Method:   http.MethodPost,
			Path:     "/users",
			Auth:     AuthNone,
			Tag:      TagUsers,
			Summary:  "Register a new user",
			Request:  createUserRequest{},
			Response: userResponse{},
			Status:   http.StatusCreated,
			Handler:  h.createUser,
		},
		{
			Name:     "users.login",
			Method:   http.MethodPost,
			Path:     "/users/login",
			Auth:     AuthOptional,
			Tag:      TagUsers,
			Summary:  "Log in with e-mail and password",
			Request:  loginRequest{},
			Response: userResponse{},
			Status:   http.StatusOK,
			Handler:  h.login,
		},
		{
			Name:     "users.me",
			Method:   http.MethodGet,
			Path:     "/user",
			Auth:     AuthRequired,
			Tag:      TagUsers,
			Summary:  "Get the current user",
			Response: userResponse{},
			Status:   http.StatusOK,
			Handler:  h.me,
		},
		{
			Name:     "users.updateMyself",
			Method:   http.MethodPut,
			Path:     "/user",
			Auth:     AuthRequired,
			Tag:      TagUsers,
			Summary:  "Update the current user",
			Request:  updateUserRequest{},
			Response: userResponse{},
			Status:   http.StatusOK,
			Handler:  h.updateMyself,
		},
		{
			Name:     "users.profile",
			Method:   http.MethodGet,
			Path:     "/profiles/{id}",
			Auth:     AuthOptional,
			Tag:      TagUsers,
			Summary:  "Get a user's public profile",
			Response: profileResponse{},
			Status:   http.StatusOK,
			Handler:  h.profile,
		},
		{
			Name:     "boats.create",
			Method:   http.MethodPost,
			Path:     "/boats",
			Auth:     AuthRequired,
			Tag:      TagBoats,
			Summary:  "Create a boat owned by the caller",
			Request:  boatRequest{},
			Response: boat.Boat{},
			Status:   http.StatusCreated,
			Handler:  h.createBoat,
		},
		{
			Name:     "boats.list",
			Method:   http.MethodGet,
			Path:     "/boats",
			Auth:     AuthRequired,
			Admin:    true,
			Tag:      TagBoats,
			Summary:  "List all boats",
			Response: []boat.Boat{},
			Status:   http.StatusOK,
			Handler:  h.listBoats,
		},
		{
			Name:     "boats.userBoats",
			Method:   http.MethodGet,
			Path:     "/boats/mine",
			Auth:     AuthRequired,
			Tag:      TagBoats,
			Summary:  "List the caller's boats",
			Response: []boat.Boat{},
			Status:   http.StatusOK,
			Handler:  h.userBoats,
		},
		{
			Name:     "boats.boatsOfUser",
			Method:   http.MethodGet,
			Path:     "/boats/user/{id}",
			Auth:     AuthRequired,
			Admin:    true,
			Tag:      TagBoats,
			Summary:  "List the boats of a user",
			Response: []boat.Boat{},
			Status:   http.StatusOK,
			Handler:  h.boatsOfUser,
		},
		{
			Name:     "boats.removeUserBoats",
			Method:   http.MethodDelete,
			Path:     "/boats/user/{id}",
			Auth:     AuthRequired,
			Admin:    true,
			Tag:      TagBoats,
			Summary:  "Remove every boat of a user",
			Response: removedResponse{},
			Status:   http.StatusOK,
			Handler:  h.removeUserBoats,
		},
		{
			Name:     "boats.toggleTrailer",
			Method:   http.MethodPut,
			Path:     "/boats/toggleTrailer/{id}",
			Auth:     AuthRequired,
			Tag:      TagBoats,
			Summary:  "Toggle the trailer flag of a boat",
			Response: boat.Boat{},
			Status:   http.StatusOK,
			Handler:  h.toggleTrailer,
		},
		{
			Name:     "boats.get",
			Method:   http.MethodGet,
			Path:     "/boats/{id}",
			Auth:     AuthRequired,
			Tag:      TagBoats,
			Summary:  "Get a boat",
			Response: boat.Boat{},
			Status:   http.StatusOK,
			Handler:  h.getBoat,
		},
		{
			Name:     "boats.update",
			Method:   http.MethodPut,
			Path:     "/boats/{id}",
			Auth:     AuthRequired,
			Tag:      TagBoats,
			Summary:  "Update a boat",
			Request:  boatRequest{},
			Response: boat.Boat{},
			Status:   http.StatusOK,
			Handler:  h.updateBoat,
		},
		{
			Name:    "boats.removeMyBoat",
			Method:  http.MethodDelete,
			Path:    "/boats/{id}",
			Auth:    AuthRequired,
			Tag:     TagBoats,
			Summary: "Remove a boat",
			Status:  http.StatusNoContent,
			Handler: h.removeMyBoat,
		},
		{
			Name:     "admin.events",
			Method:   http.MethodGet,
			Path:     "/admin/events",
			Auth:     AuthRequired,
			Admin:    true,
			Tag:      TagSystem,
			Summary:  "List recent entity changes",
			Response: eventsResponse{},
			Status:   http.StatusOK,
			Query:    []QueryParam{{Name: "limit", Type: "integer", Description: "maximum number of events (default 50)"}},
			Handler:  h.recentEvents,
		},
	}
}
