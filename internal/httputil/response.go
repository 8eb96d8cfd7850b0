// Package httputil holds JSON request and response helpers shared by the
// gateway handlers and middleware, plus a small API client.
package httputil

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/R3E-Network/marina/internal/errors"
	"github.com/R3E-Network/marina/internal/logging"
)

// MaxBodyBytes caps decoded request bodies.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    int         `json:"code"`
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// WriteJSON writes v with status. A nil v writes only the status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes the error envelope.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, data interface{}) {
	resp := ErrorResponse{
		Code:    status,
		Type:    code,
		Message: message,
		Data:    data,
	}
	if r != nil {
		resp.TraceID = logging.GetTraceID(r.Context())
	}
	WriteJSON(w, status, resp)
}

// WriteError writes err as an error envelope. Errors that are not service
// errors become 500 Internal Server Error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("Internal Server Error", err)
	}

	var data interface{}
	switch {
	case len(se.Fields) > 0:
		data = se.Fields
	case len(se.Details) > 0:
		data = se.Details
	}
	WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, data)
}

// Unauthorized writes a 401 envelope.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, errors.Unauthorized(message))
}

// DecodeJSON decodes the request body into dst. Syntax errors are 400,
// type mismatches are 422 with the offending field named.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.BadRequest("Request body is required")
	}
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return errors.BadRequest("Request body must contain a single JSON object")
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case stderrors.Is(err, io.EOF):
		return errors.BadRequest("Request body is required")
	case stderrors.As(err, &syntaxErr), stderrors.Is(err, io.ErrUnexpectedEOF):
		return errors.BadRequest("Malformed JSON body")
	case stderrors.As(err, &typeErr):
		field := typeErr.Field
		if idx := strings.LastIndex(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		return errors.Validation(errors.FieldError{
			Type:    typeErr.Value,
			Field:   field,
			Message: fmt.Sprintf("The '%s' field must be a %s.", field, typeName(typeErr.Type.Kind().String())),
		})
	case stderrors.As(err, &maxErr):
		return errors.New(errors.CodeBadRequest, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		return errors.BadRequest(err.Error())
	}
}

func typeName(kind string) string {
	switch kind {
	case "float64", "float32", "int", "int64", "int32", "uint", "uint64":
		return "number"
	case "bool":
		return "boolean"
	case "map", "struct":
		return "object"
	case "slice", "array":
		return "array"
	default:
		return kind
	}
}
