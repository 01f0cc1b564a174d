package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fetchkids/api/internal/platform/requestctx"
)

// Error is the JSON error envelope returned by every endpoint:
// {"success": false, "error": <code>, "message": <human text>}.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// NewError builds an error envelope. A zero status defaults to 500.
func NewError(code, message string, status int) Error {
	e := Error{Code: clip(code, 80), Message: clip(message, 512), Status: status}
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	return e
}

// Error implements the error interface so handlers can return it directly.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails attaches additional JSON-serialisable metadata.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) > 0 {
		e.Details = maps.Clone(details)
	}
	return e
}

// BadRequest builds a 400 error envelope.
func BadRequest(code, message string) Error {
	return NewError(code, message, http.StatusBadRequest)
}

// NotFound builds a 404 error envelope.
func NotFound(code, message string) Error {
	return NewError(code, message, http.StatusNotFound)
}

// Internal builds a 500 error envelope.
func Internal(message string) Error {
	return NewError("internal_server_error", message, http.StatusInternalServerError)
}

// WriteError renders err as the failure envelope, annotating it with the
// request and trace identifiers carried on ctx when present.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	payload := map[string]any{
		"success": false,
		"error":   err.Code,
		"message": err.Message,
	}
	if id := clip(middleware.GetReqID(ctx), 80); id != "" {
		payload["request_id"] = id
	}
	if id := clip(requestctx.TraceID(ctx), 64); id != "" {
		payload["trace_id"] = id
	}
	maps.Copy(payload, err.Details)

	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, payload)
}

// WriteSuccess merges payload with {"success": true} and renders it.
func WriteSuccess(_ context.Context, w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	maps.Copy(body, payload)
	body["success"] = true
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, body)
}

// DecodeJSON reads the request body into dst, translating decode failures
// into a client error envelope.
func DecodeJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return BadRequest("invalid_body", "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("invalid_body", "request body is required")
		}
		return BadRequest("invalid_body", "request body is not valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// clip flattens newlines and bounds the value so envelope fields stay
// log-safe and single line.
func clip(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
