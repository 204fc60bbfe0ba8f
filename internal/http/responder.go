package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/gencare-scheduler/internal/application"
)

const maxRequestBody = 1 << 20

var (
	errBadRequestBody      = errors.New("invalid request body")
	errMissingSessionToken = errors.New("authentication token is required")
)

// envelope is the body shape of every response.
type envelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      any               `json:"data,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type responder struct {
	logger *slog.Logger
	now    func() time.Time
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger), now: time.Now}
}

func (r responder) success(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	r.writeJSON(ctx, w, status, envelope{Success: true, Message: message, Data: data})
}

func (r responder) fail(ctx context.Context, w http.ResponseWriter, status int, message string, fieldErrors map[string]string) {
	if strings.TrimSpace(message) == "" {
		message = statusMessage(status)
	}
	r.writeJSON(ctx, w, status, envelope{Success: false, Message: message, Errors: fieldErrors})
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body envelope) {
	if w == nil {
		return
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	body.Timestamp = now().UTC().Format(time.RFC3339Nano)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleServiceError maps the application error taxonomy onto HTTP statuses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.fail(ctx, w, http.StatusInternalServerError, "", nil)
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		r.fail(ctx, w, http.StatusBadRequest, "validation failed", vErr.FieldErrors)
		return
	}

	switch {
	case errors.Is(err, application.ErrNotFound):
		r.fail(ctx, w, http.StatusNotFound, application.Message(err), nil)
	case errors.Is(err, application.ErrConflict), errors.Is(err, application.ErrAlreadyExists):
		message := application.Message(err)
		if message == "" {
			message = "request conflicts with existing data"
		}
		r.fail(ctx, w, http.StatusBadRequest, message, nil)
	case errors.Is(err, application.ErrUnauthorized):
		r.fail(ctx, w, http.StatusForbidden, application.Message(err), nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		r.fail(ctx, w, http.StatusUnauthorized, "invalid email or password", nil)
	case errors.Is(err, application.ErrAccountDisabled):
		r.fail(ctx, w, http.StatusUnauthorized, "account is disabled", nil)
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.fail(ctx, w, http.StatusUnauthorized, "session is no longer valid, please sign in again", nil)
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.fail(ctx, w, http.StatusInternalServerError, "", nil)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return defaultLogger(r.logger)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "you do not have permission to perform this action"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusMethodNotAllowed:
		return "method not allowed"
	case http.StatusTooManyRequests:
		return "too many requests, please retry later"
	default:
		return "internal server error"
	}
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
