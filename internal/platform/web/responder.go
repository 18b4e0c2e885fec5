package web

import (
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/go-chi/chi/v5/middleware"
)

// HandlerFunc is an HTTP handler that reports failures by returning an error
// instead of writing an error response itself.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// StageFunc is a pipeline stage. It either lets the request through, possibly
// enriched, or fails with an error that is rendered by the ErrorResponder.
type StageFunc func(r *http.Request) (*http.Request, error)

// ErrorBody is the uniform failure envelope.
type ErrorBody struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Details   []string  `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponder is the terminal stage of the pipeline: it turns any error into the failure envelope.
type ErrorResponder struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewErrorResponder creates an ErrorResponder that logs every error before rendering it.
func NewErrorResponder(logger *slog.Logger) *ErrorResponder {
	return &ErrorResponder{
		logger: logger.With("component", "error_responder"),
		now:    time.Now,
	}
}

// Respond logs err and writes the failure envelope.
func (e *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.Normalize(err)
	status := StatusFromKind(appErr.Kind)

	logger := e.logger.With("request_id", middleware.GetReqID(r.Context()))
	attrs := []any{"method", r.Method, "path", r.URL.Path, "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", attrs...)
	}

	body := ErrorBody{
		Error:     appErr.Message,
		Timestamp: e.now().UTC(),
	}
	if appErr.HasDetails() {
		body.Details = appErr.Details
	}
	RespondJSON(w, logger, status, body)
}

// Handle adapts an error-returning handler to net/http.
func (e *ErrorResponder) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			e.Respond(w, r, err)
		}
	}
}

// Stage adapts a StageFunc to chi middleware.
func (e *ErrorResponder) Stage(fn StageFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enriched, err := fn(r)
			if err != nil {
				e.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, enriched)
		})
	}
}

// StatusFromKind maps a status class to its HTTP status code.
func StatusFromKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindTooManyRequests:
		return http.StatusTooManyRequests
	case apperrors.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
