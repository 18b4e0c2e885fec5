package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	// APIKeyHeader carries the shared secret required by mutating routes.
	APIKeyHeader = "x-api-key"
	// RequestIDHeader is honoured on the way in and echoed on the way out.
	RequestIDHeader = "X-Request-Id"
)

// RequestIDInjector creates a middleware that injects request id.
// An inbound X-Request-Id is kept, otherwise a new UUID is generated. The ID is stored
// under chi's request id key so middleware.GetReqID works everywhere downstream.
func RequestIDInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StructuredLogger creates a middleware that logs HTTP requests in a structured format.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			// Get request ID from context and use it to create a structured logger
			reqID := middleware.GetReqID(r.Context())
			requestLogger := logger.With("request_id", reqID)

			defer func() {
				requestLogger.Info("Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"status", ww.Status(),
					"bytes_written", ww.BytesWritten(),
					"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent(),
				)
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// Recoverer is a middleware that recovers from panics and renders them through the ErrorResponder
// as internal errors.
func Recoverer(responder *ErrorResponder, onPanic func()) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				if onPanic != nil {
					onPanic()
				}
				err := fmt.Errorf("panic recovered: %v", rvr)
				if ww.Status() != 0 {
					// headers are gone already, all that is left is the log line
					responder.logger.Error("Panic recovered after response started",
						"panic", rvr,
						"request_id", middleware.GetReqID(r.Context()),
					)
					return
				}
				responder.Respond(ww, r, err)
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// authRejection is the body the API key gate answers with. It is not the error envelope.
type authRejection struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errAPIKeyMismatch = errors.New("api key mismatch")

// APIKeyAuth is the authentication gate. It compares the x-api-key header with apiKey and
// rejects the request itself: 401 when the header is missing, 403 when it does not match.
func APIKeyAuth(apiKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "auth")
	expected := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			reqLogger := logger.With("request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)
			if provided == "" {
				reqLogger.WarnContext(r.Context(), "Request without API key")
				RespondJSON(w, reqLogger, http.StatusUnauthorized, authRejection{
					Error:   "Authentication required",
					Message: "Please provide an API key in x-api-key header",
				})
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				reqLogger.WarnContext(r.Context(), "Request with invalid API key", "error", errAPIKeyMismatch)
				RespondJSON(w, reqLogger, http.StatusForbidden, authRejection{
					Error:   "Forbidden",
					Message: "Invalid API key",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
