package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SuccessBody is the uniform success envelope.
type SuccessBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondData writes data in the success envelope.
func RespondData(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	RespondJSON(w, logger, status, SuccessBody{Success: true, Data: data})
}

// RespondMessage writes data in the success envelope together with a human-readable message.
func RespondMessage(w http.ResponseWriter, logger *slog.Logger, status int, message string, data any) {
	RespondJSON(w, logger, status, SuccessBody{Success: true, Message: message, Data: data})
}

// RouteNotFound answers unmatched paths and methods with a 404 envelope naming both.
func RouteNotFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, logger, http.StatusNotFound, map[string]any{
			"success":   false,
			"error":     "Route not found",
			"path":      r.URL.RequestURI(),
			"method":    r.Method,
			"timestamp": time.Now().UTC(),
		})
	}
}

// QueryIntOrDefault reads a positive integer query parameter from its leading digits,
// so "2.5" and "2abc" both read as 2.
// Absent, non-numeric, out of range or non-positive values silently yield def.
func QueryIntOrDefault(r *http.Request, key string, def int) int {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	sign := ""
	if strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-") {
		sign, value = value[:1], value[1:]
	}
	if end := strings.IndexFunc(value, func(c rune) bool { return c < '0' || c > '9' }); end >= 0 {
		value = value[:end]
	}
	if value == "" {
		return def
	}
	intValue, err := strconv.ParseInt(sign+value, 10, 32)
	if err != nil || intValue <= 0 {
		return def
	}
	return int(intValue)
}
