// Package logger builds the process-wide slog.Logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

const requestIDKey = "request_id"

// sensitiveKeys are attribute names whose values never reach the output.
var sensitiveKeys = []string{"api_key", "apikey", "secret", "token", "x-api-key"}

// Options defines parameters for logger creation.
type Options struct {
	Level  string // debug, info, warn or error (default: info)
	Format string // json (default) or text
	File   string // optional rotating log file, always JSON
	App    string
	// Output replaces stdout, mainly for tests.
	Output io.Writer
}

// New creates a configured slog.Logger and a function that releases the log file, if any.
func New(o Options) (*slog.Logger, func() error) {
	level := toLevel(o.Level)
	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	var console slog.Handler
	if strings.EqualFold(o.Format, "text") {
		console = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			AddSource:  level == slog.LevelDebug,
		})
	} else {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: level == slog.LevelDebug,
			Level:     level,
		})
	}

	handler := console
	closer := func() error { return nil }
	if o.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		closer = fileWriter.Close
		handler = NewMultiHandler(console, slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: level}))
	}

	l := slog.New(NewContextHandler(NewRedactingHandler(handler, sensitiveKeys)))
	if o.App != "" {
		l = l.With(slog.String("app", o.App))
	}
	return l, closer
}

// toLevel converts a string representation of a log level to slog.Level.
func toLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextHandler is a wrapper around slog.Handler that adds the request id from the context.
// Loggers that already carry a request_id attribute are left alone.
type ContextHandler struct {
	slog.Handler
	hasReqID bool
}

// NewContextHandler creates a new ContextHandler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{
		Handler: handler,
	}
}

// Handle processes a log record and adds context information.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.hasReqID {
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			r.AddAttrs(slog.String(requestIDKey, reqID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes added.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hasReqID := h.hasReqID
	for _, a := range attrs {
		if a.Key == requestIDKey {
			hasReqID = true
		}
	}
	return &ContextHandler{
		Handler:  h.Handler.WithAttrs(attrs),
		hasReqID: hasReqID,
	}
}

// WithGroup returns a new ContextHandler with the given group added.
func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{
		Handler:  h.Handler.WithGroup(group),
		hasReqID: h.hasReqID,
	}
}

// RedactingHandler masks sensitive log attributes.
type RedactingHandler struct {
	inner slog.Handler
	keys  map[string]struct{}
}

// NewRedactingHandler wraps handler with redaction of sensitive fields.
func NewRedactingHandler(inner slog.Handler, sensitive []string) *RedactingHandler {
	m := make(map[string]struct{}, len(sensitive))
	for _, k := range sensitive {
		m[strings.ToLower(k)] = struct{}{}
	}
	return &RedactingHandler{inner: inner, keys: m}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	var attrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool { attrs = append(attrs, a); return true })
	nr.AddAttrs(h.sanitize(attrs...)...)
	return h.inner.Handle(ctx, nr)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithAttrs(h.sanitize(attrs...)), keys: h.keys}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), keys: h.keys}
}

func (h *RedactingHandler) sanitize(attrs ...slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if _, ok := h.keys[strings.ToLower(a.Key)]; ok {
			out = append(out, slog.String(a.Key, "[REDACTED]"))
			continue
		}
		if a.Value.Kind() == slog.KindGroup {
			out = append(out, slog.Attr{Key: a.Key, Value: slog.GroupValue(h.sanitize(a.Value.Group()...)...)})
			continue
		}
		out = append(out, a)
	}
	return out
}

// MultiHandler fans records out to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes to multiple handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled implements slog.Handler.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

// WithGroup implements slog.Handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
