// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/platform/web"
	"github.com/abgdnv/catalog/internal/product/service"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/abgdnv/catalog/internal/product/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	MsgCreated = "Product created successfully"
	MsgUpdated = "Product updated successfully"
	MsgDeleted = "Product deleted successfully"
)

// errMissingInput means a mutating handler was mounted without its validation stage.
var errMissingInput = apperrors.New("validated input missing from request context", apperrors.KindInternal)

type Handler struct {
	service   service.ProductService
	validator *validation.Validator
	responder *web.ErrorResponder
	guards    []func(http.Handler) http.Handler
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler creates a new Handler. guards run in order in front of every mutating route,
// before body validation.
func NewHandler(
	service service.ProductService,
	validator *validation.Validator,
	responder *web.ErrorResponder,
	logger *slog.Logger,
	guards ...func(http.Handler) http.Handler,
) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
		responder: responder,
		guards:    guards,
		logger:    logger.With("component", "rest"),
		now:       time.Now,
	}
}

// RegisterRoutes registers the HTTP routes for the catalog.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	// set before mounting so sub-routers inherit them
	r.NotFound(web.RouteNotFound(h.logger))
	r.MethodNotAllowed(web.RouteNotFound(h.logger))

	r.Get("/", h.Hello)
	r.Get("/healthz", h.HealthCheck)

	handle := h.responder.Handle
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", handle(h.FindAll))
		r.Get("/search", handle(h.Search))
		r.Get("/stats", handle(h.Stats))
		r.Get("/{id}", handle(h.FindByID))

		r.Group(func(r chi.Router) {
			r.Use(h.guards...)
			r.With(h.responder.Stage(h.validator.ValidateCreate)).Post("/", handle(h.Create))
			r.With(h.responder.Stage(h.validator.ValidateUpdate)).Put("/{id}", handle(h.Update))
			r.Delete("/{id}", handle(h.DeleteByID))
		})
	})
}

// Hello answers the root path.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]any{
		"message":   "Hello World!",
		"timestamp": h.now().UTC(),
	})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// FindAll returns one page of products matching the query filters.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()
	params := service.ListParams{
		Search:   query.Get("search"),
		Category: query.Get("category"),
		InStock:  query.Get("inStock"),
		Page:     web.QueryIntOrDefault(r, "page", store.DefaultPage),
		Limit:    web.QueryIntOrDefault(r, "limit", store.DefaultLimit),
	}
	mLogger.DebugContext(r.Context(), "Received request to list products", "params", params)

	page, err := h.service.FindAll(r.Context(), params)
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(page.Products), "total", page.Total)
	web.RespondData(w, mLogger, http.StatusOK, page)
	return nil
}

// Search returns every product matching the q parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	term := r.URL.Query().Get("q")
	result, err := h.service.Search(r.Context(), term)
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Search completed", "query", term, "count", result.Count)
	web.RespondData(w, mLogger, http.StatusOK, result)
	return nil
}

// Stats returns aggregate catalog statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		return err
	}
	web.RespondData(w, h.loggerWithReqID(r), http.StatusOK, stats)
	return nil
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)

	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		return err
	}
	web.RespondData(w, mLogger, http.StatusOK, found)
	return nil
}

// Create handles the creation of a new product from the validated body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	input, ok := validation.CreateInput(r.Context())
	if !ok {
		return errMissingInput
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		return err
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondMessage(w, mLogger, http.StatusCreated, MsgCreated, created)
	return nil
}

// Update applies the validated partial body to an existing product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	input, ok := validation.UpdateInput(r.Context())
	if !ok {
		return errMissingInput
	}

	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		return err
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondMessage(w, mLogger, http.StatusOK, MsgUpdated, updated)
	return nil
}

// DeleteByID deletes a product by its ID and returns the removed record.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")

	removed, err := h.service.DeleteByID(r.Context(), id)
	if err != nil {
		return err
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondMessage(w, mLogger, http.StatusOK, MsgDeleted, removed)
	return nil
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
