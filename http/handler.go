package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sagarc03/shelf"
)

// DefaultMaxBodyBytes caps create and update bodies when no limit is set.
const DefaultMaxBodyBytes int64 = 1 << 20

type Service interface {
	List(ctx context.Context, subject shelf.Subject) ([]shelf.Item, error)
	Get(ctx context.Context, subject shelf.Subject, id string) (shelf.Item, error)
	Create(ctx context.Context, subject shelf.Subject, req shelf.CreateItem) (shelf.Item, error)
	Update(ctx context.Context, subject shelf.Subject, id string, req shelf.UpdateItem) (shelf.Item, error)
	Delete(ctx context.Context, subject shelf.Subject, id string) (shelf.Item, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"gte=0"`
}

type HandlerConfig struct {
	// Verifier authenticates item routes. Nil disables authentication and
	// every request acts as shelf.Anonymous.
	Verifier     shelf.TokenVerifier
	CORS         CORSConfig
	MaxBodyBytes int64
	// Metrics is optional. When set, requests are counted and GET /metrics
	// is exposed.
	Metrics *Metrics
	Clock   func() time.Time
}

// Handler provides HTTP handlers for item operations.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Handler{
		config:  cfg,
		service: service,
	}
}

// Router returns an http.Handler serving the health check and the item API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	if h.config.Metrics != nil {
		r.Use(h.config.Metrics.Middleware)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", h.handleHealth)
	if h.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.config.Metrics.Handler())
	}

	r.Route("/items", func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.Verifier))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, shelf.HealthStatus{
		Status:    "healthy",
		Timestamp: h.config.Clock().UTC().Truncate(time.Second),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), subjectOf(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), subjectOf(r), chi.URLParam(r, "id"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req shelf.CreateItem
	if err := h.decodeBody(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	item, err := h.service.Create(r.Context(), subjectOf(r), req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/items/"+item.ID)
	_ = WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req shelf.UpdateItem
	if err := h.decodeBody(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	item, err := h.service.Update(r.Context(), subjectOf(r), chi.URLParam(r, "id"), req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Delete(r.Context(), subjectOf(r), chi.URLParam(r, "id"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, shelf.DeleteResult{
		Message: "Item deleted successfully",
		ID:      item.ID,
	})
}

// decodeBody reads a single JSON object from the size-limited request body.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	dec := json.NewDecoder(body)

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	_, err := dec.Token()
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return decodeError(err)
	default:
		return &shelf.ValidationError{Msg: "request body must contain a single JSON object"}
	}
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		tooLarge  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: %w", ErrBodyTooLarge, err)
	case errors.Is(err, io.EOF):
		return &shelf.ValidationError{Msg: "request body is required"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &shelf.ValidationError{Msg: "request body is not valid JSON"}
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return &shelf.ValidationError{Msg: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind())}
		}
		return &shelf.ValidationError{Msg: "request body must be a JSON object"}
	default:
		return &shelf.ValidationError{Msg: "invalid request body"}
	}
}

func subjectOf(r *http.Request) shelf.Subject {
	if s, ok := shelf.SubjectFromContext(r.Context()); ok {
		return s
	}
	return shelf.Anonymous
}
