// Package httpapi serves the document store over JSON and HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/solatis/docupdate/internal/codec"
	"github.com/solatis/docupdate/internal/core/store"
	"github.com/solatis/docupdate/internal/types"
	"github.com/solatis/docupdate/internal/update"
)

// Authenticator resolves an API key to its tenant.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (types.TenantID, error)
}

// Handler provides the HTTP handlers of the document API.
type Handler struct {
	store   *store.Store
	engine  *update.Engine
	auth    Authenticator
	logger  *slog.Logger
	maxBody int64
	timeout time.Duration
}

// Options tunes request handling.
type Options struct {
	// MaxBodyBytes caps request bodies; larger bodies get 413.
	MaxBodyBytes int64
	// RequestTimeout bounds the work done for one request.
	RequestTimeout time.Duration
}

// NewHandler creates a handler serving s, authenticated by auth.
func NewHandler(s *store.Store, auth Authenticator, logger *slog.Logger, opts Options) (*Handler, error) {
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if auth == nil {
		return nil, fmt.Errorf("auth cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = types.MaxDocumentSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Handler{
		store:   s,
		engine:  s.Engine(),
		auth:    auth,
		logger:  logger,
		maxBody: opts.MaxBodyBytes,
		timeout: opts.RequestTimeout,
	}, nil
}

// Router returns a mux.Router with every route and middleware installed.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.requestLogger)
	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(h.authenticate, h.withTimeout)
	h.RegisterRoutes(api)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
	return router
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// decodeBody reads a JSON request body into document values.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %w", types.ErrInvalidOperation, err)
	}
	return codec.FromWire(body).(map[string]any), nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), action+" failed", "error", err)
	} else {
		h.logger.DebugContext(r.Context(), action+" rejected", "status", code, "error", err)
	}
	WriteJSONError(w, code, err.Error())
}

// DocumentResponse is the JSON shape of a stored document.
type DocumentResponse struct {
	ID        types.DocumentID `json:"id"`
	Version   int64            `json:"version"`
	Document  any              `json:"document"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, statusCode int, doc *store.Document) {
	body, err := codec.ToWire(doc.Body)
	if err != nil {
		h.fail(w, r, "encode document", err)
		return
	}
	writeJSON(w, statusCode, DocumentResponse{
		ID:        doc.ID,
		Version:   doc.Version,
		Document:  body,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	})
}
