// Package gateway is the HTTP front end: it accepts CSV uploads, turns
// questions into generated SQL via the configured generator, validates
// and executes the SQL on an embedded engine, and records every
// interaction as history.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tabula-labs/tabula/internal/auth"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/errors"
	"github.com/tabula-labs/tabula/internal/llm"
	"github.com/tabula-labs/tabula/internal/observability"
	"github.com/tabula-labs/tabula/internal/session"
	"github.com/tabula-labs/tabula/internal/sqlguard"
	"github.com/tabula-labs/tabula/internal/storage"
	"github.com/tabula-labs/tabula/pkg/api"
	"github.com/tabula-labs/tabula/pkg/models"
)

// Config configures the gateway.
type Config struct {
	// Version is reported on /health and /api/v1/status.
	Version string

	// ProductionMode rejects in-memory repositories at construction.
	ProductionMode bool

	// SuggestOnUpload asks the generator for starter questions after a
	// CSV upload.
	SuggestOnUpload bool

	// SessionTTL bounds idle session lifetime. Default: 1h.
	SessionTTL time.Duration

	// MaxUploadBytes bounds the accepted CSV size. Default: 32 MiB.
	MaxUploadBytes int64
}

// Gateway wires the ask pipeline behind an HTTP API plus a minimal web UI.
type Gateway struct {
	authenticator auth.Authenticator // nil = open access
	repo          storage.HistoryRepository
	generator     llm.Generator
	registry      *engine.Registry
	router        *engine.Router
	validator     *sqlguard.Validator
	sessions      *session.Manager
	logger        observability.QueryLogger
	config        Config
	mux           *http.ServeMux
	startedAt     time.Time
}

// NewGateway creates a gateway. The repository, generator, and a
// non-empty engine registry are mandatory; construction fails loudly
// rather than limping along without them.
func NewGateway(
	authenticator auth.Authenticator,
	repo storage.HistoryRepository,
	generator llm.Generator,
	registry *engine.Registry,
	router *engine.Router,
	logger observability.QueryLogger,
	config Config,
) (*Gateway, error) {
	if repo == nil {
		return nil, fmt.Errorf("gateway: history repository is required")
	}
	if config.ProductionMode {
		if _, isMemory := repo.(*storage.MemoryRepository); isMemory {
			return nil, fmt.Errorf("gateway: in-memory repository not allowed in production mode")
		}
	}
	if generator == nil {
		return nil, fmt.Errorf("gateway: generator is required")
	}
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("gateway: at least one execution engine is required")
	}
	if router == nil {
		router = engine.DefaultRouter()
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = time.Hour
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}

	g := &Gateway{
		authenticator: authenticator,
		repo:          repo,
		generator:     generator,
		registry:      registry,
		router:        router,
		validator:     sqlguard.NewValidator(),
		sessions:      session.NewManager(config.SessionTTL),
		logger:        logger,
		config:        config,
		startedAt:     time.Now(),
	}
	g.routes()
	return g, nil
}

func (g *Gateway) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", g.handleIndex)
	mux.HandleFunc("GET "+api.EndpointHealth, g.handleHealth)
	mux.HandleFunc("GET "+api.EndpointReady, g.handleReadyz)
	mux.HandleFunc("POST "+api.EndpointUpload, g.requireAuth(g.handleUpload))
	mux.HandleFunc("POST "+api.EndpointAsk, g.requireAuth(g.handleAsk))
	mux.HandleFunc("GET "+api.EndpointSuggest, g.requireAuth(g.handleSuggest))
	mux.HandleFunc("GET "+api.EndpointHistory, g.requireAuth(g.handleHistory))
	mux.HandleFunc("GET "+api.EndpointExport, g.requireAuth(g.handleExport))
	mux.HandleFunc("GET "+api.EndpointStatus, g.requireAuth(g.handleStatus))
	mux.HandleFunc("GET "+api.EndpointAudit, g.requireAuth(g.handleAuditSummary))
	g.mux = mux
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// Close releases all sessions and their engines.
func (g *Gateway) Close() {
	g.sessions.Close()
}

// PruneSessions removes idle sessions; called periodically by the server
// entrypoint.
func (g *Gateway) PruneSessions() int {
	return g.sessions.Prune()
}

// requireAuth wraps an API handler with bearer-token validation when an
// authenticator is configured.
func (g *Gateway) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.authenticator == nil {
			next(w, r)
			return
		}

		header := r.Header.Get(api.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = "" // no Bearer prefix
		}

		user, err := g.authenticator.ValidateToken(r.Context(), token)
		if err != nil {
			g.writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	}
}

// sessionFor resolves the request's session from the cookie, creating
// one (and setting the cookie) when absent.
func (g *Gateway) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if cookie, err := r.Cookie(api.SessionCookie); err == nil {
		id = cookie.Value
	}
	s := g.sessions.GetOrCreate(id)
	if s.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     api.SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(api.HeaderContentType, api.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders the error envelope, preserving reason/suggestion
// from TabulaError values.
func (g *Gateway) writeError(w http.ResponseWriter, status int, err error) {
	resp := models.ErrorResponse{Error: err.Error()}

	var te *errors.TabulaError
	switch e := err.(type) {
	case *errors.ErrNoDataset:
		te = &e.TabulaError
	case *errors.ErrInvalidDataset:
		te = &e.TabulaError
	case *errors.ErrQueryRejected:
		te = &e.TabulaError
	case *errors.ErrUnknownTable:
		te = &e.TabulaError
	case *errors.ErrEngineUnavailable:
		te = &e.TabulaError
	case *errors.ErrModelUnavailable:
		te = &e.TabulaError
	case *errors.ErrBadModelOutput:
		te = &e.TabulaError
	case *errors.ErrAuthFailed:
		te = &e.TabulaError
	case *errors.ErrNothingToExport:
		te = &e.TabulaError
	}
	if te != nil {
		resp.Error = te.Message
		resp.Reason = te.Reason
		resp.Suggestion = te.Suggestion
	}

	g.writeJSON(w, status, resp)
}

// statusForError maps pipeline errors to HTTP status codes.
func statusForError(err error) int {
	switch err.(type) {
	case *errors.ErrNoDataset, *errors.ErrInvalidDataset, *errors.ErrQueryRejected,
		*errors.ErrUnknownTable, *errors.ErrBadModelOutput:
		return http.StatusBadRequest
	case *errors.ErrAuthFailed:
		return http.StatusUnauthorized
	case *errors.ErrNothingToExport:
		return http.StatusNotFound
	case *errors.ErrEngineUnavailable, *errors.ErrModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
