package gateway

import (
	"testing"
	"time"

	"github.com/tabula-labs/tabula/internal/auth"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/engine/sqlite"
	"github.com/tabula-labs/tabula/internal/llm"
	"github.com/tabula-labs/tabula/internal/observability"
	"github.com/tabula-labs/tabula/internal/storage"
)

// TestToken authenticates requests against gateways built by
// NewTestGateway.
const TestToken = "test-token"

// NewTestGateway builds a gateway for tests: baseline generator,
// in-memory history, sqlite-only engine registry, no-op logging, and a
// static authenticator knowing TestToken.
func NewTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewTestGatewayWith(t, storage.NewMemoryRepository(), observability.NewNoopLogger())
}

// NewTestGatewayWith builds a test gateway over the given repository and
// logger, so tests can share a store across gateway instances or inspect
// emitted log entries.
func NewTestGatewayWith(t *testing.T, repo storage.HistoryRepository, logger observability.QueryLogger) *Gateway {
	t.Helper()

	registry := engine.NewRegistry()
	registry.Register("sqlite", sqlite.Factory)

	router := engine.NewRouter()
	router.RegisterEngine(&engine.Descriptor{Name: "sqlite", Available: true, Priority: 1})

	authenticator := auth.NewStaticTokenAuthenticator()
	authenticator.RegisterToken(TestToken, &auth.User{ID: "test", Name: "Test User"})

	g, err := NewGateway(
		authenticator,
		repo,
		llm.NewBaselineGenerator(),
		registry,
		router,
		logger,
		Config{Version: "test", SessionTTL: time.Minute},
	)
	if err != nil {
		t.Fatalf("NewTestGatewayWith: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}
