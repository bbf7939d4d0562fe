package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "github.com/lib/pq"

	"github.com/tabula-labs/tabula/internal/auth"
	"github.com/tabula-labs/tabula/internal/engine"
	"github.com/tabula-labs/tabula/internal/engine/duckdb"
	"github.com/tabula-labs/tabula/internal/engine/sqlite"
	"github.com/tabula-labs/tabula/internal/gateway"
	"github.com/tabula-labs/tabula/internal/llm"
	"github.com/tabula-labs/tabula/internal/observability"
	"github.com/tabula-labs/tabula/internal/storage"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var (
		addr string
		dev  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tabula gateway",
		Long: `Run the HTTP gateway: web UI, JSON API, and query history.

Production mode requires a reachable history database (PostgreSQL or
sqlite file); --dev allows an in-memory history for local hacking.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, dev)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development mode (in-memory history allowed)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, dev bool) error {
	cfg := c.cfg
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Server.Port)
	}

	// Authenticator: an empty token runs the gateway open for local use.
	var authenticator auth.Authenticator
	if cfg.Auth.Token != "" {
		static := auth.NewStaticTokenAuthenticator()
		static.RegisterToken(cfg.Auth.Token, &auth.User{ID: "default-user", Name: "Default User"})
		authenticator = static
	}

	repo, logger, cleanup, err := c.openHistory(ctx, dev)
	if err != nil {
		return err
	}
	defer cleanup()

	// Generator: Gemini when an API key is configured, keyword baseline
	// otherwise.
	var generator llm.Generator
	if cfg.Gemini.APIKey != "" {
		gem, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
		if err != nil {
			return fmt.Errorf("creating gemini generator: %w", err)
		}
		generator = gem
		log.Printf("Generator: gemini (%s)", cfg.Gemini.Model)
	} else {
		generator = llm.NewBaselineGenerator()
		log.Printf("Generator: baseline (no Gemini API key configured)")
	}

	registry := engine.NewRegistry()
	router := engine.NewRouter()
	if cfg.Engines.DuckDB.Enabled {
		registry.Register("duckdb", duckdb.Factory)
		router.RegisterEngine(&engine.Descriptor{Name: "duckdb", Available: true, Priority: 1})
		log.Println("Registered DuckDB engine")
	}
	if cfg.Engines.SQLite.Enabled {
		registry.Register("sqlite", sqlite.Factory)
		router.RegisterEngine(&engine.Descriptor{Name: "sqlite", Available: true, Priority: 2})
		log.Println("Registered SQLite engine")
	}

	sessionTTL, err := time.ParseDuration(cfg.Session.TTL)
	if err != nil {
		return fmt.Errorf("invalid session.ttl %q: %w", cfg.Session.TTL, err)
	}

	gw, err := gateway.NewGateway(
		authenticator,
		repo,
		generator,
		registry,
		router,
		logger,
		gateway.Config{
			Version:         Version,
			ProductionMode:  !dev,
			SuggestOnUpload: true,
			SessionTTL:      sessionTTL,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	defer gw.Close()

	readTimeout, _ := time.ParseDuration(cfg.Server.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.Server.WriteTimeout)
	server := &http.Server{
		Addr:         addr,
		Handler:      gw,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Prune idle sessions in the background.
	pruneCtx, cancelPrune := context.WithCancel(context.Background())
	defer cancelPrune()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-pruneCtx.Done():
				return
			case <-ticker.C:
				if n := gw.PruneSessions(); n > 0 {
					log.Printf("Pruned %d idle sessions", n)
				}
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		close(done)
	}()

	log.Printf("Tabula gateway starting on %s", addr)
	log.Printf("Web UI:      http://localhost%s/", addr)
	log.Printf("Health:      http://localhost%s/health", addr)
	log.Printf("Readiness:   http://localhost%s/readyz", addr)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Println("Gateway stopped")
	return nil
}

// openHistory builds the history repository and query logger from the
// database config. PostgreSQL gets migrations plus persistent audit
// logging; sqlite keeps history in a local file; dev mode falls back to
// memory.
func (c *CLI) openHistory(ctx context.Context, dev bool) (storage.HistoryRepository, observability.QueryLogger, func(), error) {
	cfg := c.cfg
	noop := func() {}

	switch cfg.Database.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("PostgreSQL connectivity check failed: %w", err)
		}

		log.Println("Running database migrations...")
		if err := storage.NewMigrationRunner(db).Run(ctx); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("migration failed: %w", err)
		}
		log.Println("Database migrations completed")

		logger, err := observability.NewPersistentLogger(db)
		if err != nil {
			db.Close()
			return nil, nil, noop, err
		}
		return storage.NewPostgresRepository(db), logger, func() { db.Close() }, nil

	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.Database.Path)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("opening sqlite history at %s: %w", cfg.Database.Path, err)
		}
		log.Printf("History stored in %s", cfg.Database.Path)
		return repo, observability.NewJSONLogger(os.Stdout), func() { repo.Close() }, nil

	default:
		if !dev {
			return nil, nil, noop, fmt.Errorf("unknown database.driver %q (use postgres or sqlite, or run with --dev)", cfg.Database.Driver)
		}
		log.Println("WARNING: development mode - using in-memory history (not for production)")
		return storage.NewMemoryRepository(), observability.NewJSONLogger(os.Stdout), noop, nil
	}
}
