// Package main is the entrypoint for the tabula gateway server.
// The gateway accepts CSV uploads, generates SQL and pandas code from
// natural-language questions, executes the validated SQL on an embedded
// engine, and records every interaction as history.
//
// Startup is strict: production mode requires a reachable history
// database, and at least one execution engine must register.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		token      = flag.String("token", "", "Static auth token (empty = open access)")
		dbURL      = flag.String("db", "", "PostgreSQL connection URL")
		sqlitePath = flag.String("sqlite", "", "SQLite history file (alternative to -db)")
		geminiKey  = flag.String("gemini-key", "", "Gemini API key (empty = baseline generator)")
		model      = flag.String("model", llm.DefaultModel, "Gemini model name")
		devMode    = flag.Bool("dev", false, "Development mode (allows in-memory history)")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("tabula-gateway %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	if *token == "" {
		*token = os.Getenv("TABULA_TOKEN")
	}
	if *dbURL == "" {
		*dbURL = os.Getenv("TABULA_DATABASE_URL")
	}
	if *geminiKey == "" {
		*geminiKey = os.Getenv("TABULA_GEMINI_API_KEY")
	}

	if *dbURL == "" && *sqlitePath == "" && !*devMode {
		return fmt.Errorf("history database required: use -db, -sqlite, or TABULA_DATABASE_URL (use -dev for development mode)")
	}

	ctx := context.Background()

	// Authenticator: empty token runs the gateway open for local use.
	var authenticator auth.Authenticator
	if *token != "" {
		static := auth.NewStaticTokenAuthenticator()
		static.RegisterToken(*token, &auth.User{ID: "default-user", Name: "Default User"})
		authenticator = static
	}

	var (
		repo   storage.HistoryRepository
		logger observability.QueryLogger
	)
	switch {
	case *dbURL != "":
		db, err := sql.Open("postgres", *dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("PostgreSQL connectivity check failed: %w", err)
		}

		log.Println("Running database migrations...")
		if err := storage.NewMigrationRunner(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Println("Database migrations completed")

		logger, err = observability.NewPersistentLogger(db)
		if err != nil {
			return err
		}
		repo = storage.NewPostgresRepository(db)
		log.Println("Connected to PostgreSQL")

	case *sqlitePath != "":
		sr, err := storage.NewSQLiteRepository(*sqlitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite history: %w", err)
		}
		defer sr.Close()
		repo = sr
		logger = observability.NewJSONLogger(os.Stdout)
		log.Printf("History stored in %s", *sqlitePath)

	default:
		log.Println("WARNING: Development mode - using in-memory history (not for production)")
		repo = storage.NewMemoryRepository()
		logger = observability.NewJSONLogger(os.Stdout)
	}

	var generator llm.Generator
	if *geminiKey != "" {
		gem, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{APIKey: *geminiKey, Model: *model})
		if err != nil {
			return fmt.Errorf("creating gemini generator: %w", err)
		}
		generator = gem
		log.Printf("Generator: gemini (%s)", *model)
	} else {
		generator = llm.NewBaselineGenerator()
		log.Println("Generator: baseline (no Gemini API key configured)")
	}

	registry := engine.NewRegistry()
	registry.Register("duckdb", duckdb.Factory)
	registry.Register("sqlite", sqlite.Factory)
	log.Println("Registered DuckDB and SQLite engines")

	gw, err := gateway.NewGateway(
		authenticator,
		repo,
		generator,
		registry,
		engine.DefaultRouter(),
		logger,
		gateway.Config{
			Version:         version,
			ProductionMode:  !*devMode,
			SuggestOnUpload: true,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	defer gw.Close()

	server := &http.Server{
		Addr:         *addr,
		Handler:      gw,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pruneDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-pruneDone:
				return
			case <-ticker.C:
				if n := gw.PruneSessions(); n > 0 {
					log.Printf("Pruned %d idle sessions", n)
				}
			}
		}
	}()
	defer close(pruneDone)

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

	log.Printf("Tabula gateway starting on %s", *addr)
	log.Printf("Version: %s, Commit: %s", version, commit)
	log.Printf("Web UI: http://localhost%s/", *addr)
	log.Printf("Health check: http://localhost%s/health", *addr)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Println("Gateway stopped")
	return nil
}
