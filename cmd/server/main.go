/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the finance ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment), parse flag overrides
  2. Initialize the SQLite store
  3. Create the ledger engine, query service, and API handler
  4. Start the recurring transaction scheduler
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database
  -seed    Load demo data on startup (dev only)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/finance.db"

  # Run in-memory with demo data
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
  - kv/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/finance-ledger/api"
	"github.com/warp/finance-ledger/config"
	"github.com/warp/finance-ledger/kv/sqlite"
	"github.com/warp/finance-ledger/ledger"
	"github.com/warp/finance-ledger/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	seed := flag.Bool("seed", false, "load demo data on startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the engine and services
	eng := ledger.New(store)
	qry := query.New(store)
	handler := api.NewHandler(eng, qry, []byte(cfg.JWTSecret), cfg.TokenTTL)

	scheduler := api.NewRecurringScheduler(eng)
	handler.OnAuthenticated(scheduler.Track)
	scheduler.Start()
	defer scheduler.Stop()

	if *seed {
		if err := loadDemoData(context.Background(), eng, scheduler); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s (db: %s)", *port, *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
