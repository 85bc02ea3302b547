/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission platform server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and read configuration
  2. Open the JSON-file backend over the data directory
  3. Seed the built-in commission plans
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

CONFIGURATION:
  Flags override environment, environment overrides defaults.
    -port / PORT        HTTP server port (default: 8080)
    -data / DATA_DIR    Data directory for collection files (default: ./data)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait for active requests
  (30s timeout), exit. Collection files are always consistent on disk;
  there is nothing to flush.

SEE ALSO:
  - api/server.go: Router configuration
  - store/jsonfile: Persistence
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
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pentagame/commission-engine/api"
	"github.com/pentagame/commission-engine/engine"
	"github.com/pentagame/commission-engine/mlm"
	"github.com/pentagame/commission-engine/store/jsonfile"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dataDir := flag.String("data", envStr("DATA_DIR", "./data"), "data directory for collection files")
	flag.Parse()

	backend, err := jsonfile.New(*dataDir)
	if err != nil {
		log.Fatalf("Failed to open data directory: %v", err)
	}

	db := engine.NewDatabase(backend)

	if err := mlm.SeedDefaultPlans(context.Background(), db.Plans); err != nil {
		log.Fatalf("Failed to seed commission plans: %v", err)
	}

	handler := api.NewHandler(db)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d (data: %s)", *port, *dataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

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

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
