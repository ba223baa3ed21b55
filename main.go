package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psyphy-data/gripmmi/internal/config"
	"github.com/psyphy-data/gripmmi/internal/grip"
	"github.com/psyphy-data/gripmmi/internal/gripdb"
	"github.com/psyphy-data/gripmmi/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	cacheRoot  = flag.String("cache", "", "Packet cache file root (reads <root>.rt.gpk and <root>.hk.gpk)")
	dbFile     = flag.String("db", "gripmmi.db", "SQLite database path")
	configPath = flag.String("config", "", "Optional tuning config JSON (defaults apply when omitted)")
)

func main() {
	flag.Parse()
	log.Printf("gripmmi %s (%s)", version.Version, version.GitSHA)

	if *cacheRoot == "" {
		log.Fatal("cache file root is required (-cache)")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	db, err := gripdb.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := gripdb.NewSampleStore(db)
	session := &gripdb.Session{CacheRoot: *cacheRoot}
	if err := store.InsertSession(session); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("session %s monitoring %s", session.SessionID, *cacheRoot)

	proc := grip.NewAnalogProcessor(cfg.GetFilterConstant(), cfg.GetCoPForceThreshold())
	assembler := grip.NewAssembler(cfg.GetMaxSamples(), proc)
	srv := NewServer(cfg, store, session, assembler, *cacheRoot)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Poll the cache files for newly appended packets.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.GetPollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := srv.Poll(); err != nil {
					log.Printf("poll error: %v", err)
				}
			case <-ctx.Done():
				log.Print("poll routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := srv.ServeMux()
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
