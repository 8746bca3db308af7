package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/pairtalk/internal/config"
	"github.com/xiaot623/pairtalk/internal/export"
	"github.com/xiaot623/pairtalk/internal/hub"
	"github.com/xiaot623/pairtalk/internal/pairing"
	"github.com/xiaot623/pairtalk/internal/policy"
	"github.com/xiaot623/pairtalk/internal/repository"
	"github.com/xiaot623/pairtalk/internal/scheduler"
	"github.com/xiaot623/pairtalk/internal/service"
	"github.com/xiaot623/pairtalk/internal/transcript"
	handler "github.com/xiaot623/pairtalk/internal/transport/http"
	"github.com/xiaot623/pairtalk/internal/transport/ws"
)

const watchDebounce = 100 * time.Millisecond

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.SetLevel(logLevel(cfg.LogLevel))

	log.Infof("Starting pairtalk...")
	log.Infof("HTTP Port: %d", cfg.HTTPPort)
	log.Infof("Store: %s", cfg.StoreBackend)
	log.Infof("Chat logs: %s, exports: %s", cfg.ChatLogDir, cfg.PDFDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	catalogues, err := pairing.LoadCatalogues(cfg.TopicsFile)
	if err != nil {
		log.Fatalf("Failed to load topic catalogues: %v", err)
	}
	transcripts, err := transcript.NewStore(cfg.ChatLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize transcript store: %v", err)
	}
	exporter, err := export.NewExporter(cfg.PDFDir, cfg.ArchiveDir, catalogues)
	if err != nil {
		log.Fatalf("Failed to initialize exporter: %v", err)
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize hub
	eventHub := hub.NewHub()
	go eventHub.Run(ctx)

	// Initialize service
	svc := service.New(store, pairing.NewGenerator(catalogues, nil), transcripts, policyEngine, eventHub, exporter, cfg)

	if cfg.WatchTranscripts {
		watcher, err := transcript.NewWatcher(transcripts.Dir(), watchDebounce, svc.NotifyTranscriptChanged)
		if err != nil {
			log.Fatalf("Failed to watch %s: %v", transcripts.Dir(), err)
		}
		go watcher.Run(ctx)
		log.Infof("Watching %s for external changes", transcripts.Dir())
	}

	var archiver *scheduler.Scheduler
	if cfg.ArchiveSchedule != "" {
		archiver, err = scheduler.New(cfg.ArchiveSchedule, svc.ArchiveExports)
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		archiver.Start()
	}

	server := handler.NewServer(svc, ws.NewServer(cfg, svc))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pairtalk...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shutdown server gracefully: %v", err)
	}
	if archiver != nil {
		archiver.Stop()
	}
	cancel()

	log.Info("pairtalk stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StoreBackend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return repository.NewRedisStore(ctx, client, "pairtalk")
	}
	return repository.NewSQLiteStore(cfg.DatabaseURL)
}

func logLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
