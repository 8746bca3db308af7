package helpers

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/xiaot623/pairtalk/internal/config"
	"github.com/xiaot623/pairtalk/internal/export"
	"github.com/xiaot623/pairtalk/internal/hub"
	"github.com/xiaot623/pairtalk/internal/pairing"
	"github.com/xiaot623/pairtalk/internal/policy"
	"github.com/xiaot623/pairtalk/internal/repository"
	"github.com/xiaot623/pairtalk/internal/service"
	"github.com/xiaot623/pairtalk/internal/transcript"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestConfig returns defaults with all directories under a temp dir.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		StoreBackend:       config.BackendSQLite,
		DatabaseURL:        ":memory:",
		ChatLogDir:         filepath.Join(root, "chat_logs"),
		PDFDir:             filepath.Join(root, "pdf_exports"),
		ArchiveDir:         filepath.Join(root, "pdf_archiv"),
		DefaultLanguage:    "de",
		MaxWordsPerMessage: 50,
		MaxCharsPerRefresh: 500,
		RefreshIntervalMs:  200,
		PingIntervalMs:     30000,
		WriteTimeoutMs:     10000,
		ReadTimeoutMs:      60000,
		MaxMessageSize:     65536,
		WSMessagesPerSec:   100,
		LogLevel:           "error",
	}
}

// TestEnv is a fully wired service over an in-memory store.
type TestEnv struct {
	Config      *config.Config
	Store       *repository.SQLiteStore
	Hub         *hub.Hub
	Transcripts *transcript.Store
	Exporter    *export.Exporter
	Service     *service.Service
}

// NewTestService wires a service with a seeded shuffler and a running hub.
// A nil shuffler uses seed 1.
func NewTestService(t *testing.T, shuffler pairing.Shuffler) *TestEnv {
	t.Helper()
	cfg := NewTestConfig(t)
	store := NewTestSQLiteStore(t)

	transcripts, err := transcript.NewStore(cfg.ChatLogDir)
	if err != nil {
		t.Fatalf("transcript store: %v", err)
	}
	catalogues := pairing.DefaultCatalogues()
	exporter, err := export.NewExporter(cfg.PDFDir, cfg.ArchiveDir, catalogues)
	if err != nil {
		t.Fatalf("exporter: %v", err)
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if shuffler == nil {
		shuffler = rand.New(rand.NewSource(1))
	}

	h := hub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	svc := service.New(store, pairing.NewGenerator(catalogues, shuffler), transcripts, engine, h, exporter, cfg)
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 2, 10, 15, 0, 0, time.Local) })

	return &TestEnv{
		Config:      cfg,
		Store:       store,
		Hub:         h,
		Transcripts: transcripts,
		Exporter:    exporter,
		Service:     svc,
	}
}
