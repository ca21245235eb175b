package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docket-labs/docket-core/internal/adapters/driven/extract"
	"github.com/docket-labs/docket-core/internal/adapters/driven/postgres"
	redisadapter "github.com/docket-labs/docket-core/internal/adapters/driven/redis"
	"github.com/docket-labs/docket-core/internal/adapters/driven/token"
	apihttp "github.com/docket-labs/docket-core/internal/adapters/driving/http"
	mcpserver "github.com/docket-labs/docket-core/internal/adapters/driving/mcp"
	"github.com/docket-labs/docket-core/internal/config"
	"github.com/docket-labs/docket-core/internal/core/services"
	"github.com/docket-labs/docket-core/internal/worker"
)

var version = "dev"

func main() {
	configPath := os.Getenv("DOCKET_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mode := cfg.Mode
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("docket-core %s starting in %s mode", version, mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleSec) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis =====
	if cfg.Redis.URL == "" {
		log.Fatal("Redis is required: set DOCKET_REDIS_URL or redis.url")
	}
	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	// ===== Token signer (optional) =====
	var signer *token.Signer
	if cfg.Auth.JWTSecret != "" {
		signer, err = token.NewSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
		if err != nil {
			log.Fatalf("Failed to create token signer: %v", err)
		}
	} else {
		log.Println("Warning: no JWT secret configured, API authentication disabled")
	}

	// ===== Driven adapters =====
	objectStore := postgres.NewObjectStore(db, signer, cfg.Server.BaseURL)
	jobStore := postgres.NewJobStore(db)
	snapshotStore := postgres.NewContentSnapshotStore(db)

	dispatch, err := redisadapter.NewDispatchStream(redisClient, fmt.Sprintf("indexer-%d", os.Getpid()))
	if err != nil {
		log.Fatalf("Failed to create dispatch stream: %v", err)
	}
	notifier, err := redisadapter.NewNotifier(redisClient)
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}

	// ===== Extraction =====
	registry := extract.NewDefaultRegistry()
	extractor := services.NewExtractor(registry,
		services.WithChunkSize(cfg.Extract.ChunkSize),
		services.WithChunkOverlap(cfg.Extract.ChunkOverlap),
	)

	// ===== Core services =====
	contentStore := services.NewContentStore(services.ContentStoreConfig{
		Extractor: extractor,
		Snapshots: snapshotStore,
		Logger:    slog.Default(),
	})

	log.Println("Reloading content snapshots...")
	if err := contentStore.Reload(ctx); err != nil {
		log.Fatalf("Failed to reload content snapshots: %v", err)
	}
	stats, _ := contentStore.Stats(ctx)
	log.Printf("Content store ready: %d files, %d chunks", stats.FileCount, stats.TotalChunks)

	indexingService := services.NewIndexingService(services.IndexingServiceConfig{
		Jobs:       jobStore,
		Objects:    objectStore,
		Dispatcher: dispatch,
		Notifier:   notifier,
		Logger:     slog.Default(),
	})

	searchService := services.NewVectorSearchService(services.VectorSearchServiceConfig{
		Content: contentStore,
		Objects: objectStore,
		Logger:  slog.Default(),
	})

	fileService := services.NewFileService(services.FileServiceConfig{
		Objects:  objectStore,
		Content:  contentStore,
		Notifier: notifier,
		Logger:   slog.Default(),
	})

	// ===== Worker =====
	w := worker.New(worker.Config{
		Queue:          dispatch,
		Objects:        objectStore,
		Content:        contentStore,
		Indexing:       indexingService,
		Logger:         slog.Default(),
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeoutSec,
	})

	// ===== MCP server (optional, runs alongside the API) =====
	if cfg.MCP.Enabled {
		mcpSrv, err := mcpserver.NewServer(&mcpserver.Ports{
			Content:  contentStore,
			Indexing: indexingService,
			Search:   searchService,
			Files:    fileService,
		})
		if err != nil {
			log.Fatalf("Failed to create MCP server: %v", err)
		}
		go func() {
			log.Printf("MCP server starting on %s", cfg.MCP.Addr)
			if err := mcpSrv.RunHTTP(ctx, cfg.MCP.Addr); err != nil {
				log.Printf("MCP server error: %v", err)
			}
		}()
	}

	httpCfg := apihttp.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	}

	runAPI := func() {
		server := apihttp.NewServer(
			httpCfg,
			fileService,
			contentStore,
			indexingService,
			searchService,
			objectStore,
			signer,
			db,
			dispatch,
		)
		log.Printf("API server starting on :%d", cfg.Server.Port)
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	runWorker := func() {
		log.Println("Starting worker...")
		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
		log.Println("Worker started, processing index requests...")

		<-ctx.Done()

		log.Println("Stopping worker...")
		w.Stop()
		log.Println("Worker stopped")
	}

	switch mode {
	case "api":
		runAPI()
	case "worker":
		runWorker()
	case "all":
		go runWorker()
		runAPI()
	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}
}
