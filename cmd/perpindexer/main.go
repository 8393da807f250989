package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PerpIndexer/internal/config"
	"PerpIndexer/internal/core"
	"PerpIndexer/internal/ingestion"
	"PerpIndexer/internal/observability"
	"PerpIndexer/internal/persistence"
	"PerpIndexer/internal/query"
	"PerpIndexer/internal/repository"
	"PerpIndexer/internal/server"
	"PerpIndexer/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("INFO: PerpIndexer starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: load config: %v", err)
	}
	level := observability.ParseLogLevel(cfg.LogLevel)

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	healthChecker := observability.NewHealthChecker()

	// --- Store ---
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL: open %s store: %v", cfg.StoreBackend, err)
	}
	defer backend.Close()
	log.Printf("INFO: %s store opened", cfg.StoreBackend)
	healthChecker.AddCheck("store", backend.Ping)

	// Bounded: the feed drops changes rather than stall the core.
	changeChan := make(chan store.Change, cfg.ChangeChanSize)
	var entityStore store.Store = store.NewInstrumented(backend, metrics)
	if cfg.PublishChanges {
		entityStore = store.NewChangeFeed(entityStore, changeChan, metrics, observability.NewLoggerWithLevel("changefeed", level))
	}

	// --- Core ---
	anomalies := observability.NewAnomalyReporter(observability.NewLoggerWithLevel("anomaly", level), metrics, nil)
	repo := repository.New(entityStore, anomalies, observability.NewLoggerWithLevel("repository", level))
	processor := core.NewProcessor(repo, anomalies, metrics, observability.NewLoggerWithLevel("core", level))

	// --- NATS ---
	natsLogger := observability.NewLoggerWithLevel("nats", level)
	nc, js, err := ingestion.ConnectNATS(cfg.NATSURL, natsLogger)
	if err != nil {
		log.Fatalf("FATAL: nats connect: %v", err)
	}
	defer nc.Close()
	log.Println("INFO: NATS connected")
	healthChecker.AddCheck("nats", func(context.Context) error {
		if st := nc.Status(); st != nats.CONNECTED {
			return fmt.Errorf("nats status %s", st)
		}
		return nil
	})

	subCfg := ingestion.DefaultSubscriberConfig()
	subCfg.StreamName = cfg.EventStream
	subCfg.SubjectPrefix = cfg.EventSubjectPrefix
	subCfg.ConsumerName = cfg.ConsumerName

	pubCfg := ingestion.DefaultPublisherConfig()
	pubCfg.StreamName = cfg.ChangeStream
	pubCfg.SubjectPrefix = cfg.ChangeSubjectPrefix

	if err := ingestion.EnsureStreams(ctx, js, subCfg, pubCfg); err != nil {
		log.Fatalf("FATAL: ensure NATS streams: %v", err)
	}

	// --- Ingestion ---
	rawEventChan := make(chan ingestion.RawEvent, cfg.IngestChanSize)
	natsSubscriber := ingestion.NewNATSSubscriber(js, subCfg, rawEventChan, natsLogger)
	pipeline := ingestion.NewPipeline(
		processor,
		subCfg,
		ingestion.NewRedeliveryFilter(cfg.DedupLRUCapacity),
		metrics,
		observability.NewLoggerWithLevel("ingestion", level),
	)
	changePublisher := ingestion.NewChangePublisher(js, pubCfg, changeChan, metrics, observability.NewLoggerWithLevel("publisher", level))

	// --- Query + servers ---
	queryService := query.NewService(repo, processor.LastBlock, metrics)
	grpcServer, err := server.NewGRPCServer(cfg.GRPCAddr, cfg.HTTPAddr, &server.ServerDeps{
		QueryService:  queryService,
		HealthChecker: healthChecker,
		Gatherer:      prometheus.DefaultGatherer,
		Logger:        observability.NewLoggerWithLevel("server", level),
	})
	if err != nil {
		log.Fatalf("FATAL: build servers: %v", err)
	}

	// --- Start goroutines ---
	errChan := make(chan error, 8)

	// 1. Ingestion pipeline (single goroutine, preserves delivery order)
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := pipeline.Run(ctx, rawEventChan); err != nil && ctx.Err() == nil {
			errChan <- fmt.Errorf("pipeline: %w", err)
		}
	}()

	// 2. Outbound change publisher, drained after the pipeline stops
	publishCtx, publishCancel := context.WithCancel(context.Background())
	defer publishCancel()
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		changePublisher.Run(publishCtx)
	}()

	// 3. gRPC server
	go func() {
		if err := grpcServer.StartGRPC(ctx); err != nil {
			errChan <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// 4. HTTP/JSON gateway
	go func() {
		if err := grpcServer.StartHTTPGateway(ctx); err != nil {
			errChan <- fmt.Errorf("http gateway: %w", err)
		}
	}()

	// 5. Dedicated Prometheus metrics listener
	if cfg.MetricsAddr != "" && cfg.MetricsAddr != cfg.HTTPAddr {
		go func() {
			errChan <- runMetricsServer(ctx, cfg.MetricsAddr)
		}()
	}

	// 6. NATS delivery starts last so nothing is consumed before the core is wired
	if err := natsSubscriber.Subscribe(ctx); err != nil {
		log.Fatalf("FATAL: nats subscribe: %v", err)
	}

	healthChecker.SetReady(true)
	grpcServer.SetServing(true)

	log.Printf("INFO: PerpIndexer ready (store=%s, subjects=%s.>, grpc=%s, http=%s, metrics=%s)",
		cfg.StoreBackend, cfg.EventSubjectPrefix, cfg.GRPCAddr, cfg.HTTPAddr, cfg.MetricsAddr)

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		log.Printf("INFO: received signal %s, shutting down...", sig)
	case err := <-errChan:
		log.Printf("ERROR: goroutine failed: %v, shutting down...", err)
	}

	// --- Graceful shutdown ---
	healthChecker.SetReady(false)
	grpcServer.SetServing(false)
	natsSubscriber.Stop()
	cancel()
	<-pipelineDone

	// No more store writes after this point.
	close(changeChan)
	select {
	case <-publisherDone:
		log.Println("INFO: pending changes published")
	case <-time.After(10 * time.Second):
		log.Println("WARN: change publisher did not drain in time")
	}

	log.Printf("INFO: PerpIndexer shutdown complete (last block %d)", processor.LastBlock())
}

// openBackend opens the configured store. Postgres schemas are migrated
// first when AutoMigrate is set.
func openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Println("WARN: memory store selected, state is lost on exit")
		return store.NewMemory(), nil
	case config.BackendKV:
		return store.OpenKV(cfg.KVPath)
	case config.BackendSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	case config.BackendPostgres:
		s, err := store.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			migrator := persistence.NewMigrator(s.DB(), cfg.MigrationsDir).
				WithLogger(observability.NewLogger("migrator"))
			if err := migrator.Up(ctx); err != nil {
				s.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			log.Println("INFO: migrations applied")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func runMetricsServer(ctx context.Context, addr string) error {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              addr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		metricsServer.Shutdown(shutCtx)
	}()
	log.Printf("INFO: Metrics server listening on %s/metrics", addr)
	if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
