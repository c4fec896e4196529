// Command searchd is the package-search backend: it serves ranked search
// and a browseable package index over HTTP, keeps the in-memory search
// engine in sync with PostgreSQL, and drains bulk imports from Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mfeineis/elm-advanced-package-search/internal/engine"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/extract"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/markup"
	"github.com/mfeineis/elm-advanced-package-search/internal/engine/rank"
	"github.com/mfeineis/elm-advanced-package-search/internal/indexer"
	"github.com/mfeineis/elm-advanced-package-search/internal/ingest"
	"github.com/mfeineis/elm-advanced-package-search/internal/search"
	"github.com/mfeineis/elm-advanced-package-search/internal/server/cache"
	"github.com/mfeineis/elm-advanced-package-search/internal/server/handler"
	"github.com/mfeineis/elm-advanced-package-search/internal/server/router"
	"github.com/mfeineis/elm-advanced-package-search/internal/stats"
	"github.com/mfeineis/elm-advanced-package-search/internal/store"
	"github.com/mfeineis/elm-advanced-package-search/pkg/config"
	"github.com/mfeineis/elm-advanced-package-search/pkg/health"
	"github.com/mfeineis/elm-advanced-package-search/pkg/kafka"
	"github.com/mfeineis/elm-advanced-package-search/pkg/logger"
	"github.com/mfeineis/elm-advanced-package-search/pkg/metrics"
	"github.com/mfeineis/elm-advanced-package-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting searchd", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	// Postgres is the durable home of the package records; nothing works
	// without it, so retry the connection instead of exiting on a slow
	// database start.
	var pkgStore *store.Store
	err = resilience.Retry(ctx, "postgres-connect", 5, func() error {
		var openErr error
		pkgStore, openErr = store.Open(cfg.Postgres)
		return openErr
	})
	if err != nil {
		slog.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer pkgStore.Close()

	if err := pkgStore.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure store schema", "error", err)
		os.Exit(1)
	}

	schema, stopwords, err := buildSchema(cfg.Engine)
	if err != nil {
		slog.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}
	eng, err := engine.New(schema, stopwords, markup.PlainText)
	if err != nil {
		slog.Error("failed to create search engine", "error", err)
		os.Exit(1)
	}

	queryCache, err := cache.New(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		queryCache = nil
	} else {
		defer queryCache.Close()
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	statsWriter := kafka.NewWriter(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer statsWriter.Close()
	collector := stats.NewCollector(statsWriter, 0)
	collector.Start(ctx)
	defer collector.Close()

	aggregator := stats.NewAggregator(kafka.NewReader(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents))

	opts := []indexer.Option{indexer.WithCollector(collector)}
	if m != nil {
		opts = append(opts, indexer.WithMetrics(m))
	}
	if queryCache != nil {
		opts = append(opts, indexer.WithCacheInvalidation(func(ctx context.Context) {
			queryCache.Invalidate(ctx)
		}))
	}
	idx := indexer.New(eng, pkgStore, opts...)

	loaded, err := idx.Load(ctx)
	if err != nil {
		slog.Error("failed to load index from store", "error", err)
		os.Exit(1)
	}
	slog.Info("index ready", "packages", loaded, "terms", idx.TermCount())

	ingestConsumer := ingest.New(
		kafka.NewReader(cfg.Kafka, cfg.Kafka.Topics.PackageIngest),
		idx,
		m,
	)

	checker := health.NewChecker()
	checker.Register("postgres", false, pkgStore.Ping)
	if queryCache != nil {
		checker.Register("redis", true, queryCache.Ping)
	}

	searcher := search.New(idx)
	h := handler.New(handler.Config{
		Searcher:     searcher,
		Index:        idx,
		Store:        pkgStore,
		Cache:        queryCache,
		Collector:    collector,
		Aggregator:   aggregator,
		Metrics:      m,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(h, checker, m, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ingestConsumer.Start(gctx)
	})
	g.Go(func() error {
		return aggregator.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("searchd exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("searchd stopped")
}

// buildSchema converts the engine configuration into a schema and
// stop-word set.
func buildSchema(cfg config.EngineConfig) (engine.Schema, extract.Stopwords, error) {
	schema := engine.Schema{K1: cfg.K1}
	for _, f := range cfg.Fields {
		kind := engine.TextField
		if f.Markup {
			kind = engine.MarkupField
		}
		schema.Fields = append(schema.Fields, engine.FieldSpec{
			Name:   f.Name,
			Kind:   kind,
			Weight: f.Weight,
			B:      f.B,
		})
	}
	for _, f := range cfg.Features {
		var fn rank.FeatureFunc
		switch f.Function {
		case "logarithmic":
			fn = rank.LogarithmicFunc(f.Lambda)
		case "rational":
			fn = rank.RationalFunc(f.Lambda)
		case "sigmoid":
			fn = rank.SigmoidFunc(f.Lambda, f.Scale)
		default:
			return engine.Schema{}, nil, fmt.Errorf("feature %q: unknown function %q", f.Name, f.Function)
		}
		schema.Features = append(schema.Features, engine.FeatureSpec{
			Name:     f.Name,
			Weight:   f.Weight,
			Function: fn,
		})
	}

	stopwords := extract.DefaultStopwords()
	if len(cfg.Stopwords) > 0 {
		stopwords = extract.NewStopwords(cfg.Stopwords...)
	}
	return schema, stopwords, nil
}
