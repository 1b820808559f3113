// Command indexer builds an inverted index over text documents.
//
// Usage:
//
//	indexer [-1|-single-threaded] [-o|-output_dir DIR] [-config FILE] [paths...]
//
// Each path names a file to index or a directory whose immediate child
// files are indexed. With no paths the default ./test-files corpus is
// used. On failure the process prints "error: <message>" to standard
// output and exits nonzero.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/textpipe/indexer/internal/corpus"
	"github.com/textpipe/indexer/internal/pipeline"
	"github.com/textpipe/indexer/internal/report"
	"github.com/textpipe/indexer/pkg/config"
	"github.com/textpipe/indexer/pkg/health"
	"github.com/textpipe/indexer/pkg/kafka"
	"github.com/textpipe/indexer/pkg/logger"
	"github.com/textpipe/indexer/pkg/metrics"
	"github.com/textpipe/indexer/pkg/postgres"
	"github.com/textpipe/indexer/pkg/resilience"
	"github.com/textpipe/indexer/pkg/tracing"
)

func main() {
	var (
		singleThreaded bool
		outputDir      string
		configPath     string
	)
	flag.BoolVar(&singleThreaded, "1", false, "do all the work on a single thread")
	flag.BoolVar(&singleThreaded, "single-threaded", false, "do all the work on a single thread")
	flag.StringVar(&outputDir, "o", "", "directory to write the index to (default from config)")
	flag.StringVar(&outputDir, "output_dir", "", "directory to write the index to (default from config)")
	flag.StringVar(&configPath, "config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if outputDir != "" {
		cfg.Indexer.OutputDir = outputDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"./test-files"}
	}

	if err := run(cfg, paths, singleThreaded); err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, paths []string, singleThreaded bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "index-run", runID)
	defer func() {
		span.End()
		span.Log()
	}()

	var pgClient *postgres.Client
	if cfg.Report.Enabled {
		var err error
		pgClient, err = postgres.New(cfg.Report.Postgres)
		if err != nil {
			slog.Error("report store unavailable, run report disabled", "error", err)
		} else {
			defer pgClient.Close()
		}
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		checker.Register("output_dir", health.DirProbe(cfg.Indexer.OutputDir))
		if pgClient != nil {
			checker.Register("postgres", func(ctx context.Context) error {
				return pgClient.DB.PingContext(ctx)
			})
		}
		shutdown := metrics.StartServer(cfg.Metrics.Port, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	docs, err := corpus.Expand(paths)
	if err != nil {
		return err
	}
	span.SetAttr("documents", len(docs))
	span.SetAttr("single_threaded", singleThreaded)

	runner := pipeline.NewRunner(cfg.Indexer, m)
	var stats *pipeline.RunStats
	if singleThreaded {
		stats, err = runner.RunSingleThreaded(ctx, docs)
	} else {
		stats, err = runner.Run(ctx, docs)
	}
	if err != nil {
		return err
	}

	if pgClient != nil {
		saveReport(ctx, pgClient, cfg.Report.SaveTimeout, runID, stats)
	}
	if cfg.Events.Enabled {
		publishCompletion(ctx, cfg, runID, stats)
	}
	return nil
}

// saveReport persists the run summary. Failures are logged rather than
// returned: the index itself is already on disk.
func saveReport(ctx context.Context, client *postgres.Client, timeout time.Duration, runID string, stats *pipeline.RunStats) {
	store := report.NewStore(client)
	err := resilience.WithTimeout(ctx, timeout, "report save", func(ctx context.Context) error {
		return store.SaveRun(ctx, runID, stats)
	})
	if err != nil {
		slog.Error("saving run report failed", "run_id", runID, "error", err)
	}
}

// publishCompletion announces the finished run on the completion topic.
// Failures are logged rather than returned.
func publishCompletion(ctx context.Context, cfg *config.Config, runID string, stats *pipeline.RunStats) {
	producer := kafka.NewProducer(cfg.Events)
	defer producer.Close()

	err := producer.Publish(ctx, kafka.Event{
		Key:   runID,
		Value: stats.Completion(runID),
	})
	if err != nil {
		slog.Error("publishing completion event failed", "run_id", runID, "error", err)
	}
}
