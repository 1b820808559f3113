// Package pipeline wires the indexing stages into a concurrent
// producer/consumer network and provides a sequential reference
// implementation of the same work.
//
// The pipelined path runs five stages. Read, index, accumulate, and
// write each get a dedicated worker goroutine through stream.OffThread;
// the final merge runs on the calling goroutine. Per-item failures from
// the read, index, and write stages are diverted into a stream.ErrorSink
// and drained by a FailureCollector, so a bad document costs one skipped
// entry rather than the whole run.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/textpipe/indexer/internal/corpus"
	"github.com/textpipe/indexer/internal/index"
	"github.com/textpipe/indexer/internal/segment"
	"github.com/textpipe/indexer/pkg/config"
	pkgerrors "github.com/textpipe/indexer/pkg/errors"
	"github.com/textpipe/indexer/pkg/logger"
	"github.com/textpipe/indexer/pkg/metrics"
	"github.com/textpipe/indexer/pkg/resilience"
	"github.com/textpipe/indexer/pkg/stream"
	"github.com/textpipe/indexer/pkg/tracing"
)

// Run modes reported in stats, metrics, and the completion event.
const (
	ModePipelined      = "pipelined"
	ModeSingleThreaded = "single-threaded"
)

// Runner executes indexing runs against a fixed configuration. A Runner
// is safe to reuse across runs but runs must not overlap when they share
// an output directory.
type Runner struct {
	cfg     config.IndexerConfig
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
}

// NewRunner builds a Runner. The metrics collectors must be non-nil;
// tests pass metrics.NewFor with a private registry.
func NewRunner(cfg config.IndexerConfig, m *metrics.Metrics) *Runner {
	return &Runner{
		cfg:     cfg,
		retry:   resilience.RetryConfig{MaxAttempts: cfg.WriteRetries},
		metrics: m,
	}
}

// RunStats summarizes a completed run.
type RunStats struct {
	Mode      string
	OutputDir string

	// Documents is the input count; Indexed is how many of them made it
	// into a fragment. The difference is documents lost to read or
	// wiring failures.
	Documents int
	Indexed   int
	Skipped   int

	// Segments counts temporary segment files spilled during the run,
	// including the final flush. They are merged into a single index
	// file before Run returns.
	Segments int

	Elapsed  time.Duration
	Failures []FailureRecord
}

// run carries the mutable state of one execution: per-run counters, the
// temporary-file allocator, and the run-scoped logger.
type run struct {
	*Runner
	log *slog.Logger
	tmp *segment.TmpDir

	read    atomic.Int64
	indexed atomic.Int64
	flushed atomic.Int64
	spills  atomic.Int64
	written atomic.Int64
}

// Run executes the concurrent pipeline over docs and merges the spilled
// segments into a single index file under the configured output
// directory. Read, index, and write failures skip the affected item and
// appear in the returned stats; merge construction and finalization
// failures abort the run.
func (r *Runner) Run(ctx context.Context, docs []corpus.Document) (*RunStats, error) {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "pipeline")
	defer span.End()

	e := &run{
		Runner: r,
		log:    logger.FromContext(ctx).With("component", "pipeline"),
		tmp:    segment.NewTmpDir(r.cfg.OutputDir),
	}
	e.log.Info("starting pipelined run",
		"documents", len(docs),
		"output_dir", r.cfg.OutputDir,
		"segment_max_size", r.cfg.SegmentMaxSize,
		"channel_capacity", r.cfg.ChannelCapacity)

	sink := stream.NewErrorSink(r.cfg.ChannelCapacity)
	collector := NewFailureCollector(r.metrics)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		collector.Drain(sink)
	}()

	// The merge stage runs here on the orchestrating goroutine, folding
	// segment files in as the write stage emits them.
	merge := segment.NewFileMerge(r.cfg.OutputDir)
	err := stream.ForEach(ctx, e.stages(docs, sink), func(_ context.Context, msg Message) error {
		if msg.Kind != KindFilePath {
			return pkgerrors.Newf("merge", "", "%w: got %s, want %s", pkgerrors.ErrWrongMessage, msg.Kind, KindFilePath)
		}
		return merge.AddFile(msg.Path)
	})
	if err == nil {
		err = merge.Finish()
	}

	// ForEach has closed every stage and joined every worker by now, so
	// no sender can race the close.
	sink.Close()
	<-collectorDone

	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if fin := e.flushed.Load() - e.spills.Load(); fin > 0 {
		r.metrics.AccumulatorFlushes.WithLabelValues("final").Add(float64(fin))
	}
	r.metrics.RunDuration.WithLabelValues(ModePipelined).Observe(elapsed.Seconds())

	stats := e.stats(ModePipelined, len(docs), elapsed, collector)
	span.SetAttr("documents", stats.Documents)
	span.SetAttr("indexed", stats.Indexed)
	span.SetAttr("segments", stats.Segments)
	e.log.Info("pipelined run complete",
		"documents", stats.Documents,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"segments", stats.Segments,
		"failures", len(stats.Failures),
		"elapsed", elapsed)
	return stats, nil
}

// stages assembles the four concurrent stages over docs. Failures from
// the read, index, and write stage functions are diverted to sink before
// each stage's OffThread boundary, so only values cross between workers.
func (e *run) stages(docs []corpus.Document, sink *stream.ErrorSink) *stream.Pipeline[Message] {
	capacity := e.cfg.ChannelCapacity

	reads := stream.Map(stream.FromSlice(docs), e.readDocument)
	stage1 := stream.OffThread(stream.DivertErrors(reads, sink), capacity)

	// Document ids are assigned after the read stage's divert, so they
	// number the documents that were actually read.
	indexed := stream.Map(stream.Enumerate(stage1), e.indexDocument)
	stage2 := stream.OffThread(stream.DivertErrors(indexed, sink), capacity)

	emissions := stream.Accumulate(stage2, e.newAccumulator, e.mergeStep)
	kept := stream.Filter(emissions, func(em stream.Emission[index.InMemoryIndex]) bool {
		return em.Ready && !em.Value.IsEmpty()
	})
	fragments := stream.Map(kept, e.extractFragment)
	stage3 := stream.OffThread(fragments, capacity)

	writes := stream.Map(stage3, e.writeSegment)
	return stream.OffThread(stream.DivertErrors(writes, sink), capacity)
}

func (e *run) readDocument(_ context.Context, doc corpus.Document) (stream.Try[Message], error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return stream.Fail[Message](pkgerrors.New("read", doc.Path, err)), nil
	}
	e.read.Add(1)
	e.metrics.DocsReadTotal.Inc()
	return stream.OK(TextMessage(string(data))), nil
}

func (e *run) indexDocument(_ context.Context, doc stream.Numbered[Message]) (stream.Try[index.InMemoryIndex], error) {
	if doc.Value.Kind != KindText {
		err := pkgerrors.Newf("index", "", "%w: got %s, want %s", pkgerrors.ErrWrongMessage, doc.Value.Kind, KindText)
		return stream.Fail[index.InMemoryIndex](err), nil
	}
	frag := index.FromSingleDocument(doc.N, doc.Value.Text)
	e.indexed.Add(1)
	e.metrics.DocsIndexedTotal.Inc()
	return stream.OK(frag), nil
}

func (e *run) newAccumulator() index.InMemoryIndex {
	return index.NewWithLimit(e.cfg.SegmentMaxSize)
}

// mergeStep folds each per-document fragment into the accumulator and
// emits the accumulated index once it crosses the size threshold. The
// emitted value moves out of the accumulator, which restarts empty;
// anything still held at end-of-input is flushed by the combinator.
func (e *run) mergeStep(acc *index.InMemoryIndex, frag index.InMemoryIndex, ok bool) (index.InMemoryIndex, bool) {
	if !ok {
		return index.InMemoryIndex{}, false
	}
	acc.Merge(frag)
	if !acc.IsLarge() {
		return index.InMemoryIndex{}, false
	}
	flushed := *acc
	*acc = index.NewWithLimit(e.cfg.SegmentMaxSize)
	e.spills.Add(1)
	e.metrics.AccumulatorFlushes.WithLabelValues("threshold").Inc()
	return flushed, true
}

func (e *run) extractFragment(_ context.Context, em stream.Emission[index.InMemoryIndex]) (index.InMemoryIndex, error) {
	e.flushed.Add(1)
	return em.Value, nil
}

func (e *run) writeSegment(ctx context.Context, frag index.InMemoryIndex) (stream.Try[Message], error) {
	var path string
	err := resilience.Retry(ctx, "segment write", e.retry, func() error {
		p, werr := segment.WriteTemp(frag, e.tmp)
		if werr != nil {
			return werr
		}
		path = p
		return nil
	})
	if err != nil {
		return stream.Fail[Message](pkgerrors.New("write", e.tmp.Dir(), err)), nil
	}
	e.written.Add(1)
	e.observeSegment(path)
	return stream.OK(FileMessage(path)), nil
}

func (e *run) stats(mode string, total int, elapsed time.Duration, collector *FailureCollector) *RunStats {
	indexed := int(e.indexed.Load())
	return &RunStats{
		Mode:      mode,
		OutputDir: e.cfg.OutputDir,
		Documents: total,
		Indexed:   indexed,
		Skipped:   total - indexed,
		Segments:  int(e.written.Load()),
		Elapsed:   elapsed,
		Failures:  collector.Records(),
	}
}

// RunSingleThreaded performs the same logical work as Run sequentially
// on the calling goroutine, reusing the same index, segment writer, and
// merge collaborators with no channels or extra goroutines. It is the
// reference the pipelined path is checked against. With no side-channel
// to divert to, a read or write failure aborts the run.
func (r *Runner) RunSingleThreaded(ctx context.Context, docs []corpus.Document) (*RunStats, error) {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "single-threaded")
	defer span.End()

	log := logger.FromContext(ctx).With("component", "pipeline")
	log.Info("starting single-threaded run",
		"documents", len(docs),
		"output_dir", r.cfg.OutputDir,
		"segment_max_size", r.cfg.SegmentMaxSize)

	tmp := segment.NewTmpDir(r.cfg.OutputDir)
	merge := segment.NewFileMerge(r.cfg.OutputDir)
	acc := index.NewWithLimit(r.cfg.SegmentMaxSize)

	var segments int
	for docID, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return nil, pkgerrors.New("read", doc.Path, err)
		}
		r.metrics.DocsReadTotal.Inc()

		acc.Merge(index.FromSingleDocument(docID, string(data)))
		r.metrics.DocsIndexedTotal.Inc()
		if !acc.IsLarge() {
			continue
		}

		flushed := acc
		acc = index.NewWithLimit(r.cfg.SegmentMaxSize)
		r.metrics.AccumulatorFlushes.WithLabelValues("threshold").Inc()
		if err := r.spill(flushed, tmp, merge); err != nil {
			return nil, err
		}
		segments++
	}
	if !acc.IsEmpty() {
		r.metrics.AccumulatorFlushes.WithLabelValues("final").Inc()
		if err := r.spill(acc, tmp, merge); err != nil {
			return nil, err
		}
		segments++
	}
	if err := merge.Finish(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	r.metrics.RunDuration.WithLabelValues(ModeSingleThreaded).Observe(elapsed.Seconds())
	span.SetAttr("documents", len(docs))
	span.SetAttr("segments", segments)
	log.Info("single-threaded run complete",
		"documents", len(docs),
		"segments", segments,
		"elapsed", elapsed)

	return &RunStats{
		Mode:      ModeSingleThreaded,
		OutputDir: r.cfg.OutputDir,
		Documents: len(docs),
		Indexed:   len(docs),
		Segments:  segments,
		Elapsed:   elapsed,
	}, nil
}

// spill writes one flushed fragment to a temporary segment file and
// queues it for the final merge.
func (r *Runner) spill(flushed index.InMemoryIndex, tmp *segment.TmpDir, merge *segment.FileMerge) error {
	path, err := segment.WriteTemp(flushed, tmp)
	if err != nil {
		return pkgerrors.New("write", tmp.Dir(), err)
	}
	r.observeSegment(path)
	return merge.AddFile(path)
}

func (r *Runner) observeSegment(path string) {
	r.metrics.SegmentsWrittenTotal.Inc()
	if info, err := os.Stat(path); err == nil {
		r.metrics.SegmentSizeBytes.Observe(float64(info.Size()))
	}
}
