package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/textpipe/indexer/internal/corpus"
	"github.com/textpipe/indexer/internal/index"
	"github.com/textpipe/indexer/internal/pipeline"
	"github.com/textpipe/indexer/internal/segment"
	"github.com/textpipe/indexer/pkg/config"
	"github.com/textpipe/indexer/pkg/metrics"
)

func TestMain(m *testing.M) {
	// Runs log at info level; that noise would drown benchmark output.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func benchCorpus(b *testing.B, n int) []corpus.Document {
	b.Helper()
	dir := b.TempDir()
	docs := make([]corpus.Document, n)
	for i := range docs {
		path := filepath.Join(dir, fmt.Sprintf("doc%04d.txt", i))
		text := fmt.Sprintf("document %d covers staged indexing pipelines bounded accumulators segment spills and merge order", i)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			b.Fatalf("write doc: %v", err)
		}
		docs[i] = corpus.Document{ID: i, Path: path}
	}
	return docs
}

func benchRunner(outDir string) *pipeline.Runner {
	cfg := config.IndexerConfig{
		OutputDir:       outDir,
		SegmentMaxSize:  1 << 14,
		ChannelCapacity: 64,
		WriteRetries:    1,
	}
	return pipeline.NewRunner(cfg, metrics.NewFor(prometheus.NewRegistry()))
}

// BenchmarkRunPipelined measures complete concurrent runs, including
// segment spills and the final merge.
func BenchmarkRunPipelined(b *testing.B) {
	for _, n := range []int{8, 64} {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			docs := benchCorpus(b, n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				outDir, err := os.MkdirTemp("", "bench-index")
				if err != nil {
					b.Fatalf("temp dir: %v", err)
				}
				r := benchRunner(outDir)
				b.StartTimer()

				if _, err := r.Run(context.Background(), docs); err != nil {
					b.Fatalf("Run: %v", err)
				}

				b.StopTimer()
				os.RemoveAll(outDir)
				b.StartTimer()
			}
		})
	}
}

// BenchmarkRunSingleThreaded measures the sequential reference path over
// the same corpus sizes as BenchmarkRunPipelined.
func BenchmarkRunSingleThreaded(b *testing.B) {
	for _, n := range []int{8, 64} {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			docs := benchCorpus(b, n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				outDir, err := os.MkdirTemp("", "bench-index")
				if err != nil {
					b.Fatalf("temp dir: %v", err)
				}
				r := benchRunner(outDir)
				b.StartTimer()

				if _, err := r.RunSingleThreaded(context.Background(), docs); err != nil {
					b.Fatalf("RunSingleThreaded: %v", err)
				}

				b.StopTimer()
				os.RemoveAll(outDir)
				b.StartTimer()
			}
		})
	}
}

// BenchmarkFileMerge measures merging spilled segment files back into a
// single index for different segment counts.
func BenchmarkFileMerge(b *testing.B) {
	for _, n := range []int{2, 8, 32} {
		b.Run(fmt.Sprintf("segments_%d", n), func(b *testing.B) {
			frags := make([]index.InMemoryIndex, n)
			for i := range frags {
				frags[i] = index.FromSingleDocument(i,
					fmt.Sprintf("segment %d holds postings for merge ordering and term grouping", i))
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				outDir, err := os.MkdirTemp("", "bench-merge")
				if err != nil {
					b.Fatalf("temp dir: %v", err)
				}
				tmp := segment.NewTmpDir(outDir)
				merge := segment.NewFileMerge(outDir)
				for _, frag := range frags {
					path, err := segment.WriteTemp(frag, tmp)
					if err != nil {
						b.Fatalf("WriteTemp: %v", err)
					}
					if err := merge.AddFile(path); err != nil {
						b.Fatalf("AddFile: %v", err)
					}
				}
				b.StartTimer()

				if err := merge.Finish(); err != nil {
					b.Fatalf("Finish: %v", err)
				}

				b.StopTimer()
				os.RemoveAll(outDir)
				b.StartTimer()
			}
		})
	}
}
