// Package benchmark contains Go benchmarks for the in-memory index, the
// tokenizer, and the end-to-end indexing pipeline, measuring throughput
// and allocation behaviour.
package benchmark

import (
	"fmt"
	"testing"

	"github.com/textpipe/indexer/internal/index"
)

// BenchmarkFromSingleDocument measures per-document index construction.
func BenchmarkFromSingleDocument(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frag := index.FromSingleDocument(i, text)
		_ = frag
	}
}

// BenchmarkMerge measures folding per-document fragments into an
// accumulator for different batch sizes.
func BenchmarkMerge(b *testing.B) {
	sizes := []int{10, 100, 1000}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				// Merge consumes its argument, so each round needs
				// fresh fragments.
				round := make([]index.InMemoryIndex, n)
				for j := range round {
					round[j] = index.FromSingleDocument(j,
						fmt.Sprintf("document %d talks about segment merge throughput and posting lists", j))
				}
				b.StartTimer()

				acc := index.New()
				for _, frag := range round {
					acc.Merge(frag)
				}
				_ = acc
			}
		})
	}
}

// BenchmarkSnapshot measures sorted snapshot extraction, the step that
// feeds the segment writer.
func BenchmarkSnapshot(b *testing.B) {
	acc := index.New()
	for i := 0; i < 1000; i++ {
		acc.Merge(index.FromSingleDocument(i,
			fmt.Sprintf("document %d covers indexing accumulators thresholds and spills", i)))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		entries := acc.Snapshot()
		_ = entries
	}
}
