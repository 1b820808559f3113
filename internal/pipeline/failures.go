package pipeline

import (
	"log/slog"
	"sync"

	pkgerrors "github.com/textpipe/indexer/pkg/errors"
	"github.com/textpipe/indexer/pkg/logger"
	"github.com/textpipe/indexer/pkg/metrics"
	"github.com/textpipe/indexer/pkg/stream"
)

// FailureRecord describes one diverted per-item failure.
type FailureRecord struct {
	Op      string
	Kind    pkgerrors.Kind
	Message string
}

// FailureCollector drains the error side-channel on its own goroutine,
// logging and counting each failure so the pipeline never blocks on a
// full sink. Recoverable failures mean a skipped document; invariant
// failures mean the stage wiring itself is broken and are logged at
// error level.
type FailureCollector struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	records []FailureRecord
}

func NewFailureCollector(m *metrics.Metrics) *FailureCollector {
	return &FailureCollector{
		log:     logger.WithComponent("failures"),
		metrics: m,
	}
}

// Drain consumes sink until it is closed. Run it on a dedicated
// goroutine before the pipeline starts; it returns once every producer
// has finished sending and the sink is closed.
func (c *FailureCollector) Drain(sink *stream.ErrorSink) {
	for err := range sink.Errors() {
		rec := FailureRecord{
			Op:      pkgerrors.Op(err),
			Kind:    pkgerrors.KindOf(err),
			Message: err.Error(),
		}

		if rec.Kind == pkgerrors.KindInvariant {
			c.log.Error("pipeline wiring fault", "op", rec.Op, "error", err)
		} else {
			c.log.Warn("document skipped", "op", rec.Op, "error", err)
		}
		c.metrics.FailuresTotal.WithLabelValues(rec.Op).Inc()

		c.mu.Lock()
		c.records = append(c.records, rec)
		c.mu.Unlock()
	}
}

// Records returns a copy of all failures collected so far.
func (c *FailureCollector) Records() []FailureRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FailureRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Count reports how many failures have been collected.
func (c *FailureCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
