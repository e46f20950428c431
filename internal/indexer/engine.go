package indexer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
)

// Index owns the published index snapshot. Build replaces the snapshot as a
// whole once the new tables are complete; readers holding an older snapshot
// keep a consistent view.
type Index struct {
	tables     atomic.Pointer[index.Tables]
	generation atomic.Uint64
	builtAt    atomic.Int64
	buildMu    sync.Mutex
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New returns an Index publishing empty tables. m may be nil.
func New(m *metrics.Metrics) *Index {
	idx := &Index{
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
	idx.tables.Store(index.Empty())
	return idx
}

// Build indexes records and publishes the result. Concurrent Builds are
// serialised so generations are published in order.
func (i *Index) Build(records []index.Record) *index.Tables {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	start := time.Now()
	tables := index.Build(records)
	elapsed := time.Since(start)

	for _, id := range tables.Duplicates() {
		i.logger.Warn("duplicate record id", "id", id)
	}

	i.tables.Store(tables)
	gen := i.generation.Add(1)
	i.builtAt.Store(time.Now().UnixNano())

	stats := tables.Stats()
	i.observe(stats, gen, elapsed)
	i.logger.Info("index built",
		"generation", gen,
		"records", stats.Records,
		"duplicate_ids", stats.DuplicateIDs,
		"classes", stats.Classes,
		"elapsed", elapsed,
	)
	return tables
}

// Snapshot returns the currently published tables. It is never nil.
func (i *Index) Snapshot() *index.Tables {
	return i.tables.Load()
}

// Generation returns the number of Builds published so far.
func (i *Index) Generation() uint64 {
	return i.generation.Load()
}

// Ready reports whether at least one Build has been published.
func (i *Index) Ready() bool {
	return i.Generation() > 0
}

// BuiltAt returns when the current snapshot was published, or the zero time
// before the first Build.
func (i *Index) BuiltAt() time.Time {
	ns := i.builtAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (i *Index) observe(stats index.Stats, gen uint64, elapsed time.Duration) {
	if i.metrics == nil {
		return
	}
	i.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	i.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
	i.metrics.IndexRecords.Set(float64(stats.Records))
	i.metrics.IndexDuplicateIDs.Add(float64(stats.DuplicateIDs))
	i.metrics.IndexGeneration.Set(float64(gen))
	tables := map[string]int{
		"class":            stats.Classes,
		"attr":             stats.Attributes,
		"value":            stats.Values,
		"attr_value":       stats.AttrValues,
		"class_attr":       stats.ClassAttrs,
		"class_value":      stats.ClassValues,
		"class_attr_value": stats.ClassAttrValues,
	}
	for table, keys := range tables {
		i.metrics.IndexTableKeys.WithLabelValues(table).Set(float64(keys))
	}
}
