package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/kafka"
)

const (
	latencyWindow = 10000
	topQueries    = 10
)

type AggregatedStats struct {
	TotalSearches     int64         `json:"total_searches"`
	CacheHits         int64         `json:"cache_hits"`
	CacheMisses       int64         `json:"cache_misses"`
	ZeroResultCount   int64         `json:"zero_result_count"`
	AvgLatencyMs      float64       `json:"avg_latency_ms"`
	P50LatencyMs      int64         `json:"p50_latency_ms"`
	P95LatencyMs      int64         `json:"p95_latency_ms"`
	P99LatencyMs      int64         `json:"p99_latency_ms"`
	TopQueries        []QueryCount  `json:"top_queries"`
	ZeroResultQueries []QueryCount  `json:"zero_result_queries"`
	QueriesPerMinute  float64       `json:"queries_per_minute"`
	Rebuilds          int64         `json:"rebuilds"`
	FailedRebuilds    int64         `json:"failed_rebuilds"`
	LastRebuild       *RebuildEvent `json:"last_rebuild,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into running statistics. Latency
// percentiles cover the most recent searches only.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	rebuilds          int64
	failedRebuilds    int64
	lastRebuild       *RebuildEvent
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, latencyWindow),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event Event) {
	switch event.Type {
	case EventSearch:
		if event.Search != nil {
			a.recordSearch(*event.Search)
		}
	case EventRebuild:
		if event.Rebuild != nil {
			a.recordRebuild(*event.Rebuild)
		}
	default:
		a.logger.Warn("unknown analytics event", "type", event.Type)
	}
}

func (a *Aggregator) recordSearch(e SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	a.queryCounts[e.Query]++
	if e.TotalCandidates == 0 {
		a.zeroResults++
		a.zeroResultQueries[e.Query]++
	}
}

func (a *Aggregator) recordRebuild(e RebuildEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.Error != "" {
		a.failedRebuilds++
		return
	}
	a.rebuilds++
	a.lastRebuild = &e
}

// Restore seeds the counters from a persisted snapshot. Latencies are not
// restored; only the snapshot's top queries carry over.
func (a *Aggregator) Restore(snapshot AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches += snapshot.TotalSearches
	a.cacheHits += snapshot.CacheHits
	a.cacheMisses += snapshot.CacheMisses
	a.zeroResults += snapshot.ZeroResultCount
	a.rebuilds += snapshot.Rebuilds
	a.failedRebuilds += snapshot.FailedRebuilds
	if a.lastRebuild == nil {
		a.lastRebuild = snapshot.LastRebuild
	}
	for _, q := range snapshot.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range snapshot.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		Rebuilds:        a.rebuilds,
		FailedRebuilds:  a.failedRebuilds,
		LastRebuild:     a.lastRebuild,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueries)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueries)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
