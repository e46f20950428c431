package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
)

type SearchResult struct {
	Query           string                `json:"query"`
	TotalCandidates int                   `json:"total_candidates"`
	Results         []ranker.RankedResult `json:"results"`
	Terms           []TermStat            `json:"terms"`
}

// TermStat reports how one parsed term fared against its table.
type TermStat struct {
	Kind    parser.Kind `json:"kind"`
	Key     string      `json:"key"`
	Weight  int         `json:"weight"`
	Matches int         `json:"matches"`
}

// Snapshotter hands out the currently published index tables.
type Snapshotter interface {
	Snapshot() *index.Tables
}

type Executor struct {
	index   Snapshotter
	limit   int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns an Executor over idx returning at most limit results per query.
// m may be nil.
func New(idx Snapshotter, limit int, m *metrics.Metrics) *Executor {
	if limit <= 0 {
		limit = ranker.DefaultLimit
	}
	return &Executor{
		index:   idx,
		limit:   limit,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, query string) (*SearchResult, error) {
	start := time.Now()
	terms := parser.ParseQuery(query)
	if len(terms) == 0 {
		e.observe("empty_query", 0, 0, 0, start)
		return &SearchResult{
			Query:   query,
			Results: []ranker.RankedResult{},
			Terms:   []TermStat{},
		}, nil
	}

	tables := e.index.Snapshot()
	matches := make([]ranker.TermMatch, 0, len(terms))
	stats := make([]TermStat, 0, len(terms))
	for _, term := range terms {
		ids, ok := Lookup(tables, term)
		stat := TermStat{
			Kind:   term.Kind,
			Key:    term.KeyString(),
			Weight: term.Weight,
		}
		if ok {
			matches = append(matches, ranker.TermMatch{Term: term, IDs: ids})
			stat.Matches = len(ids)
		}
		stats = append(stats, stat)
	}

	ranked, total := ranker.Rank(matches, e.limit)
	resultType := "hit"
	if total == 0 {
		resultType = "zero_result"
	}
	e.observe(resultType, len(terms), len(ranked), total, start)
	e.logger.Debug("query executed",
		"query", query,
		"terms", len(terms),
		"candidates", total,
		"results", len(ranked),
	)
	return &SearchResult{
		Query:           query,
		TotalCandidates: total,
		Results:         ranked,
		Terms:           stats,
	}, nil
}

// Lookup probes the table selected by the term's kind. The boolean is false
// when the key is absent from that table.
func Lookup(tables *index.Tables, term parser.Term) (index.Set, bool) {
	k := term.Key
	switch term.Kind {
	case parser.KindClass:
		return tables.ByClass(k.Class)
	case parser.KindAttr:
		return tables.ByAttr(k.Attr)
	case parser.KindValue:
		return tables.ByValue(k.Value)
	case parser.KindClassAttr:
		return tables.ByClassAttr(k.Class, k.Attr)
	case parser.KindClassValue:
		return tables.ByClassValue(k.Class, k.Value)
	case parser.KindAttrValue:
		return tables.ByAttrValue(k.Attr, k.Value)
	case parser.KindClassAttrValue:
		return tables.ByClassAttrValue(k.Class, k.Attr, k.Value)
	}
	return nil, false
}

func (e *Executor) observe(resultType string, terms, results, candidates int, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	e.metrics.SearchTermsPerQuery.Observe(float64(terms))
	e.metrics.SearchResultsCount.Observe(float64(results))
	e.metrics.SearchCandidates.Observe(float64(candidates))
}
