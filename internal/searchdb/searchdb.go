// Package searchdb ties a fabric source to the search index and the object
// store: it loads the hierarchy, rebuilds both, and answers enriched queries.
package searchdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/fabric"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/resilience"
)

// Hit is a ranked result enriched with the object's name and class.
type Hit struct {
	ranker.RankedResult
	Name  string `json:"name"`
	Class string `json:"class"`
}

// Results is the enriched answer to one query.
type Results struct {
	Query           string              `json:"query"`
	TotalCandidates int                 `json:"total_candidates"`
	Hits            []Hit               `json:"results"`
	Terms           []executor.TermStat `json:"terms"`
	Generation      uint64              `json:"generation"`
}

// More returns how many candidates were cut off by the result limit.
func (r *Results) More() int {
	return r.TotalCandidates - len(r.Hits)
}

// RebuildInfo describes a completed load.
type RebuildInfo struct {
	Source     string        `json:"source"`
	Generation uint64        `json:"generation"`
	Objects    int           `json:"objects"`
	Duration   time.Duration `json:"duration"`
	Skipped    bool          `json:"skipped"`
}

// RebuildHook runs after every successful rebuild.
type RebuildHook func(ctx context.Context, info RebuildInfo)

type Options struct {
	MaxResults   int
	BuildTimeout time.Duration
	Retry        resilience.RetryConfig
}

type DB struct {
	source   source.Source
	index    *indexer.Index
	executor *executor.Executor
	store    atomic.Pointer[store.Store]
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger

	loadMu  sync.Mutex
	hooksMu sync.RWMutex
	hooks   []RebuildHook
}

// New returns an uninitialised DB reading from src. m may be nil.
func New(src source.Source, opts Options, m *metrics.Metrics) *DB {
	idx := indexer.New(m)
	db := &DB{
		source:   src,
		index:    idx,
		executor: executor.New(idx, opts.MaxResults, m),
		opts:     opts,
		metrics:  m,
		logger:   slog.Default().With("component", "searchdb", "source", src.Name()),
	}
	db.store.Store(store.Empty())
	return db
}

// OnRebuild registers a hook run after each successful rebuild.
func (db *DB) OnRebuild(hook RebuildHook) {
	db.hooksMu.Lock()
	defer db.hooksMu.Unlock()
	db.hooks = append(db.hooks, hook)
}

// Initialized reports whether a load has completed.
func (db *DB) Initialized() bool {
	return db.index.Ready()
}

func (db *DB) Generation() uint64 {
	return db.index.Generation()
}

func (db *DB) Index() *indexer.Index {
	return db.index
}

// Load fetches the hierarchy and rebuilds the index and store. It does
// nothing when the DB is already initialised unless force is set.
func (db *DB) Load(ctx context.Context, force bool) (RebuildInfo, error) {
	db.loadMu.Lock()
	defer db.loadMu.Unlock()

	if db.Initialized() && !force {
		return RebuildInfo{Source: db.source.Name(), Generation: db.Generation(), Objects: db.store.Load().Len(), Skipped: true}, nil
	}

	start := time.Now()
	var info RebuildInfo
	err := resilience.WithTimeout(ctx, db.opts.BuildTimeout, "fabric rebuild", func(ctx context.Context) error {
		root, err := db.fetch(ctx)
		if err != nil {
			return err
		}
		records := fabric.Records(root)
		objects := store.Load(root)
		if err := ctx.Err(); err != nil {
			return err
		}
		db.store.Store(objects)
		db.index.Build(records)
		info = RebuildInfo{
			Source:     db.source.Name(),
			Generation: db.index.Generation(),
			Objects:    len(records),
		}
		return nil
	})
	if err != nil {
		if db.metrics != nil {
			db.metrics.IndexBuildsTotal.WithLabelValues("failure").Inc()
		}
		db.logger.Error("fabric rebuild failed", "error", err, "force", force)
		if errors.Is(err, context.DeadlineExceeded) {
			return RebuildInfo{}, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return RebuildInfo{}, err
	}
	info.Duration = time.Since(start)
	db.logger.Info("fabric rebuilt",
		"generation", info.Generation,
		"objects", info.Objects,
		"duration", info.Duration,
		"force", force,
	)

	db.hooksMu.RLock()
	hooks := make([]RebuildHook, len(db.hooks))
	copy(hooks, db.hooks)
	db.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, info)
	}
	return info, nil
}

func (db *DB) fetch(ctx context.Context) (*fabric.Object, error) {
	var root *fabric.Object
	cfg := db.opts.Retry
	if cfg.Retryable == nil {
		cfg.Retryable = func(err error) bool {
			return !errors.Is(err, apperrors.ErrInvalidSnapshot)
		}
	}
	err := resilience.Retry(ctx, "load "+db.source.Name(), cfg, func() error {
		var err error
		root, err = db.source.Load(ctx)
		return err
	})
	status := "success"
	if err != nil {
		status = "failure"
	}
	if db.metrics != nil {
		db.metrics.SourceLoadsTotal.WithLabelValues(db.source.Name(), status).Inc()
	}
	return root, err
}

// Search runs query against the current index and fills in the name and
// class of each hit.
func (db *DB) Search(ctx context.Context, query string) (*Results, error) {
	if !db.Initialized() {
		return nil, apperrors.ErrIndexNotReady
	}
	gen := db.Generation()
	res, err := db.executor.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(res.Results))
	for i, r := range res.Results {
		ids[i] = r.ID
	}
	short := db.store.Load().Short(ids)

	hits := make([]Hit, len(res.Results))
	for i, r := range res.Results {
		s := short[r.ID]
		hits[i] = Hit{RankedResult: r, Name: s.Name, Class: s.Class}
	}
	return &Results{
		Query:           res.Query,
		TotalCandidates: res.TotalCandidates,
		Hits:            hits,
		Terms:           res.Terms,
		Generation:      gen,
	}, nil
}

// Object returns the detailed view of the object at dn.
func (db *DB) Object(dn string) (*store.ObjectInfo, error) {
	if !db.Initialized() {
		return nil, apperrors.ErrIndexNotReady
	}
	return db.store.Load().Info(dn)
}

// Summary reports the size of the current hierarchy by class.
func (db *DB) Summary() map[string]int {
	return db.store.Load().Classes()
}
