package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searchdb"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/logger"
)

// SearchDB is implemented by searchdb.DB.
type SearchDB interface {
	Search(ctx context.Context, query string) (*searchdb.Results, error)
	Object(dn string) (*store.ObjectInfo, error)
	Load(ctx context.Context, force bool) (searchdb.RebuildInfo, error)
	Generation() uint64
	Initialized() bool
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	*searchdb.Results
	More      int   `json:"more"`
	CacheHit  bool  `json:"cache_hit"`
	LatencyMs int64 `json:"latency_ms"`
}

type Handler struct {
	db        SearchDB
	cache     *cache.QueryCache
	collector *analytics.Collector
	logger    *slog.Logger
}

// New returns a Handler. queryCache and collector may be nil.
func New(db SearchDB, queryCache *cache.QueryCache, collector *analytics.Collector) *Handler {
	return &Handler{
		db:        db,
		cache:     queryCache,
		collector: collector,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search?q=. A blank query yields an empty
// result; a missing q parameter is rejected.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	query := params.Get("q")

	var (
		result   *searchdb.Results
		err      error
		cacheHit bool
	)
	if h.cache != nil && h.db.Initialized() {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, h.db.Generation(), query, func() (*searchdb.Results, error) {
			return h.db.Search(ctx, query)
		})
	} else {
		result, err = h.db.Search(ctx, query)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", query,
		"candidates", result.TotalCandidates,
		"returned", len(result.Hits),
		"cache_hit", cacheHit,
		"latency", latency,
	)
	h.track(ctx, result, cacheHit, latency)

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Results:   result,
		More:      result.More(),
		CacheHit:  cacheHit,
		LatencyMs: latency.Milliseconds(),
	})
}

func (h *Handler) track(ctx context.Context, result *searchdb.Results, cacheHit bool, latency time.Duration) {
	if h.collector == nil {
		return
	}
	terms := make([]string, 0, len(result.Terms))
	for _, t := range result.Terms {
		terms = append(terms, t.Kind.String()+":"+t.Key)
	}
	var top int
	if len(result.Hits) > 0 {
		top = result.Hits[0].PrimaryScore
	}
	h.collector.Track(analytics.NewSearchEvent(analytics.SearchEvent{
		Query:           result.Query,
		Terms:           terms,
		TotalCandidates: result.TotalCandidates,
		Returned:        len(result.Hits),
		TopScore:        top,
		LatencyMs:       latency.Milliseconds(),
		CacheHit:        cacheHit,
		Generation:      result.Generation,
		RequestID:       logger.RequestID(ctx),
	}))
}

// Object answers GET /api/v1/objects?dn=.
func (h *Handler) Object(w http.ResponseWriter, r *http.Request) {
	dn := r.URL.Query().Get("dn")
	if dn == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'dn' is required"))
		return
	}
	info, err := h.db.Object(dn)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// Rebuild answers POST /api/v1/index/rebuild by forcing a reload.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "api"
	}
	info, err := h.db.Load(ctx, true)
	if h.collector != nil {
		ev := analytics.RebuildEvent{
			Source:     info.Source,
			Reason:     reason,
			Forced:     true,
			Generation: info.Generation,
			Objects:    info.Objects,
			DurationMs: info.Duration.Milliseconds(),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		h.collector.Track(analytics.NewRebuildEvent(ev))
	}
	if err != nil {
		logger.FromContext(ctx).Error("rebuild failed", "reason", reason, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
