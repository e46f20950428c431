// Package aggregator persists analytics snapshots in PostgreSQL so totals
// and history survive restarts of the analytics service.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS search_analytics_snapshots (
	id             BIGSERIAL PRIMARY KEY,
	total_searches BIGINT NOT NULL,
	zero_results   BIGINT NOT NULL,
	rebuilds       BIGINT NOT NULL,
	data           JSONB NOT NULL,
	captured_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// DB is the subset of postgres.Client the store needs.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Rows is satisfied by *sql.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type Store struct {
	db     DB
	logger *slog.Logger
}

func NewStore(db DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// FromClient adapts a postgres client to DB.
func FromClient(c *postgres.Client) DB {
	return clientDB{c}
}

type clientDB struct{ *postgres.Client }

func (c clientDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.Client.Query(ctx, query, args...)
}

// Init creates the snapshot table when it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics snapshot table: %w", err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding analytics snapshot: %w", err)
	}
	err = s.db.Exec(ctx,
		`INSERT INTO search_analytics_snapshots (total_searches, zero_results, rebuilds, data, captured_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		stats.TotalSearches, stats.ZeroResultCount, stats.Rebuilds, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_searches", stats.TotalSearches, "rebuilds", stats.Rebuilds)
	return nil
}

// LatestSnapshot returns the newest snapshot, or nil when none exist.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	snapshots, err := s.ListSnapshots(ctx, 1)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}
	return &snapshots[0], nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows that no
// longer decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	rows, err := s.db.Query(ctx,
		`SELECT data FROM search_analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing analytics snapshots: %w", err)
	}
	defer rows.Close()

	var out []analytics.AggregatedStats
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning analytics snapshot: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping undecodable snapshot", "error", err)
			continue
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// Run saves a snapshot of agg every interval and a final one when ctx is
// cancelled. It blocks until then.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic analytics snapshots started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.SaveSnapshot(final, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}
