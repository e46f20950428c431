// Package consumer rebuilds the search index when the fabric changes. It
// listens on the fabric-changes topic and forces a reload for every event.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searchdb"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/kafka"
)

// FabricChangeEvent announces that the fabric hierarchy changed.
type FabricChangeEvent struct {
	Reason string    `json:"reason"`
	Force  bool      `json:"force"`
	At     time.Time `json:"at"`
}

// Loader is implemented by searchdb.DB.
type Loader interface {
	Load(ctx context.Context, force bool) (searchdb.RebuildInfo, error)
}

// RebuildFunc observes the outcome of each triggered rebuild.
type RebuildFunc func(event FabricChangeEvent, info searchdb.RebuildInfo, err error)

type RebuildConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *RebuildConsumer {
	return &RebuildConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "rebuild-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (rc *RebuildConsumer) Start(ctx context.Context) error {
	rc.logger.Info("rebuild consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage returns a handler that reloads db for each change event.
// Events older than the last successful rebuild are skipped unless they ask
// for a forced reload. A failed rebuild leaves the message uncommitted.
func HandleMessage(db Loader, observe RebuildFunc) kafka.MessageHandler {
	logger := slog.Default().With("component", "rebuild-consumer")
	var lastBuilt time.Time
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[FabricChangeEvent](value)
		if err != nil {
			logger.Error("failed to decode fabric change event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if !event.Force && !event.At.IsZero() && !lastBuilt.IsZero() && event.At.Before(lastBuilt) {
			logger.Debug("stale fabric change skipped", "reason", event.Reason, "at", event.At)
			return nil
		}

		started := time.Now()
		info, err := db.Load(ctx, true)
		if observe != nil {
			observe(event, info, err)
		}
		if err != nil {
			return fmt.Errorf("rebuilding after %q: %w", event.Reason, err)
		}
		lastBuilt = started
		logger.Info("index rebuilt on fabric change",
			"reason", event.Reason,
			"generation", info.Generation,
			"objects", info.Objects,
		)
		return nil
	}
}
