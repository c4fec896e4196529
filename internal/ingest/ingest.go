// Package ingest drains package events from Kafka into the store and the
// search index, so bulk imports from crawlers bypass the HTTP path.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mfeineis/elm-advanced-package-search/internal/indexer"
	"github.com/mfeineis/elm-advanced-package-search/internal/store"
	"github.com/mfeineis/elm-advanced-package-search/pkg/metrics"
)

// PackageEvent is the Kafka message payload for one package upsert or
// delete.
type PackageEvent struct {
	Name        string    `json:"name"`
	Synopsis    string    `json:"synopsis"`
	Description string    `json:"description"`
	Stars       float64   `json:"stars"`
	Downloads   float64   `json:"downloads"`
	Deleted     bool      `json:"deleted"`
	EmittedAt   time.Time `json:"emitted_at"`
}

// Consumer applies package events from a Kafka topic through the indexer.
type Consumer struct {
	reader  *kafka.Reader
	index   *indexer.Indexer
	metrics *metrics.Metrics // nil when disabled
	logger  *slog.Logger
}

// New creates a Consumer reading from reader and writing through ix.
func New(reader *kafka.Reader, ix *indexer.Indexer, m *metrics.Metrics) *Consumer {
	return &Consumer{
		reader:  reader,
		index:   ix,
		metrics: m,
		logger:  slog.Default().With("component", "ingest-consumer"),
	}
}

// Start consumes until ctx is cancelled. Events that can never succeed —
// undecodable payloads, events without a package name — are committed and
// skipped so a poison message cannot wedge the partition. Events that fail
// to apply are left uncommitted and redelivered.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("ingest consumer starting")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("ingest consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		if err := c.apply(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("package event failed, leaving uncommitted for redelivery",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			c.outcome("failed")
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// apply decodes and indexes one event. Poison events return nil so the
// caller commits them; only transient write failures return an error.
func (c *Consumer) apply(ctx context.Context, key, value []byte) error {
	var event PackageEvent
	if err := json.Unmarshal(value, &event); err != nil {
		c.logger.Error("failed to decode package event",
			"error", err,
			"key", string(key),
		)
		c.outcome("undecodable")
		return nil
	}
	if event.Name == "" {
		c.logger.Error("package event without a name", "key", string(key))
		c.outcome("invalid")
		return nil
	}

	if event.Deleted {
		if _, err := c.index.Remove(ctx, event.Name); err != nil {
			return err
		}
		c.outcome("deleted")
		c.logger.Info("package removed via ingest", "package", event.Name)
		return nil
	}

	err := c.index.Upsert(ctx, store.Package{
		Name:        event.Name,
		Synopsis:    event.Synopsis,
		Description: event.Description,
		Stars:       event.Stars,
		Downloads:   event.Downloads,
	})
	if err != nil {
		return err
	}
	c.outcome("indexed")
	c.logger.Info("package indexed via ingest", "package", event.Name)
	return nil
}

func (c *Consumer) outcome(name string) {
	if c.metrics != nil {
		c.metrics.IngestEventsTotal.WithLabelValues(name).Inc()
	}
}
