// Package kafka builds the segmentio/kafka-go readers and writers used by
// the ingest and stats pipelines. Consume loops live with the code that
// owns the messages; this package only translates service configuration
// into client settings.
package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mfeineis/elm-advanced-package-search/pkg/config"
)

// NewReader returns a consumer-group reader for topic.
func NewReader(cfg config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
}

// NewWriter returns a synchronous, hash-balanced writer for topic.
func NewWriter(cfg config.KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
}
