package stats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type Collector struct {
	writer  *kafka.Writer
	eventCh chan any
	logger  *slog.Logger
	done    chan struct{}
}

func NewCollector(writer *kafka.Writer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		writer:  writer,
		eventCh: make(chan any, bufferSize),
		logger:  slog.Default().With("component", "stats-collector"),
		done:    make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("stats collector started", "buffer_size", cap(c.eventCh))
}

// Track never blocks a handler; when the buffer is full the event is lost.
func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("stats event dropped (buffer full)")
	}
}

func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	value, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("failed to marshal stats event", "error", err)
		return
	}
	msg := kafka.Message{Key: []byte("stats"), Value: value}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		c.logger.Error("failed to publish stats event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
