package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/salonhub/scheduling/libs/kafkax"
	"github.com/salonhub/scheduling/services/booking-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	inbox   inbox.Recorder
	handler Handler
	backoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, rec inbox.Recorder, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, rec, reader, handler)
}

func NewWithReader(logger *slog.Logger, rec inbox.Recorder, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   rec,
		handler: handler,
		backoff: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	logger := c.logger.With("event_id", meta.EventID, "event_type", meta.EventType)

	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return
	}
	if !ok {
		logger.Info("duplicate event ignored")
		return
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		logger.Error("handler error", "err", err)
		span.RecordError(err)
	}
}
