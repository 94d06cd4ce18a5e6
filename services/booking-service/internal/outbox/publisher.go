package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/salonhub/scheduling/libs/db"
	"github.com/salonhub/scheduling/libs/kafkax"
	otelx "github.com/salonhub/scheduling/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	pool      *db.Pool
	repo      *Repository
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		pool:      pool,
		repo:      repo,
		logger:    logger,
		brokers:   kafkax.SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Run relays committed events to Kafka until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 || p.pool == nil {
		p.logger.Warn("outbox publisher disabled (needs kafka brokers and a database)")
		return
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := p.publishBatch(ctx, writer); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			} else if n > 0 {
				p.logger.Debug("outbox batch published", "count", n)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context, writer MessageWriter) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, Message(ctx, r))
		ids = append(ids, r.ID)
	}
	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	return len(records), tx.Commit(ctx)
}

// Message renders an outbox row as a Kafka message keyed by salon, so each
// salon's events stay ordered within one partition.
func Message(ctx context.Context, r Record) kafka.Message {
	msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType, SalonID: r.SalonID}
	key := r.SalonID
	if key == "" {
		key = r.AggregateID
	}
	return kafka.Message{
		Topic:   r.EventType,
		Key:     []byte(key),
		Value:   r.Payload,
		Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
	}
}
