package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"payment-webhook-service/internal/logcontext"
	"payment-webhook-service/internal/message"
)

const defaultPublishTimeout = 5 * time.Second

var (
	publisherPublishedCounter  = metrics.GetOrCreateCounter(`outcome_publisher_total{result="published"}`)
	publisherErrorCounter      = metrics.GetOrCreateCounter(`outcome_publisher_total{result="publish_failed"}`)

	publisherDurationHistogram = metrics.GetOrCreateHistogram(`outcome_publisher_duration_milliseconds`)
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes payment outcomes to the outcomes topic.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaPublisher(writer MessageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		timeout: defaultPublishTimeout,
		logger:  logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, outcome message.PaymentOutcome) error {
	startTime := time.Now()
	defer func() {
		publisherDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	msg, err := toKafkaMessage(outcome)
	if err != nil {
		publisherErrorCounter.Inc()
		return err
	}

	ctx = logcontext.AppendCtx(ctx, slog.String("messageKey", string(msg.Key)))
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.DebugContext(ctx, "Writing payment outcome to Kafka")
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publisherErrorCounter.Inc()
		return errors.Wrap(err, "write payment outcome")
	}

	publisherPublishedCounter.Inc()
	return nil
}

// toKafkaMessage keys by order id so outcomes for one order stay ordered.
func toKafkaMessage(outcome message.PaymentOutcome) (kafka.Message, error) {
	value, err := json.Marshal(outcome)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "marshal payment outcome")
	}

	key := outcome.OrderID
	if key == "" {
		key = outcome.PaymentReference
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: value,
	}, nil
}
