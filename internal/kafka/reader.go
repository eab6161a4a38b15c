package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"payment-webhook-service/internal/message"
)

type Metrics struct {
	ReadErrorCounter      *metrics.Counter
	UnmarshalErrorCounter *metrics.Counter
	ProcessErrorCounter   *metrics.Counter
	SuccessCounter        *metrics.Counter
}

var replayDeliveryMetrics = Metrics{
	ReadErrorCounter:      metrics.GetOrCreateCounter(`kafka_reader_total{result="read_error",type="replay_delivery"}`),
	UnmarshalErrorCounter: metrics.GetOrCreateCounter(`kafka_reader_total{result="unmarshal_error",type="replay_delivery"}`),
	ProcessErrorCounter:   metrics.GetOrCreateCounter(`kafka_reader_total{result="process_error",type="replay_delivery"}`),
	SuccessCounter:        metrics.GetOrCreateCounter(`kafka_reader_total{result="success",type="replay_delivery"}`),
}

func NewReader(kafkaURL, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(kafkaURL, ","),
		GroupID: groupID,
		Topic:   topic,
	})
}

// MessageReader is the part of *kafka.Reader the consumers use.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// ReadReplayDeliveries feeds captured webhook deliveries to replay until ctx is
// done. A delivery that fails is counted and skipped.
func ReadReplayDeliveries(ctx context.Context, reader MessageReader, replay func(context.Context, message.ReplayDelivery) error, logger *slog.Logger) error {
	return readMessages(ctx, reader, logger, func(ctx context.Context, value []byte) error {
		var d message.ReplayDelivery
		if err := json.Unmarshal(value, &d); err != nil {
			logger.ErrorContext(ctx, "Error unmarshalling message", "error", err)
			replayDeliveryMetrics.UnmarshalErrorCounter.Inc()
			return errors.Wrap(err, "unmarshal replay delivery")
		}
		return replay(ctx, d)
	}, replayDeliveryMetrics)
}

func readMessages(ctx context.Context, reader MessageReader, logger *slog.Logger, process func(context.Context, []byte) error, kafkaMetrics Metrics) error {
	for {
		logger.DebugContext(ctx, "Waiting for messages from Kafka...")
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.InfoContext(ctx, "Context done, stopping reader")
				return nil
			}
			if errors.Is(err, io.EOF) {
				return errors.Wrap(err, "reader closed")
			}
			logger.ErrorContext(ctx, "Error reading message", "error", err)
			kafkaMetrics.ReadErrorCounter.Inc()
			continue
		}
		logger.InfoContext(ctx, "Received message", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset)

		if err := process(ctx, m.Value); err != nil {
			logger.ErrorContext(ctx, "Error processing message", "error", err, "offset", m.Offset)
			kafkaMetrics.ProcessErrorCounter.Inc()
			continue
		}
		kafkaMetrics.SuccessCounter.Inc()
	}
}
