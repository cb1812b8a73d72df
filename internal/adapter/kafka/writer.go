// Package kafka mirrors accepted hazard reports onto a Kafka topic for
// downstream consumers. The mirror is optional and best effort: the
// hosted backend stays the source of truth.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/seamark/hazard-relay/internal/config"
	"github.com/seamark/hazard-relay/internal/remote"
)

// Writer produces accepted-report messages to the mirror topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured mirror topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaMirrorTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one accepted report row to the mirror topic.
func (w *Writer) Publish(ctx context.Context, row remote.Row) error {
	msg, err := serializeToMessage(row)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an accepted row into a Kafka message,
// keyed by owner so one reporter's stream stays ordered.
func serializeToMessage(row remote.Row) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.OwnerID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(row.Type)},
			{Key: "severity", Value: []byte(strconv.Itoa(row.Severity))},
		},
	}, nil
}
