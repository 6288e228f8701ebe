package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-lens-service/internal/config"
	"github.com/couchcryptid/weather-lens-service/internal/domain"
)

// AlertWriter publishes storm proximity alerts to a Kafka topic.
// It implements pipeline.Notifier.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// Notify serializes and publishes one alert. Alerts with the same key land
// on the same partition.
func (w *AlertWriter) Notify(ctx context.Context, alert domain.StormAlert) error {
	msg, err := serializeToMessage(alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish storm alert: %w", err)
	}
	w.logger.Debug("storm alert published", "key", alert.Key, "topic", w.writer.Topic)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StormAlert into a Kafka message.
func serializeToMessage(alert domain.StormAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize storm alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "storm_name", Value: []byte(alert.StormName)},
			{Key: "issued_at", Value: []byte(alert.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}

// ParseMessage decodes an alert previously written by AlertWriter.
func ParseMessage(msg kafkago.Message) (domain.StormAlert, error) {
	var alert domain.StormAlert
	if err := json.Unmarshal(msg.Value, &alert); err != nil {
		return domain.StormAlert{}, fmt.Errorf("parse storm alert at offset %d: %w", msg.Offset, err)
	}
	return alert, nil
}
