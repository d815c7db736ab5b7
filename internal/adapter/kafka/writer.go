// Package kafka publishes aurora alerts to a Kafka topic so downstream
// consumers can fan them out.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
)

const eventType = "aurora_alert"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one alert message per notification.
// It implements notify.Channel.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Send publishes msg.Alert keyed by its calendar date.
func (w *Writer) Send(ctx context.Context, msg notify.Message) error {
	km, err := serializeToMessage(msg.Alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("publish aurora alert: %w", err)
	}
	w.logger.InfoContext(ctx, "aurora alert published", "key", string(km.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// alertEvent is the wire form of an alert.
type alertEvent struct {
	Date      string                  `json:"date"`
	Threshold float64                 `json:"threshold"`
	PeakKp    float64                 `json:"peak_kp"`
	PeakTime  time.Time               `json:"peak_time"`
	Samples   []domain.ForecastSample `json:"samples"`
	SentAt    time.Time               `json:"sent_at"`
}

// serializeToMessage marshals an Alert into a Kafka message.
func serializeToMessage(alert notify.Alert) (kafkago.Message, error) {
	date := alert.Date.String()
	samples := alert.Samples
	if samples == nil {
		samples = []domain.ForecastSample{}
	}
	data, err := json.Marshal(alertEvent{
		Date:      date,
		Threshold: alert.Threshold,
		PeakKp:    alert.Peak.Kp,
		PeakTime:  alert.Peak.Time.UTC(),
		Samples:   samples,
		SentAt:    alert.SentAt.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize aurora alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "sent_at", Value: []byte(alert.SentAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
