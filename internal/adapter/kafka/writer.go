package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/county-choropleth/internal/config"
	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/couchcryptid/county-choropleth/internal/render"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys attached to every produced message.
const (
	HeaderDay    = "day"
	HeaderDate   = "date"
	HeaderMetric = "metric"
)

// Writer produces snapshots and render payloads to Kafka.
// It implements pipeline.BatchLoader and render.Sink.
type Writer struct {
	writer        *kafkago.Writer
	snapshotTopic string
	renderTopic   string
	logger        *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot and render
// topics. The underlying writer has no default topic; each message names one.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{
		writer:        w,
		snapshotTopic: cfg.KafkaSnapshotTopic,
		renderTopic:   cfg.KafkaRenderTopic,
		logger:        logger,
	}
}

// LoadBatch serializes and publishes day snapshots as GeoJSON feature
// collections in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, snaps []domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snaps))
	for i := range snaps {
		msg, err := snapshotToMessage(w.snapshotTopic, snaps[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Push publishes one render payload to the render topic.
func (w *Writer) Push(ctx context.Context, p render.Payload) error {
	msg, err := payloadToMessage(w.renderTopic, p)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("push render payload: %w", err)
	}
	w.logger.Debug("render payload pushed", "day", p.Day, "metric", p.Metric.Key)
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// snapshotToMessage marshals a Snapshot into a Kafka message keyed by day.
func snapshotToMessage(topic string, snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot for day %d: %w", snap.Day, err)
	}
	day := strconv.Itoa(snap.Day)
	date := ""
	if !snap.Date.IsZero() {
		date = snap.Date.Format(domain.DateLayout)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(day),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderDay, Value: []byte(day)},
			{Key: HeaderDate, Value: []byte(date)},
		},
	}, nil
}

// payloadToMessage marshals a render Payload keyed by day and metric.
func payloadToMessage(topic string, p render.Payload) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize render payload: %w", err)
	}
	day := strconv.Itoa(p.Day)
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(p.Metric.Key + "/" + day),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderDay, Value: []byte(day)},
			{Key: HeaderDate, Value: []byte(p.Date)},
			{Key: HeaderMetric, Value: []byte(p.Metric.Key)},
		},
	}, nil
}
