//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/county-choropleth/internal/adapter/kafka"
	"github.com/couchcryptid/county-choropleth/internal/config"
	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/couchcryptid/county-choropleth/internal/observability"
	"github.com/couchcryptid/county-choropleth/internal/pipeline"
	"github.com/couchcryptid/county-choropleth/internal/render"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSnapshotTopic = "test-snapshots"
	testRenderTopic   = "test-renders"
)

// receivedMessage holds a message read back from a topic.
type receivedMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readMessage(ctx context.Context, t *testing.T, consumer *kafkago.Reader) receivedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return receivedMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-%s-%d", topic, time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func testBuilder(t *testing.T) *domain.SnapshotBuilder {
	t.Helper()
	start := time.Date(2020, time.March, 22, 0, 0, 0, 0, time.UTC)
	geoms := []domain.CountyGeometry{
		{FIPS: 13121, Name: "Fulton", Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
		{FIPS: 13067, Name: "Cobb", Geometry: orb.Polygon{{{1, 0}, {2, 0}, {2, 1}, {1, 0}}}},
	}
	var series []domain.DailyMetric
	for day := 19; day <= 25; day++ {
		series = append(series, domain.DailyMetric{
			FIPS: 13121, County: "Fulton", Day: day, Date: start.AddDate(0, 0, day-19),
			Values: map[string]float64{"Confirmed": float64(day * 10)},
		})
	}
	b, err := domain.NewSnapshotBuilder(geoms, series)
	require.NoError(t, err)
	return b
}

// TestPublisherEndToEnd publishes every day's snapshot through a real broker
// and verifies keys, headers and GeoJSON bodies.
func TestPublisherEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)
	createTopic(t, broker, testRenderTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
		KafkaRenderTopic:   testRenderTopic,
	}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(testBuilder(t), writer, discardLogger(), metrics, 3)
	require.NoError(t, p.Run(ctx))
	require.True(t, p.Ready())

	consumer := newConsumer(t, broker, testSnapshotTopic)
	for day := 19; day <= 25; day++ {
		msg := readMessage(ctx, t, consumer)
		assert.Equal(t, fmt.Sprint(day), msg.Key)
		assert.Equal(t, fmt.Sprint(day), msg.Headers[kafka.HeaderDay])
		assert.Equal(t, time.Date(2020, time.March, 22+day-19, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout), msg.Headers[kafka.HeaderDate])

		fc, err := geojson.UnmarshalFeatureCollection(msg.Value)
		require.NoError(t, err)
		require.Len(t, fc.Features, 2, "left join keeps every county")
		assert.InDelta(t, float64(day*10), fc.Features[0].Properties["Confirmed"], 0)
		assert.InDelta(t, 0.0, fc.Features[1].Properties["Confirmed"], 0)
	}
}

// TestSessionPushesRenders routes session events to the render topic.
func TestSessionPushesRenders(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRenderTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
		KafkaRenderTopic:   testRenderTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	renderer := render.NewRenderer(domain.DefaultCatalog(), testBuilder(t), render.Options{SliderStart: -1})
	session, err := render.NewSession(renderer, writer, renderer.MostRecentDay(), "Confirmed")
	require.NoError(t, err)

	_, err = session.OnDayChanged(ctx, 20)
	require.NoError(t, err)
	_, err = session.OnMetricChanged(ctx, "Number of Confirmed Coronavirus Deaths")
	require.NoError(t, err)

	consumer := newConsumer(t, broker, testRenderTopic)

	first := readMessage(ctx, t, consumer)
	assert.Equal(t, "Confirmed/20", first.Key)
	assert.Equal(t, "Confirmed", first.Headers[kafka.HeaderMetric])
	assert.Equal(t, "2020-03-23", first.Headers[kafka.HeaderDate])

	second := readMessage(ctx, t, consumer)
	assert.Equal(t, "Deaths/20", second.Key)
	assert.Equal(t, "20", second.Headers[kafka.HeaderDay])
}
