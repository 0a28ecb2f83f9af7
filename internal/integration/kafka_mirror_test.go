//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stream-listener/internal/adapter/kafka"
	"github.com/couchcryptid/weather-stream-listener/internal/adapter/sse"
	"github.com/couchcryptid/weather-stream-listener/internal/config"
	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
	"github.com/couchcryptid/weather-stream-listener/internal/stream"
	"github.com/couchcryptid/weather-stream-listener/internal/window"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testMirrorTopic = "test-mirror"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("stream-listener-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// sseServer streams the given lines once and then holds the connection open
// until the client goes away.
func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestKafkaMirror streams records from a live SSE endpoint through the hub and
// verifies the Kafka mirror carries them keyed by session with their headers.
func TestKafkaMirror(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testMirrorTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testMirrorTopic,
	}
	metrics := observability.NewMetricsForTesting()
	publisher := kafka.NewPublisher(cfg, discardLogger(), metrics)

	srv := sseServer(t,
		`{"type":"connected","message":"ok"}`,
		`{"type":"weather","temperature":30.2,"windspeed":11.5,"timestamp":1717230000}`,
		`not-json`,
	)

	hub := stream.NewHub(window.New(10), stream.HubConfig{
		Transport: sse.NewTransport(nil, discardLogger()),
		Mirror:    publisher,
		Logger:    discardLogger(),
		Metrics:   metrics,
	})
	sub, err := hub.Subscribe(srv.URL, "test")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(hub.Snapshot()) == 3 },
		10*time.Second, 20*time.Millisecond, "records should reach the window")
	hub.Close()
	require.NoError(t, publisher.Close())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testMirrorTopic,
		GroupID:     fmt.Sprintf("test-mirror-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	var got []domain.Record
	for len(got) < 3 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from mirror topic")

		assert.Equal(t, sub.SessionID, string(msg.Key))
		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		_, err = time.Parse(time.RFC3339Nano, headers["received_at"])
		assert.NoError(t, err, "received_at should be RFC3339")

		var rec domain.Record
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, string(rec.Payload.Kind), headers["payload_kind"])
		got = append(got, rec)
	}

	for i, rec := range got {
		assert.Equal(t, uint64(i+1), rec.Seq)
	}
	assert.Equal(t, "connected", got[0].Payload.Type())
	assert.Equal(t, "weather", got[1].Payload.Type())
	assert.Equal(t, domain.PayloadRaw, got[2].Payload.Kind)
	assert.Equal(t, "not-json", got[2].Payload.Value)
}
