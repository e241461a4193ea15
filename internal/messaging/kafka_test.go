package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/pkg/models"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

// queueReader hands out queued messages, then blocks until ctx is done.
type queueReader struct {
	messages chan kafka.Message
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *queueReader) Close() error { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func syncMessage(t *testing.T) (SyncMessage, kafka.Message) {
	msg := SyncMessage{
		MessageID: uuid.New(),
		Payload: models.SyncRequest{
			Products:     []models.Item{{ID: "demo-1", Name: "Demo"}},
			Interactions: []models.Interaction{{UserID: "u", ItemID: "demo-1", Action: "view"}},
		},
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(msg)
	require.NoError(t, err)
	return msg, kafka.Message{Value: value}
}

func TestNewMessageBus_RequiresBrokers(t *testing.T) {
	cfg := &config.Config{}
	_, err := NewMessageBus(cfg, testLogger())
	assert.Error(t, err)
}

func TestPublishSnapshotBuilt(t *testing.T) {
	events := &recordingWriter{}
	bus := newMessageBus(DefaultCatalogSyncTopic, DefaultSnapshotBuiltTopic, events, &queueReader{}, &recordingWriter{}, testLogger())

	event := SnapshotEvent{
		SnapshotVersion: "v1",
		Source:          "api",
		ProductsLoaded:  2,
		BuiltAt:         time.Now(),
	}
	require.NoError(t, bus.PublishSnapshotBuilt(context.Background(), event))

	require.Equal(t, 1, events.count())
	assert.Equal(t, []byte("v1"), events.messages[0].Key)

	var decoded SnapshotEvent
	require.NoError(t, json.Unmarshal(events.messages[0].Value, &decoded))
	assert.Equal(t, 2, decoded.ProductsLoaded)

	events.err = errors.New("broker down")
	assert.Error(t, bus.PublishSnapshotBuilt(context.Background(), event))
}

func TestConsumeSyncMessages(t *testing.T) {
	t.Run("applies payload", func(t *testing.T) {
		reader := &queueReader{messages: make(chan kafka.Message, 2)}
		dlq := &recordingWriter{}
		bus := newMessageBus(DefaultCatalogSyncTopic, DefaultSnapshotBuiltTopic, &recordingWriter{}, reader, dlq, testLogger())

		want, raw := syncMessage(t)
		reader.messages <- kafka.Message{Value: []byte("not json")}
		reader.messages <- raw

		ctx, cancel := context.WithCancel(context.Background())
		var got SyncMessage
		err := bus.ConsumeSyncMessages(ctx, func(ctx context.Context, m SyncMessage) error {
			got = m
			cancel()
			return nil
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, want.MessageID, got.MessageID)
		assert.Len(t, got.Payload.Products, 1)
		assert.Equal(t, 0, dlq.count())
	})

	t.Run("dead letters after retries", func(t *testing.T) {
		reader := &queueReader{messages: make(chan kafka.Message, 1)}
		dlq := &recordingWriter{}
		bus := newMessageBus(DefaultCatalogSyncTopic, DefaultSnapshotBuiltTopic, &recordingWriter{}, reader, dlq, testLogger())
		bus.retryBaseDelay = time.Millisecond

		_, raw := syncMessage(t)
		reader.messages <- raw

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		attempts := 0
		go func() {
			for dlq.count() == 0 && ctx.Err() == nil {
				time.Sleep(time.Millisecond)
			}
			cancel()
		}()

		_ = bus.ConsumeSyncMessages(ctx, func(ctx context.Context, m SyncMessage) error {
			attempts++
			return errors.New("connection reset")
		})

		assert.Equal(t, maxRetries+1, attempts)
		require.Equal(t, 1, dlq.count())
		assert.Equal(t, DefaultCatalogSyncTopic, string(dlq.messages[0].Headers[1].Value))
	})

	t.Run("permanent failure skips retries", func(t *testing.T) {
		reader := &queueReader{messages: make(chan kafka.Message, 1)}
		dlq := &recordingWriter{}
		bus := newMessageBus(DefaultCatalogSyncTopic, DefaultSnapshotBuiltTopic, &recordingWriter{}, reader, dlq, testLogger())
		bus.retryBaseDelay = time.Hour

		_, raw := syncMessage(t)
		reader.messages <- raw

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		go func() {
			for dlq.count() == 0 && ctx.Err() == nil {
				time.Sleep(time.Millisecond)
			}
			cancel()
		}()

		attempts := 0
		_ = bus.ConsumeSyncMessages(ctx, func(ctx context.Context, m SyncMessage) error {
			attempts++
			return fmt.Errorf("%w: duplicate product id demo-1", ErrPermanent)
		})

		assert.Equal(t, 1, attempts)
		require.Equal(t, 1, dlq.count())
		assert.Contains(t, string(dlq.messages[0].Headers[2].Value), "duplicate product id")
	})
}
