package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/pkg/models"
)

const (
	DefaultCatalogSyncTopic   = "catalog-sync"
	DefaultSnapshotBuiltTopic = "snapshot-built"
	dlqSuffix                 = "-dlq"
	maxRetries                = 3
)

// ErrPermanent marks a handler failure that no retry can fix. Such messages
// go straight to the dead-letter topic.
var ErrPermanent = errors.New("permanent failure")

// SyncMessage carries a full catalog and interaction payload. Each message
// replaces the active snapshot.
type SyncMessage struct {
	MessageID  uuid.UUID          `json:"message_id"`
	Payload    models.SyncRequest `json:"payload"`
	Timestamp  time.Time          `json:"timestamp"`
	RetryCount int                `json:"retry_count"`
}

// SnapshotEvent announces that a new snapshot is serving.
type SnapshotEvent struct {
	SnapshotVersion    string    `json:"snapshot_version"`
	Source             string    `json:"source"`
	ProductsLoaded     int       `json:"products_loaded"`
	UsersLoaded        int       `json:"users_loaded"`
	InteractionsLoaded int       `json:"interactions_loaded"`
	BuiltAt            time.Time `json:"built_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// MessageBus consumes sync payloads and publishes snapshot events.
type MessageBus struct {
	syncTopic      string
	eventTopic     string
	events         messageWriter
	consumer       messageReader
	dlqWriter      messageWriter
	retryBaseDelay time.Duration
	logger         *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("no Kafka brokers configured")
	}

	syncTopic := cfg.Kafka.Topics.CatalogSync
	if syncTopic == "" {
		syncTopic = DefaultCatalogSyncTopic
	}
	eventTopic := cfg.Kafka.Topics.SnapshotBuilt
	if eventTopic == "" {
		eventTopic = DefaultSnapshotBuiltTopic
	}

	events := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        eventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}

	// Sync payloads can hold a whole catalog
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          syncTopic,
		GroupID:        cfg.Kafka.GroupID,
		MinBytes:       1,
		MaxBytes:       50e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        syncTopic + dlqSuffix,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return newMessageBus(syncTopic, eventTopic, events, consumer, dlqWriter, logger), nil
}

func newMessageBus(syncTopic, eventTopic string, events messageWriter, consumer messageReader, dlq messageWriter, logger *logrus.Logger) *MessageBus {
	return &MessageBus{
		syncTopic:      syncTopic,
		eventTopic:     eventTopic,
		events:         events,
		consumer:       consumer,
		dlqWriter:      dlq,
		retryBaseDelay: time.Second,
		logger:         logger,
	}
}

// PublishSnapshotBuilt writes a snapshot event keyed by snapshot version.
func (mb *MessageBus) PublishSnapshotBuilt(ctx context.Context, event SnapshotEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.SnapshotVersion),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(event.Source)},
			{Key: "timestamp", Value: []byte(event.BuiltAt.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.events.WriteMessages(ctx, message); err != nil {
		mb.logger.WithError(err).WithField("snapshot_version", event.SnapshotVersion).Error("Failed to publish snapshot event")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"snapshot_version": event.SnapshotVersion,
		"topic":            mb.eventTopic,
	}).Info("Snapshot event published")

	return nil
}

// ConsumeSyncMessages applies every sync payload through handler until ctx is
// cancelled. Payloads that keep failing are moved to the dead-letter topic.
func (mb *MessageBus) ConsumeSyncMessages(ctx context.Context, handler func(context.Context, SyncMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		message, err := mb.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Error("Failed to read message from Kafka")
			continue
		}

		var syncMessage SyncMessage
		if err := json.Unmarshal(message.Value, &syncMessage); err != nil {
			mb.logger.WithError(err).Error("Failed to unmarshal sync message")
			continue
		}

		if err := mb.processWithRetry(ctx, syncMessage, handler); err != nil {
			mb.logger.WithError(err).WithField("message_id", syncMessage.MessageID).Error("Failed to process message after retries")

			if dlqErr := mb.sendToDLQ(ctx, syncMessage, err); dlqErr != nil {
				mb.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
			}
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, message SyncMessage, handler func(context.Context, SyncMessage) error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := mb.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"message_id": message.MessageID,
				"attempt":    attempt,
				"delay":      delay,
			}).Info("Retrying sync message")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		message.RetryCount = attempt
		if err := handler(ctx, message); err != nil {
			mb.logger.WithError(err).WithFields(logrus.Fields{
				"message_id": message.MessageID,
				"attempt":    attempt,
			}).Warn("Sync message processing failed")

			if errors.Is(err, ErrPermanent) {
				return err
			}
			if attempt == maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}

		mb.logger.WithFields(logrus.Fields{
			"message_id": message.MessageID,
			"attempt":    attempt,
		}).Info("Sync message applied")
		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, message SyncMessage, originalError error) error {
	dlqMessage := map[string]interface{}{
		"original_message": message,
		"error":            originalError.Error(),
		"dlq_timestamp":    time.Now(),
	}

	dlqBytes, err := json.Marshal(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	kafkaMessage := kafka.Message{
		Key:   []byte(message.MessageID.String()),
		Value: dlqBytes,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(message.MessageID.String())},
			{Key: "original_topic", Value: []byte(mb.syncTopic)},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}

	if err := mb.dlqWriter.WriteMessages(ctx, kafkaMessage); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"message_id": message.MessageID,
		"error":      originalError.Error(),
	}).Warn("Message sent to DLQ")

	return nil
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if err := mb.consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}

	if err := mb.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}

	return nil
}
