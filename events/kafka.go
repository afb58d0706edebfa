// Package events implements the Event Ingestor (C7): topic subscription,
// demultiplexing by topic+eventType into Dispatcher calls, and the bulk
// topic's sub-batch fan-out, grounded on the teacher's
// shared/messaging/kafka.go KafkaClient.
package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/config"
)

// Topic names (§4.7).
const (
	TopicUserEvents       = "user.events"
	TopicAuthEvents       = "auth.events"
	TopicOrderEvents      = "order.events"
	TopicPaymentEvents    = "payment.events"
	TopicNotificationBulk = "notification.bulk"
)

// consumerSubBatch is the Ingestor's own re-chunk size for the bulk topic,
// independent of whatever chunk size a producer used (§9).
const consumerSubBatch = 100

// KafkaClient wraps a set of topic readers and a shared dialer, mirroring
// the teacher's KafkaClient but narrowed to the consumer side this
// service needs.
type KafkaClient struct {
	cfg     config.KafkaConfig
	dialer  *kafka.Dialer
	readers map[string]*kafka.Reader
	logger  *zap.Logger
}

// NewKafkaClient builds a KafkaClient from the dispatcher's Kafka config.
func NewKafkaClient(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaClient, error) {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	if cfg.SASLUsername != "" && cfg.SASLPassword != "" {
		switch cfg.SASLMechanism {
		case "plain":
			dialer.SASLMechanism = plain.Mechanism{Username: cfg.SASLUsername, Password: cfg.SASLPassword}
		case "scram-sha-256":
			mech, err := scram.Mechanism(scram.SHA256, cfg.SASLUsername, cfg.SASLPassword)
			if err != nil {
				return nil, fmt.Errorf("build scram-sha-256 mechanism: %w", err)
			}
			dialer.SASLMechanism = mech
		case "scram-sha-512":
			mech, err := scram.Mechanism(scram.SHA512, cfg.SASLUsername, cfg.SASLPassword)
			if err != nil {
				return nil, fmt.Errorf("build scram-sha-512 mechanism: %w", err)
			}
			dialer.SASLMechanism = mech
		}
	}

	if cfg.EnableTLS {
		dialer.TLS = &tls.Config{}
	}

	return &KafkaClient{
		cfg:     cfg,
		dialer:  dialer,
		readers: make(map[string]*kafka.Reader),
		logger:  logger,
	}, nil
}

func (k *KafkaClient) reader(topic string) *kafka.Reader {
	if r, ok := k.readers[topic]; ok {
		return r
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         k.cfg.Brokers,
		Topic:           topic,
		GroupID:         k.cfg.ConsumerGroup,
		MinBytes:        k.cfg.MinBytes,
		MaxBytes:        k.cfg.MaxBytesPerFetch,
		MaxWait:         k.cfg.MaxWait,
		Dialer:          k.dialer,
		ReadBackoffMin:  k.cfg.RetryBackoff,
		SessionTimeout:  k.cfg.SessionTimeout,
		HeartbeatInterval: k.cfg.HeartbeatInterval,
	})
	k.readers[topic] = r
	return r
}

// Consume reads topic in a loop, invoking handler per message, until ctx
// is cancelled. A handler error is logged but never aborts consumption of
// later messages or other partitions (§4.7).
func (k *KafkaClient) Consume(ctx context.Context, topic string, handler func(context.Context, []byte) error) error {
	r := k.reader(topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.logger.Warn("kafka read failed", zap.String("topic", topic), zap.Error(err))
			continue
		}

		if len(msg.Value) == 0 {
			k.logger.Warn("skipping empty message", zap.String("topic", topic))
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			k.logger.Warn("event handler failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// Close closes every reader opened by this client.
func (k *KafkaClient) Close() error {
	for topic, r := range k.readers {
		if err := r.Close(); err != nil {
			k.logger.Warn("error closing reader", zap.String("topic", topic), zap.Error(err))
		}
	}
	return nil
}

// HealthCheck dials the first broker.
func (k *KafkaClient) HealthCheck(ctx context.Context) error {
	if len(k.cfg.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := k.dialer.DialContext(ctx, "tcp", k.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	defer conn.Close()
	return nil
}

func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
