package events

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/config"
)

func TestNewKafkaClient_NoSASLConfigured(t *testing.T) {
	client, err := NewKafkaClient(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())

	require.NoError(t, err)
	assert.Nil(t, client.dialer.SASLMechanism)
}

func TestNewKafkaClient_PlainSASL(t *testing.T) {
	client, err := NewKafkaClient(config.KafkaConfig{
		Brokers: []string{"localhost:9092"}, SASLMechanism: "plain", SASLUsername: "u", SASLPassword: "p",
	}, zap.NewNop())

	require.NoError(t, err)
	_, ok := client.dialer.SASLMechanism.(plain.Mechanism)
	assert.True(t, ok)
}

func TestNewKafkaClient_ScramSHA256SASL(t *testing.T) {
	client, err := NewKafkaClient(config.KafkaConfig{
		Brokers: []string{"localhost:9092"}, SASLMechanism: "scram-sha-256", SASLUsername: "u", SASLPassword: "p",
	}, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, client.dialer.SASLMechanism)
	assert.Equal(t, scram.SHA256.Name(), client.dialer.SASLMechanism.Name())
}

func TestNewKafkaClient_TLSEnabled(t *testing.T) {
	client, err := NewKafkaClient(config.KafkaConfig{Brokers: []string{"localhost:9092"}, EnableTLS: true}, zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, client.dialer.TLS)
}

func TestHealthCheck_NoBrokersConfiguredFailsFast(t *testing.T) {
	client, err := NewKafkaClient(config.KafkaConfig{}, zap.NewNop())
	require.NoError(t, err)

	err = client.HealthCheck(context.Background())
	assert.Error(t, err)
}

func TestUnmarshalJSON_RoundTrips(t *testing.T) {
	var out map[string]string
	err := unmarshalJSON([]byte(`{"a":"b"}`), &out)

	require.NoError(t, err)
	assert.Equal(t, "b", out["a"])
}
