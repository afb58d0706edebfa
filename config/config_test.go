package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("SERVER_PORT", "9999")
	os.Setenv("DEBUG", "true")
	os.Setenv("QUEUE_RETRY_BASE_DELAY", "2s")
	os.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DEBUG")
		os.Unsetenv("QUEUE_RETRY_BASE_DELAY")
		os.Unsetenv("KAFKA_BROKERS")
	}()

	cfg := Load()

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Second, cfg.Queue.RetryBaseDelay)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	os.Setenv("SERVER_PORT", "not-a-number")
	defer os.Unsetenv("SERVER_PORT")

	cfg := Load()

	assert.Equal(t, 8085, cfg.Server.Port)
}

func TestMustLoad_NeverFails(t *testing.T) {
	assert.NotPanics(t, func() {
		MustLoad()
	})
}
