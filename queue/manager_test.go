package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/5-VED/notification-dispatcher/config"
	"github.com/5-VED/notification-dispatcher/models"
)

func TestNewManager_BuildsOneQueuePerChannel(t *testing.T) {
	m := NewManager(nil, config.QueueConfig{})

	assert.Len(t, m.All(), 3)
	assert.NotNil(t, m.For(models.ChannelEmail))
	assert.NotNil(t, m.For(models.ChannelPush))
	assert.NotNil(t, m.For(models.ChannelSMS))
}

func TestFor_UnknownChannelReturnsNil(t *testing.T) {
	m := NewManager(nil, config.QueueConfig{})

	assert.Nil(t, m.For(models.Channel("UNKNOWN")))
}

func TestFor_ReturnsQueueScopedToItsChannel(t *testing.T) {
	m := NewManager(nil, config.QueueConfig{})

	assert.Equal(t, "sms", m.For(models.ChannelSMS).Channel())
}
