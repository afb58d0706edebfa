package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/5-VED/notification-dispatcher/models"
)

func TestTemplateCache_PutGet(t *testing.T) {
	c := New()
	key := Key{Type: models.NotificationTypeWelcome, Channel: models.ChannelEmail}
	tmpl := &models.NotificationTemplate{Title: "hi"}

	c.Put(key, tmpl)
	got, ok := c.Get(key)

	assert.True(t, ok)
	assert.Same(t, tmpl, got)
}

func TestTemplateCache_Miss(t *testing.T) {
	c := New()
	_, ok := c.Get(Key{Type: models.NotificationTypeWelcome, Channel: models.ChannelSMS})
	assert.False(t, ok)
}

func TestTemplateCache_EvictsOldestOverCapacity(t *testing.T) {
	c := NewWithOptions(2, time.Minute)

	k1 := Key{Type: "A", Channel: models.ChannelEmail}
	k2 := Key{Type: "B", Channel: models.ChannelEmail}
	k3 := Key{Type: "C", Channel: models.ChannelEmail}

	c.Put(k1, &models.NotificationTemplate{Title: "1"})
	c.Put(k2, &models.NotificationTemplate{Title: "2"})
	c.Put(k3, &models.NotificationTemplate{Title: "3"})

	_, ok := c.Get(k1)
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get(k2)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)

	assert.Equal(t, 2, c.Len())
}

func TestTemplateCache_ExpiresByTTL(t *testing.T) {
	c := NewWithOptions(10, time.Millisecond)
	key := Key{Type: "A", Channel: models.ChannelEmail}
	c.Put(key, &models.NotificationTemplate{Title: "1"})

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestTemplateCache_Invalidate(t *testing.T) {
	c := New()
	key := Key{Type: "A", Channel: models.ChannelEmail}
	c.Put(key, &models.NotificationTemplate{Title: "1"})

	c.Invalidate(key)

	_, ok := c.Get(key)
	assert.False(t, ok)
}
