package queue

import (
	"context"

	"github.com/5-VED/notification-dispatcher/config"
	"github.com/5-VED/notification-dispatcher/database"
	"github.com/5-VED/notification-dispatcher/models"
)

// Manager owns the three channel queues (email, push, sms).
type Manager struct {
	queues map[models.Channel]*Queue
}

// NewManager builds a Manager with one Queue per known channel.
func NewManager(redis *database.RedisDB, cfg config.QueueConfig) *Manager {
	return &Manager{
		queues: map[models.Channel]*Queue{
			models.ChannelEmail: New("email", redis, cfg),
			models.ChannelPush:  New("push", redis, cfg),
			models.ChannelSMS:   New("sms", redis, cfg),
		},
	}
}

// For returns the Queue serving the given channel, or nil if unknown.
func (m *Manager) For(channel models.Channel) *Queue {
	return m.queues[channel]
}

// All returns every managed queue, for worker-pool startup and metrics
// sampling.
func (m *Manager) All() map[models.Channel]*Queue {
	return m.queues
}

// Depths returns the current waiting+active depth per channel.
func (m *Manager) Depths(ctx context.Context) map[models.Channel]struct{ Waiting, Active int64 } {
	out := make(map[models.Channel]struct{ Waiting, Active int64 }, len(m.queues))
	for ch, q := range m.queues {
		waiting, _ := q.Waiting(ctx)
		active, _ := q.Active(ctx)
		out[ch] = struct{ Waiting, Active int64 }{waiting, active}
	}
	return out
}
