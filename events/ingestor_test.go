package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/models"
)

func newTestIngestor() *Ingestor {
	return New(nil, nil, zap.NewNop())
}

func TestDecode_ValidEnvelope(t *testing.T) {
	ig := newTestIngestor()

	e, err := ig.decode([]byte(`{"eventType":"USER_REGISTERED","userId":"u1","userName":"Ada"}`))

	assert.NoError(t, err)
	assert.Equal(t, "USER_REGISTERED", e.EventType)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "Ada", e.UserName)
}

func TestDecode_MalformedJSONFails(t *testing.T) {
	ig := newTestIngestor()
	_, err := ig.decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecode_MissingEventTypeFails(t *testing.T) {
	ig := newTestIngestor()
	_, err := ig.decode([]byte(`{"userId":"u1"}`))
	assert.Error(t, err)
}

func TestDecode_MissingUserIDFails(t *testing.T) {
	ig := newTestIngestor()
	_, err := ig.decode([]byte(`{"eventType":"USER_REGISTERED"}`))
	assert.Error(t, err)
}

func TestChannelPtr_ReturnsAddressableCopy(t *testing.T) {
	p := channelPtr(models.ChannelSMS)
	assert.Equal(t, models.ChannelSMS, *p)
}

func TestPriorityPtr_ReturnsAddressableCopy(t *testing.T) {
	p := priorityPtr(models.PriorityUrgent)
	assert.Equal(t, models.PriorityUrgent, *p)
}

func TestHandleUserEvents_UserUpdatedIsNoop(t *testing.T) {
	ig := newTestIngestor()
	err := ig.handleUserEvents(nil, []byte(`{"eventType":"USER_UPDATED","userId":"u1"}`))
	assert.NoError(t, err)
}

func TestHandleBulk_EmptyNotificationsIsSkippedNotAnError(t *testing.T) {
	ig := newTestIngestor()
	err := ig.handleBulk(nil, []byte(`{"batchId":"b1","bulkNotifications":[]}`))
	assert.NoError(t, err)
}

func TestHandleBulk_MalformedMessageIsSkippedNotAnError(t *testing.T) {
	ig := newTestIngestor()
	err := ig.handleBulk(nil, []byte(`not json`))
	assert.NoError(t, err)
}
