package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/5-VED/notification-dispatcher/models"
)

func TestToSendData_PinsChannelAndPriorityWhenProvided(t *testing.T) {
	req := SendNotificationRequest{
		UserID:   "u1",
		Type:     "WELCOME",
		Title:    "hi",
		Message:  "hi",
		Channel:  "SMS",
		Priority: "URGENT",
	}

	data := toSendData(req)

	assert.Equal(t, models.NotificationTypeWelcome, data.Type)
	assert.Equal(t, models.ChannelSMS, *data.Channel)
	assert.Equal(t, models.PriorityUrgent, *data.Priority)
}

func TestToSendData_LeavesChannelAndPriorityNilWhenUnset(t *testing.T) {
	req := SendNotificationRequest{UserID: "u1", Type: "WELCOME", Title: "hi", Message: "hi"}

	data := toSendData(req)

	assert.Nil(t, data.Channel)
	assert.Nil(t, data.Priority)
}

func TestStreamToSendData_MapsStreamFieldsThrough(t *testing.T) {
	req := StreamRequest{RequestID: "r1", UserID: "u1", Type: "WELCOME", Title: "hi", Message: "hi", Channel: "EMAIL"}

	data := streamToSendData(req)

	assert.Equal(t, "u1", data.UserID)
	assert.Equal(t, models.ChannelEmail, *data.Channel)
}
