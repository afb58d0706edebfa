package handlers

import (
	"github.com/5-VED/notification-dispatcher/dispatcher"
	"github.com/5-VED/notification-dispatcher/models"
)

func toSendData(req SendNotificationRequest) dispatcher.SendNotificationData {
	data := dispatcher.SendNotificationData{
		UserID:      req.UserID,
		Type:        models.NotificationType(req.Type),
		Title:       req.Title,
		Message:     req.Message,
		ScheduledAt: req.ScheduledAt,
	}
	if req.Channel != "" {
		ch := models.Channel(req.Channel)
		data.Channel = &ch
	}
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		data.Priority = &p
	}
	if req.Metadata != nil {
		data.Metadata = models.Metadata(req.Metadata)
	}
	return data
}

func streamToSendData(req StreamRequest) dispatcher.SendNotificationData {
	return toSendData(SendNotificationRequest{
		UserID:      req.UserID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Channel:     req.Channel,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
		ScheduledAt: req.ScheduledAt,
	})
}
