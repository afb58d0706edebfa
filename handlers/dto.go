package handlers

import "time"

// SendNotificationRequest is the unary send DTO, grounded on the teacher's
// SendNotificationRequest binding-tag shape.
type SendNotificationRequest struct {
	UserID      string                 `json:"userId" binding:"required"`
	Type        string                 `json:"type" binding:"required,oneof=WELCOME PASSWORD_RESET EMAIL_VERIFICATION ORDER_CONFIRMATION ORDER_SHIPPED ORDER_DELIVERED PAYMENT_SUCCESS PAYMENT_FAILED"`
	Title       string                 `json:"title" binding:"required,max=200"`
	Message     string                 `json:"message" binding:"required"`
	Channel     string                 `json:"channel,omitempty" binding:"omitempty,oneof=EMAIL PUSH SMS"`
	Priority    string                 `json:"priority,omitempty" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ScheduledAt *time.Time             `json:"scheduledAt,omitempty"`
}

// SendNotificationResponse mirrors §4.8's unary response shape.
type SendNotificationResponse struct {
	Success        bool   `json:"success"`
	NotificationID string `json:"notificationId,omitempty"`
	Message        string `json:"message"`
}

// BulkNotificationRequest is the bulk-send DTO; the handler enforces the
// 1..10000 item bound (§4.8's admin ingress guard).
type BulkNotificationRequest struct {
	Notifications []SendNotificationRequest `json:"notifications" binding:"required"`
}

// BulkNotificationResponse mirrors §4.8's bulk response shape.
type BulkNotificationResponse struct {
	Success         bool     `json:"success"`
	NotificationIDs []string `json:"notificationIds"`
	SuccessCount    int      `json:"successCount"`
	FailureCount    int      `json:"failureCount"`
}

// UpdatePreferencesRequest is the admin preferences DTO.
type UpdatePreferencesRequest struct {
	Channel   string `json:"channel" binding:"required,oneof=EMAIL PUSH SMS"`
	IsEnabled bool   `json:"isEnabled"`
}

// DeviceTokenRequest is the device token registration DTO.
type DeviceTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required"`
}

// HealthCheckResponse mirrors §4.8's HealthCheck response shape.
type HealthCheckResponse struct {
	Status              string  `json:"status"`
	Timestamp           string  `json:"timestamp"`
	QueueDepth          int64   `json:"queueDepth"`
	ActiveWorkers       int64   `json:"activeWorkers"`
	ThroughputPerSecond float64 `json:"throughputPerSecond"`
}

// StreamRequest is one inbound message on SendNotificationStream.
type StreamRequest struct {
	RequestID   string                 `json:"requestId"`
	UserID      string                 `json:"userId"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Channel     string                 `json:"channel,omitempty"`
	Priority    string                 `json:"priority,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ScheduledAt *time.Time             `json:"scheduledAt,omitempty"`
}

// StreamResponse is one outbound message on SendNotificationStream,
// correlated to its request via RequestID.
type StreamResponse struct {
	RequestID      string `json:"requestId"`
	Success        bool   `json:"success"`
	NotificationID string `json:"notificationId,omitempty"`
	Message        string `json:"message"`
}
