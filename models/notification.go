package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType is the semantic category of a notification.
type NotificationType string

const (
	NotificationTypeWelcome            NotificationType = "WELCOME"
	NotificationTypePasswordReset      NotificationType = "PASSWORD_RESET"
	NotificationTypeEmailVerification  NotificationType = "EMAIL_VERIFICATION"
	NotificationTypeOrderConfirmation  NotificationType = "ORDER_CONFIRMATION"
	NotificationTypeOrderShipped       NotificationType = "ORDER_SHIPPED"
	NotificationTypeOrderDelivered     NotificationType = "ORDER_DELIVERED"
	NotificationTypePaymentSuccess     NotificationType = "PAYMENT_SUCCESS"
	NotificationTypePaymentFailed      NotificationType = "PAYMENT_FAILED"
)

// IsValid reports whether t is one of the recognised enum values.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeWelcome, NotificationTypePasswordReset, NotificationTypeEmailVerification,
		NotificationTypeOrderConfirmation, NotificationTypeOrderShipped, NotificationTypeOrderDelivered,
		NotificationTypePaymentSuccess, NotificationTypePaymentFailed:
		return true
	default:
		return false
	}
}

// Channel is the delivery transport family.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPush  Channel = "PUSH"
	ChannelSMS   Channel = "SMS"
)

// IsValid reports whether c is a recognised channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelSMS:
		return true
	default:
		return false
	}
}

// Priority controls dequeue order. Higher values win.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// IsValid reports whether p is a recognised priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// PriorityWeight maps a Priority to its integer queue score. Higher wins.
func PriorityWeight(p Priority) int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 10
	case PriorityUrgent:
		return 20
	case PriorityNormal:
		return 5
	default:
		return 5
	}
}

// Status is the lifecycle state of a Notification.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
)

// MaxRetries bounds the number of retry attempts for a failed job.
const MaxRetries = 3

// Metadata is a free-form string-keyed map attached to a notification.
type Metadata map[string]interface{}

// Notification is the unit of work dispatched through the system.
type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string           `gorm:"column:user_id;index:idx_notifications_user_priority_created,priority:1;not null" json:"userId"`
	Type         NotificationType `gorm:"column:type;not null" json:"type"`
	Channel      Channel          `gorm:"column:channel;not null" json:"channel"`
	Title        string           `gorm:"column:title;not null" json:"title"`
	Body         string           `gorm:"column:body;not null" json:"message"`
	Metadata     Metadata         `gorm:"column:metadata;serializer:json" json:"metadata,omitempty"`
	Priority     Priority         `gorm:"column:priority;index:idx_notifications_user_priority_created,priority:2;not null" json:"priority"`
	ScheduledAt  *time.Time       `gorm:"column:scheduled_at;index:idx_notifications_scheduled_at" json:"scheduledAt,omitempty"`
	Status       Status           `gorm:"column:status;index:idx_notifications_status_created,priority:1;index:idx_notifications_status_retry_failed,priority:1" json:"status"`
	RetryCount   int              `gorm:"column:retry_count;index:idx_notifications_status_retry_failed,priority:2" json:"retryCount"`
	ErrorMessage string           `gorm:"column:error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time        `gorm:"column:created_at;index:idx_notifications_status_created,priority:2;index:idx_notifications_user_priority_created,priority:3" json:"createdAt"`
	UpdatedAt    time.Time        `gorm:"column:updated_at" json:"updatedAt"`
	SentAt       *time.Time       `gorm:"column:sent_at" json:"sentAt,omitempty"`
	FailedAt     *time.Time       `gorm:"column:failed_at;index:idx_notifications_status_retry_failed,priority:3" json:"failedAt,omitempty"`
}

// TableName pins the table name explicitly (NamingStrategy would derive the same).
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns an id and initial lifecycle fields when absent.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = StatusQueued
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	return nil
}

// CanRetry reports whether this notification is eligible for another attempt.
func (n *Notification) CanRetry() bool {
	return n.Status == StatusFailed && n.RetryCount < MaxRetries
}

// UserPreference records a per-(user, channel) opt-in/opt-out.
type UserPreference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_user_preferences_user_channel;index:idx_user_preferences_user_channel_lookup,priority:1" json:"userId"`
	Channel   Channel   `gorm:"column:channel;uniqueIndex:idx_user_preferences_user_channel;index:idx_user_preferences_user_channel_lookup,priority:2" json:"channel"`
	IsEnabled bool      `gorm:"column:is_enabled" json:"isEnabled"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (UserPreference) TableName() string { return "user_preferences" }

func (p *UserPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return nil
}

// DeviceToken is a per-(user, token) push registration.
type DeviceToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_device_tokens_user_token;index:idx_device_tokens_user_active,priority:1" json:"userId"`
	Token     string    `gorm:"column:token;uniqueIndex:idx_device_tokens_user_token" json:"token"`
	Platform  string    `gorm:"column:platform" json:"platform"`
	IsActive  bool      `gorm:"column:is_active;index:idx_device_tokens_user_active,priority:2" json:"isActive"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (DeviceToken) TableName() string { return "device_tokens" }

func (d *DeviceToken) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return nil
}

// NotificationTemplate is a stored (type, channel) content template.
type NotificationTemplate struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Type        NotificationType `gorm:"column:type;index:idx_templates_type_channel_active,priority:1" json:"type"`
	Channel     Channel          `gorm:"column:channel;index:idx_templates_type_channel_active,priority:2" json:"channel"`
	Title       string           `gorm:"column:title" json:"title"`
	Message     string           `gorm:"column:message" json:"message"`
	HTMLContent string           `gorm:"column:html_content" json:"htmlContent,omitempty"`
	IsActive    bool             `gorm:"column:is_active;index:idx_templates_type_channel_active,priority:3" json:"isActive"`
	CreatedAt   time.Time        `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"column:updated_at" json:"updatedAt"`
}

func (NotificationTemplate) TableName() string { return "notification_templates" }

func (t *NotificationTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	return nil
}

// RenderedContent is the output of substituting variables into a template.
type RenderedContent struct {
	Title       string
	Message     string
	HTMLContent string
}

// Render substitutes every literal {{name}} occurrence in Title, Message and
// HTMLContent with the string form of variables[name]. Unknown tokens are
// left in place and rendering never fails.
func (t *NotificationTemplate) Render(variables map[string]string) RenderedContent {
	title := t.Title
	message := t.Message
	html := t.HTMLContent

	for key, value := range variables {
		placeholder := "{{" + key + "}}"
		title = strings.ReplaceAll(title, placeholder, value)
		message = strings.ReplaceAll(message, placeholder, value)
		html = strings.ReplaceAll(html, placeholder, value)
	}

	return RenderedContent{Title: title, Message: message, HTMLContent: html}
}

// User is a read-only projection of the external system-of-record, queried
// by the Channel Resolver for EMAIL/SMS recipients.
type User struct {
	ID    string `gorm:"column:id;primaryKey" json:"id"`
	Email string `gorm:"column:email" json:"email"`
	Phone string `gorm:"column:phone" json:"phone"`
}

func (User) TableName() string { return "users" }
