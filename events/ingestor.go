package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/dispatcher"
	"github.com/5-VED/notification-dispatcher/models"
)

// envelope is the generic shape of a message on user.events, auth.events,
// order.events and payment.events (§4.7's demultiplex table).
type envelope struct {
	EventType      string                 `json:"eventType"`
	UserID         string                 `json:"userId"`
	UserName       string                 `json:"userName"`
	OrderID        string                 `json:"orderId"`
	TrackingNumber string                 `json:"trackingNumber"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// bulkEnvelope is the shape of a message on notification.bulk.
type bulkEnvelope struct {
	BatchID            string                     `json:"batchId"`
	TotalNotifications int                         `json:"totalNotifications"`
	ChunkIndex         int                         `json:"chunkIndex"`
	TotalChunks        int                         `json:"totalChunks"`
	BulkNotifications  []bulkNotificationEnvelope `json:"bulkNotifications"`
}

type bulkNotificationEnvelope struct {
	UserID   string                 `json:"userId"`
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Channel  string                 `json:"channel"`
	Priority string                 `json:"priority"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Ingestor wires KafkaClient topic consumption to the Dispatcher, per §4.7.
type Ingestor struct {
	client     *KafkaClient
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

// New builds an Ingestor.
func New(client *KafkaClient, d *dispatcher.Dispatcher, logger *zap.Logger) *Ingestor {
	return &Ingestor{client: client, dispatcher: d, logger: logger}
}

// Run starts one consumer goroutine per subscribed topic and blocks until
// ctx is cancelled.
func (ig *Ingestor) Run(ctx context.Context) {
	topics := []struct {
		name    string
		handler func(context.Context, []byte) error
	}{
		{TopicUserEvents, ig.handleUserEvents},
		{TopicAuthEvents, ig.handleAuthEvents},
		{TopicOrderEvents, ig.handleOrderEvents},
		{TopicPaymentEvents, ig.handlePaymentEvents},
		{TopicNotificationBulk, ig.handleBulk},
	}

	var wg sync.WaitGroup
	for _, t := range topics {
		wg.Add(1)
		go func(topic string, handler func(context.Context, []byte) error) {
			defer wg.Done()
			if err := ig.client.Consume(ctx, topic, handler); err != nil && ctx.Err() == nil {
				ig.logger.Warn("consumer loop exited", zap.String("topic", topic), zap.Error(err))
			}
		}(t.name, t.handler)
	}
	wg.Wait()
}

func (ig *Ingestor) decode(raw []byte) (envelope, error) {
	var e envelope
	if err := unmarshalJSON(raw, &e); err != nil {
		return envelope{}, fmt.Errorf("malformed event: %w", err)
	}
	if e.EventType == "" || e.UserID == "" {
		return envelope{}, fmt.Errorf("empty or malformed event")
	}
	return e, nil
}

func (ig *Ingestor) dispatchOne(ctx context.Context, userID string, typ models.NotificationType, title, message string, channel *models.Channel, priority *models.Priority, metadata map[string]interface{}) {
	data := dispatcher.SendNotificationData{
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Channel:  channel,
		Priority: priority,
		Metadata: models.Metadata(metadata),
	}
	if _, err := ig.dispatcher.Dispatch(ctx, data); err != nil {
		ig.logger.Warn("event dispatch failed", zap.String("userId", userID), zap.String("type", string(typ)), zap.Error(err))
	}
}

func channelPtr(c models.Channel) *models.Channel { return &c }
func priorityPtr(p models.Priority) *models.Priority { return &p }

func (ig *Ingestor) handleUserEvents(ctx context.Context, raw []byte) error {
	e, err := ig.decode(raw)
	if err != nil {
		ig.logger.Warn("skipping malformed user event", zap.Error(err))
		return nil
	}

	switch e.EventType {
	case "USER_REGISTERED":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypeWelcome,
			"Welcome!", fmt.Sprintf("Welcome, %s!", e.UserName),
			channelPtr(models.ChannelEmail), nil, e.Metadata)
	case "USER_UPDATED":
		// no-op, per §4.7's demultiplex table.
	default:
		ig.logger.Debug("unhandled user.events eventType", zap.String("eventType", e.EventType))
	}
	return nil
}

func (ig *Ingestor) handleAuthEvents(ctx context.Context, raw []byte) error {
	e, err := ig.decode(raw)
	if err != nil {
		ig.logger.Warn("skipping malformed auth event", zap.Error(err))
		return nil
	}

	switch e.EventType {
	case "PASSWORD_RESET_REQUESTED":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypePasswordReset,
			"Password reset requested", "A password reset was requested for your account.",
			channelPtr(models.ChannelEmail), priorityPtr(models.PriorityHigh), e.Metadata)
	case "EMAIL_VERIFICATION_REQUESTED":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypeEmailVerification,
			"Verify your email", "Please verify your email address.",
			channelPtr(models.ChannelEmail), nil, e.Metadata)
	default:
		ig.logger.Debug("unhandled auth.events eventType", zap.String("eventType", e.EventType))
	}
	return nil
}

func (ig *Ingestor) handleOrderEvents(ctx context.Context, raw []byte) error {
	e, err := ig.decode(raw)
	if err != nil {
		ig.logger.Warn("skipping malformed order event", zap.Error(err))
		return nil
	}

	metadata := map[string]interface{}{}
	for k, v := range e.Metadata {
		metadata[k] = v
	}
	if e.OrderID != "" {
		metadata["orderId"] = e.OrderID
	}

	switch e.EventType {
	case "ORDER_CREATED":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypeOrderConfirmation,
			"Order confirmed", "Your order has been confirmed.",
			channelPtr(models.ChannelEmail), nil, metadata)
	case "ORDER_SHIPPED":
		if e.TrackingNumber != "" {
			metadata["trackingNumber"] = e.TrackingNumber
		}
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypeOrderShipped,
			"Order shipped", "Your order is on its way.",
			channelPtr(models.ChannelPush), nil, metadata)
	case "ORDER_DELIVERED":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypeOrderDelivered,
			"Order delivered", "Your order has been delivered.",
			channelPtr(models.ChannelPush), nil, metadata)
	default:
		ig.logger.Debug("unhandled order.events eventType", zap.String("eventType", e.EventType))
	}
	return nil
}

func (ig *Ingestor) handlePaymentEvents(ctx context.Context, raw []byte) error {
	e, err := ig.decode(raw)
	if err != nil {
		ig.logger.Warn("skipping malformed payment event", zap.Error(err))
		return nil
	}

	switch e.EventType {
	case "PAYMENT_SUCCESS":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypePaymentSuccess,
			"Payment received", "Your payment was processed successfully.",
			channelPtr(models.ChannelEmail), nil, e.Metadata)
	case "PAYMENT_FAILED":
		ig.dispatchOne(ctx, e.UserID, models.NotificationTypePaymentFailed,
			"Payment failed", "Your payment could not be processed.",
			channelPtr(models.ChannelEmail), priorityPtr(models.PriorityHigh), e.Metadata)
	default:
		ig.logger.Debug("unhandled payment.events eventType", zap.String("eventType", e.EventType))
	}
	return nil
}

// handleBulk partitions the embedded notification list into sub-batches of
// consumerSubBatch and dispatches each sub-batch concurrently; per-item
// failures never abort the batch (§4.7, §9).
func (ig *Ingestor) handleBulk(ctx context.Context, raw []byte) error {
	var b bulkEnvelope
	if err := unmarshalJSON(raw, &b); err != nil {
		ig.logger.Warn("skipping malformed bulk message", zap.Error(err))
		return nil
	}
	if len(b.BulkNotifications) == 0 {
		ig.logger.Warn("skipping empty bulk message", zap.String("batchId", b.BatchID))
		return nil
	}

	start := time.Now()
	var success, failure int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < len(b.BulkNotifications); i += consumerSubBatch {
		end := i + consumerSubBatch
		if end > len(b.BulkNotifications) {
			end = len(b.BulkNotifications)
		}
		subBatch := b.BulkNotifications[i:end]

		wg.Add(1)
		go func(items []bulkNotificationEnvelope) {
			defer wg.Done()
			var localSuccess, localFailure int64
			for _, item := range items {
				data := dispatcher.SendNotificationData{
					UserID:   item.UserID,
					Type:     models.NotificationType(item.Type),
					Title:    item.Title,
					Message:  item.Message,
					Metadata: models.Metadata(item.Metadata),
				}
				if item.Channel != "" {
					ch := models.Channel(item.Channel)
					data.Channel = &ch
				}
				if item.Priority != "" {
					p := models.Priority(item.Priority)
					data.Priority = &p
				}
				if _, err := ig.dispatcher.Dispatch(ctx, data); err != nil {
					localFailure++
					continue
				}
				localSuccess++
			}
			mu.Lock()
			success += localSuccess
			failure += localFailure
			mu.Unlock()
		}(subBatch)
	}

	wg.Wait()

	ig.logger.Info("bulk ingest complete",
		zap.String("batchId", b.BatchID),
		zap.Int("totalNotifications", len(b.BulkNotifications)),
		zap.Int64("success", success),
		zap.Int64("failure", failure),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
