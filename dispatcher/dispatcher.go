// Package dispatcher implements the Dispatcher (C6): the entry point
// invoked by every ingress path (event ingestor, request surface, admin),
// translating a send request into a persisted Notification plus one
// queued job per target channel.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/apperrors"
	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/queue"
	"github.com/5-VED/notification-dispatcher/repositories"
	"github.com/5-VED/notification-dispatcher/resolver"
)

// maxTitleLen bounds Notification.Title per §4.6.
const maxTitleLen = 200

// defaultChannels is the type→default-channel-set mapping applied when a
// request does not pin a channel.
var defaultChannels = map[models.NotificationType][]models.Channel{
	models.NotificationTypeWelcome:           {models.ChannelEmail},
	models.NotificationTypeOrderConfirmation: {models.ChannelEmail, models.ChannelPush},
	models.NotificationTypeOrderShipped:      {models.ChannelPush, models.ChannelSMS},
	models.NotificationTypeOrderDelivered:    {models.ChannelPush},
	models.NotificationTypePaymentSuccess:    {models.ChannelEmail},
	models.NotificationTypePaymentFailed:     {models.ChannelEmail, models.ChannelPush},
	models.NotificationTypePasswordReset:     {models.ChannelEmail},
	models.NotificationTypeEmailVerification: {models.ChannelEmail},
}

// SendNotificationData is the Dispatcher's unified input shape, shared by
// the event ingestor, request surface and admin/retry paths.
type SendNotificationData struct {
	UserID      string
	Type        models.NotificationType
	Title       string
	Message     string
	Channel     *models.Channel
	Priority    *models.Priority
	Metadata    models.Metadata
	ScheduledAt *time.Time
}

// Result is returned to every ingress path on a successful dispatch.
type Result struct {
	Notification *models.Notification
	Channels     []models.Channel
}

// Dispatcher is the C6 entry point.
type Dispatcher struct {
	notifRepo repositories.NotificationRepository
	resolver  resolver.Resolver
	queues    *queue.Manager
	logger    *zap.Logger
}

// New builds a Dispatcher.
func New(notifRepo repositories.NotificationRepository, res resolver.Resolver, queues *queue.Manager, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{notifRepo: notifRepo, resolver: res, queues: queues, logger: logger}
}

// Validate enforces §4.6's required-field and size constraints, returning
// an INVALID_ARGUMENT DispatchError on failure.
func Validate(data SendNotificationData) error {
	if data.UserID == "" {
		return apperrors.New(apperrors.InvalidArgument, "userId is required", false)
	}
	if data.Type == "" {
		return apperrors.New(apperrors.InvalidArgument, "type is required", false)
	}
	if data.Title == "" {
		return apperrors.New(apperrors.InvalidArgument, "title is required", false)
	}
	if len(data.Title) > maxTitleLen {
		return apperrors.New(apperrors.InvalidArgument, fmt.Sprintf("title must be at most %d characters", maxTitleLen), false)
	}
	if data.Message == "" {
		return apperrors.New(apperrors.InvalidArgument, "message is required", false)
	}
	if data.Channel != nil && !data.Channel.IsValid() {
		return apperrors.New(apperrors.InvalidArgument, "channel is not a recognised value", false)
	}
	if data.Priority != nil && !data.Priority.IsValid() {
		return apperrors.New(apperrors.InvalidArgument, "priority is not a recognised value", false)
	}
	if data.ScheduledAt != nil && data.ScheduledAt.Before(time.Now().Add(-time.Minute)) {
		return apperrors.New(apperrors.InvalidArgument, "scheduledAt must not be far in the past", false)
	}
	return nil
}

// Dispatch runs the full §4.6 procedure: persist, resolve target channels
// by preference and type policy, enqueue one job per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, data SendNotificationData) (*Result, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	channel := models.ChannelEmail
	if data.Channel != nil {
		channel = *data.Channel
	}
	priority := models.PriorityNormal
	if data.Priority != nil {
		priority = *data.Priority
	}

	notification := &models.Notification{
		UserID:      data.UserID,
		Type:        data.Type,
		Channel:     channel,
		Title:       data.Title,
		Body:        data.Message,
		Metadata:    data.Metadata,
		Priority:    priority,
		ScheduledAt: data.ScheduledAt,
		Status:      models.StatusQueued,
	}

	if err := d.notifRepo.Create(ctx, notification); err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable, "failed to persist notification", false, err)
	}

	targets := d.resolveTargetChannels(ctx, data, channel)

	for _, ch := range targets {
		delayUntil := time.Now().UTC()
		if data.ScheduledAt != nil && data.ScheduledAt.After(delayUntil) {
			delayUntil = *data.ScheduledAt
		}

		job := &queue.Job{
			NotificationID: notification.ID,
			UserID:         data.UserID,
			Type:           data.Type,
			Title:          data.Title,
			Message:        data.Message,
			Metadata:       data.Metadata,
			Priority:       models.PriorityWeight(priority),
			DelayUntil:     delayUntil,
		}

		q := d.queues.For(ch)
		if q == nil {
			continue
		}
		if err := q.Enqueue(ctx, job); err != nil {
			d.logger.Error("enqueue failed, notification row left QUEUED",
				zap.String("notificationId", notification.ID.String()),
				zap.String("channel", string(ch)),
				zap.Error(err),
			)
			// If enqueue fails after create, the Notification row stays
			// QUEUED and is not rolled back; the failure is surfaced to the
			// caller. RetryFailed selects FAILED rows only, so it does not
			// pick this row up.
			return &Result{Notification: notification, Channels: targets}, apperrors.Wrap(apperrors.QueueUnavailable, "failed to enqueue job", true, err)
		}
	}

	return &Result{Notification: notification, Channels: targets}, nil
}

// resolveTargetChannels applies step 3 of §4.6: a pinned channel short-
// circuits to {channel}; otherwise the type→default-channels mapping is
// intersected with the user's enabled channels, unless the user has no
// preference rows at all (treated as all-enabled, per Design Note §9).
func (d *Dispatcher) resolveTargetChannels(ctx context.Context, data SendNotificationData, pinned models.Channel) []models.Channel {
	if data.Channel != nil {
		return []models.Channel{*data.Channel}
	}

	candidates, ok := defaultChannels[data.Type]
	if !ok {
		candidates = []models.Channel{models.ChannelEmail}
	}

	prefs := d.resolver.GetPreferences(ctx, data.UserID)
	if len(prefs) == 0 {
		return candidates
	}

	enabled := make(map[models.Channel]bool, len(prefs))
	for _, p := range prefs {
		enabled[p.Channel] = p.IsEnabled
	}

	var targets []models.Channel
	for _, ch := range candidates {
		if en, known := enabled[ch]; !known || en {
			targets = append(targets, ch)
		}
	}
	return targets
}

// BatchResult pairs a batch item's outcome with its original index, so the
// caller can report per-item ids/failures without re-deriving ordering.
type BatchResult struct {
	Index        int
	Notification *models.Notification
	Channels     []models.Channel
	Err          error
}

// DispatchBatch is the "optimized" bulk path (§4.8's SendBulkNotifications/
// optimized distinction, Design Note §9): it still validates and resolves
// target channels per item (preferences are per-user and cannot be
// batched), but persists every notification in one GORM batched insert and
// enqueues every resulting job per channel through one Redis pipeline
// round trip, instead of one persist-then-enqueue round trip per item.
func (d *Dispatcher) DispatchBatch(ctx context.Context, items []SendNotificationData) []BatchResult {
	results := make([]BatchResult, len(items))
	notifications := make([]*models.Notification, 0, len(items))
	notifIndex := make([]int, 0, len(items))
	targetsByIndex := make([][]models.Channel, len(items))

	for i, data := range items {
		if err := Validate(data); err != nil {
			results[i] = BatchResult{Index: i, Err: err}
			continue
		}

		channel := models.ChannelEmail
		if data.Channel != nil {
			channel = *data.Channel
		}
		priority := models.PriorityNormal
		if data.Priority != nil {
			priority = *data.Priority
		}

		n := &models.Notification{
			UserID:      data.UserID,
			Type:        data.Type,
			Channel:     channel,
			Title:       data.Title,
			Body:        data.Message,
			Metadata:    data.Metadata,
			Priority:    priority,
			ScheduledAt: data.ScheduledAt,
			Status:      models.StatusQueued,
		}

		notifications = append(notifications, n)
		notifIndex = append(notifIndex, i)
		targetsByIndex[i] = d.resolveTargetChannels(ctx, data, channel)
	}

	if len(notifications) > 0 {
		if err := d.notifRepo.CreateBatch(ctx, notifications); err != nil {
			wrapped := apperrors.Wrap(apperrors.StoreUnavailable, "failed to persist notification batch", false, err)
			for _, idx := range notifIndex {
				results[idx] = BatchResult{Index: idx, Err: wrapped}
			}
			return results
		}
	}

	jobsByChannel := make(map[models.Channel][]*queue.Job)
	for pos, idx := range notifIndex {
		n := notifications[pos]
		item := items[idx]
		priority := models.PriorityNormal
		if item.Priority != nil {
			priority = *item.Priority
		}
		delayUntil := time.Now().UTC()
		if item.ScheduledAt != nil && item.ScheduledAt.After(delayUntil) {
			delayUntil = *item.ScheduledAt
		}

		for _, ch := range targetsByIndex[idx] {
			jobsByChannel[ch] = append(jobsByChannel[ch], &queue.Job{
				NotificationID: n.ID,
				UserID:         item.UserID,
				Type:           item.Type,
				Title:          item.Title,
				Message:        item.Message,
				Metadata:       item.Metadata,
				Priority:       models.PriorityWeight(priority),
				DelayUntil:     delayUntil,
			})
		}

		results[idx] = BatchResult{Index: idx, Notification: n, Channels: targetsByIndex[idx]}
	}

	for ch, jobs := range jobsByChannel {
		q := d.queues.For(ch)
		if q == nil {
			continue
		}
		if err := q.EnqueueBatch(ctx, jobs); err != nil {
			d.logger.Error("batch enqueue failed, notification rows left QUEUED",
				zap.String("channel", string(ch)), zap.Int("jobCount", len(jobs)), zap.Error(err))
		}
	}

	return results
}

// RetryFailed implements §4.6's retryFailed(): scans up to 100 FAILED rows
// with retryCount < MaxRetries and re-enters Dispatch for each, minting a
// fresh Notification id while incrementing retryCount on the original row
// (Design Note §9's resolved open question).
func (d *Dispatcher) RetryFailed(ctx context.Context) (int, error) {
	rows, err := d.notifRepo.FindFailedForRetry(ctx, 100, models.MaxRetries)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StoreUnavailable, "failed to scan retry candidates", false, err)
	}

	retried := 0
	for _, row := range rows {
		channel := row.Channel
		priority := row.Priority

		_, derr := d.Dispatch(ctx, SendNotificationData{
			UserID:   row.UserID,
			Type:     row.Type,
			Title:    row.Title,
			Message:  row.Body,
			Channel:  &channel,
			Priority: &priority,
			Metadata: row.Metadata,
		})
		if derr != nil {
			d.logger.Warn("retry re-dispatch failed", zap.String("originalId", row.ID.String()), zap.Error(derr))
			continue
		}

		if err := d.notifRepo.IncrementRetry(ctx, row.ID); err != nil {
			d.logger.Warn("failed to increment retry count on original row", zap.String("originalId", row.ID.String()), zap.Error(err))
			continue
		}
		retried++
	}

	return retried, nil
}
