// Package repositories implements the Notification Store (C3): persistence
// of notifications, preferences, device tokens and templates, plus the
// status transitions and retry-selection queries the dispatch pipeline
// depends on.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/5-VED/notification-dispatcher/models"
)

// NotificationRepository is the Notification Store's interface over the
// notifications table.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, errorMessage string) error
	FindFailedForRetry(ctx context.Context, limit, maxRetries int) ([]*models.Notification, error)
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	CleanupOlderThan(ctx context.Context, before time.Time) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository builds a GORM-backed NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateBatch persists many notifications in one GORM batched insert
// (100 rows per statement), used by the bulk ingest paths instead of one
// round trip per notification. BeforeCreate fires per-row via GORM's own
// callback chain, same as a single Create.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if err := r.db.WithContext(ctx).CreateInBatches(notifications, 100).Error; err != nil {
		return fmt.Errorf("create notification batch: %w", err)
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateStatus performs a row-scoped update (not a full-row re-save) so that
// concurrent status transitions on the same notification serialise at the
// database row-lock level rather than racing on a stale in-memory copy.
func (r *notificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, errorMessage string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}

	switch status {
	case models.StatusSent:
		updates["sent_at"] = time.Now().UTC()
	case models.StatusFailed:
		updates["failed_at"] = time.Now().UTC()
		updates["error_message"] = errorMessage
	case models.StatusQueued:
		updates["error_message"] = ""
	}

	result := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update notification status: %w", result.Error)
	}
	return nil
}

func (r *notificationRepository) FindFailedForRetry(ctx context.Context, limit, maxRetries int) ([]*models.Notification, error) {
	var rows []*models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", models.StatusFailed, maxRetries).
		Order("failed_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find failed for retry: %w", err)
	}
	return rows, nil
}

func (r *notificationRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
	if err != nil {
		return fmt.Errorf("increment retry: %w", err)
	}
	return nil
}

func (r *notificationRepository) CleanupOlderThan(ctx context.Context, before time.Time) error {
	err := r.db.WithContext(ctx).
		Where("created_at < ? AND status IN ?", before, []models.Status{models.StatusSent, models.StatusFailed}).
		Delete(&models.Notification{}).Error
	if err != nil {
		return fmt.Errorf("cleanup old notifications: %w", err)
	}
	return nil
}
