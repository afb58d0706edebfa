package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/5-VED/notification-dispatcher/models"
)

// PreferenceRepository owns the user_preferences and device_tokens tables
// queried/updated by the Channel Resolver.
type PreferenceRepository interface {
	GetPreferences(ctx context.Context, userID string) ([]*models.UserPreference, error)
	UpsertPreference(ctx context.Context, userID string, channel models.Channel, enabled bool) error

	GetActiveDeviceTokens(ctx context.Context, userID string) ([]*models.DeviceToken, error)
	UpsertDeviceToken(ctx context.Context, userID, token, platform string) error
	DeactivateDeviceToken(ctx context.Context, userID, token string) error

	GetUser(ctx context.Context, userID string) (*models.User, error)

	GetActiveTemplate(ctx context.Context, notifType models.NotificationType, channel models.Channel) (*models.NotificationTemplate, error)
}

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository builds a GORM-backed PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) GetPreferences(ctx context.Context, userID string) ([]*models.UserPreference, error) {
	var rows []*models.UserPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return rows, nil
}

// UpsertPreference creates or updates the (userID, channel) row, relying on
// the unique index to detect conflicts.
func (r *preferenceRepository) UpsertPreference(ctx context.Context, userID string, channel models.Channel, enabled bool) error {
	pref := &models.UserPreference{
		UserID:    userID,
		Channel:   channel,
		IsEnabled: enabled,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "channel"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_enabled", "updated_at"}),
		}).
		Create(pref).Error
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

func (r *preferenceRepository) GetActiveDeviceTokens(ctx context.Context, userID string) ([]*models.DeviceToken, error) {
	var rows []*models.DeviceToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get active device tokens: %w", err)
	}
	return rows, nil
}

func (r *preferenceRepository) UpsertDeviceToken(ctx context.Context, userID, token, platform string) error {
	dt := &models.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
		IsActive: true,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "platform", "updated_at"}),
		}).
		Create(dt).Error
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

func (r *preferenceRepository) DeactivateDeviceToken(ctx context.Context, userID, token string) error {
	err := r.db.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("user_id = ? AND token = ?", userID, token).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("deactivate device token: %w", err)
	}
	return nil
}

func (r *preferenceRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *preferenceRepository) GetActiveTemplate(ctx context.Context, notifType models.NotificationType, channel models.Channel) (*models.NotificationTemplate, error) {
	var t models.NotificationTemplate
	err := r.db.WithContext(ctx).
		Where("type = ? AND channel = ? AND is_active = ?", notifType, channel, true).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active template: %w", err)
	}
	return &t, nil
}
