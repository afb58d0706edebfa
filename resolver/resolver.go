// Package resolver implements the Channel Resolver (C2): recipient
// lookup, preference management, device token management and
// cache-first template lookup.
package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/cache"
	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/repositories"
)

// Resolver is the Channel Resolver's public operation set.
type Resolver interface {
	GetEmailRecipient(ctx context.Context, userID string) string
	GetPhoneRecipient(ctx context.Context, userID string) string
	GetActiveDeviceTokens(ctx context.Context, userID string) []*models.DeviceToken

	GetPreferences(ctx context.Context, userID string) []*models.UserPreference
	UpsertPreference(ctx context.Context, userID string, channel models.Channel, enabled bool) error

	UpsertDeviceToken(ctx context.Context, userID, token, platform string) error
	DeactivateDeviceToken(ctx context.Context, userID, token string) error

	GetTemplate(ctx context.Context, notifType models.NotificationType, channel models.Channel) *models.NotificationTemplate
}

type resolver struct {
	repo   repositories.PreferenceRepository
	cache  *cache.TemplateCache
	logger *zap.Logger
}

// New builds a Resolver owning its own TemplateCache instance, per
// Design Note §9 (no package-level cache singleton).
func New(repo repositories.PreferenceRepository, logger *zap.Logger) Resolver {
	return &resolver{
		repo:   repo,
		cache:  cache.New(),
		logger: logger,
	}
}

// GetEmailRecipient returns the user's email, or "" if the lookup fails or
// the user has none. Read failures degrade to empty per §4.2.
func (r *resolver) GetEmailRecipient(ctx context.Context, userID string) string {
	u, err := r.repo.GetUser(ctx, userID)
	if err != nil || u == nil {
		return ""
	}
	return u.Email
}

func (r *resolver) GetPhoneRecipient(ctx context.Context, userID string) string {
	u, err := r.repo.GetUser(ctx, userID)
	if err != nil || u == nil {
		return ""
	}
	return u.Phone
}

func (r *resolver) GetActiveDeviceTokens(ctx context.Context, userID string) []*models.DeviceToken {
	tokens, err := r.repo.GetActiveDeviceTokens(ctx, userID)
	if err != nil {
		r.logger.Warn("device token lookup failed, degrading to empty", zap.String("userId", userID), zap.Error(err))
		return nil
	}
	return tokens
}

func (r *resolver) GetPreferences(ctx context.Context, userID string) []*models.UserPreference {
	prefs, err := r.repo.GetPreferences(ctx, userID)
	if err != nil {
		r.logger.Warn("preference lookup failed, degrading to empty", zap.String("userId", userID), zap.Error(err))
		return nil
	}
	return prefs
}

func (r *resolver) UpsertPreference(ctx context.Context, userID string, channel models.Channel, enabled bool) error {
	return r.repo.UpsertPreference(ctx, userID, channel, enabled)
}

func (r *resolver) UpsertDeviceToken(ctx context.Context, userID, token, platform string) error {
	return r.repo.UpsertDeviceToken(ctx, userID, token, platform)
}

func (r *resolver) DeactivateDeviceToken(ctx context.Context, userID, token string) error {
	return r.repo.DeactivateDeviceToken(ctx, userID, token)
}

// GetTemplate is cache-first: a hit avoids the Store entirely; a miss
// fetches from the Store and, on success, populates the cache.
func (r *resolver) GetTemplate(ctx context.Context, notifType models.NotificationType, channel models.Channel) *models.NotificationTemplate {
	key := cache.Key{Type: notifType, Channel: channel}

	if tmpl, ok := r.cache.Get(key); ok {
		return tmpl
	}

	tmpl, err := r.repo.GetActiveTemplate(ctx, notifType, channel)
	if err != nil {
		r.logger.Warn("template lookup failed, degrading to nil", zap.String("type", string(notifType)), zap.Error(err))
		return nil
	}
	if tmpl == nil {
		return nil
	}

	r.cache.Put(key, tmpl)
	return tmpl
}
