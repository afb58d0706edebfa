package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/5-VED/notification-dispatcher/apperrors"
	"github.com/5-VED/notification-dispatcher/models"
)

type fakeResolver struct {
	mock.Mock
}

func (f *fakeResolver) GetEmailRecipient(ctx context.Context, userID string) string {
	args := f.Called(ctx, userID)
	return args.String(0)
}
func (f *fakeResolver) GetPhoneRecipient(ctx context.Context, userID string) string {
	args := f.Called(ctx, userID)
	return args.String(0)
}
func (f *fakeResolver) GetActiveDeviceTokens(ctx context.Context, userID string) []*models.DeviceToken {
	args := f.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.DeviceToken)
}
func (f *fakeResolver) GetPreferences(ctx context.Context, userID string) []*models.UserPreference {
	args := f.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.UserPreference)
}
func (f *fakeResolver) UpsertPreference(ctx context.Context, userID string, channel models.Channel, enabled bool) error {
	return f.Called(ctx, userID, channel, enabled).Error(0)
}
func (f *fakeResolver) UpsertDeviceToken(ctx context.Context, userID, token, platform string) error {
	return f.Called(ctx, userID, token, platform).Error(0)
}
func (f *fakeResolver) DeactivateDeviceToken(ctx context.Context, userID, token string) error {
	return f.Called(ctx, userID, token).Error(0)
}
func (f *fakeResolver) GetTemplate(ctx context.Context, notifType models.NotificationType, channel models.Channel) *models.NotificationTemplate {
	args := f.Called(ctx, notifType, channel)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.NotificationTemplate)
}

func TestValidate_RequiredFields(t *testing.T) {
	err := Validate(SendNotificationData{})
	assert.Error(t, err)

	var derr *apperrors.DispatchError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, apperrors.InvalidArgument, derr.Code)
}

func TestValidate_TitleTooLong(t *testing.T) {
	data := SendNotificationData{
		UserID:  "u1",
		Type:    models.NotificationTypeWelcome,
		Title:   string(make([]byte, maxTitleLen+1)),
		Message: "hi",
	}
	err := Validate(data)
	assert.Error(t, err)
}

func TestValidate_OK(t *testing.T) {
	data := SendNotificationData{
		UserID:  "u1",
		Type:    models.NotificationTypeWelcome,
		Title:   "Welcome!",
		Message: "hi",
	}
	assert.NoError(t, Validate(data))
}

func TestResolveTargetChannels_PinnedChannelShortCircuits(t *testing.T) {
	res := new(fakeResolver)
	d := &Dispatcher{resolver: res}

	sms := models.ChannelSMS
	data := SendNotificationData{Type: models.NotificationTypeOrderShipped, Channel: &sms}
	targets := d.resolveTargetChannels(context.Background(), data, models.ChannelSMS)

	assert.Equal(t, []models.Channel{models.ChannelSMS}, targets)
	res.AssertNotCalled(t, "GetPreferences", mock.Anything, mock.Anything)
}

func TestResolveTargetChannels_NoPreferenceRowsMeansAllEnabled(t *testing.T) {
	res := new(fakeResolver)
	res.On("GetPreferences", mock.Anything, "u1").Return(nil)
	d := &Dispatcher{resolver: res}

	data := SendNotificationData{UserID: "u1", Type: models.NotificationTypeOrderConfirmation}
	targets := d.resolveTargetChannels(context.Background(), data, models.ChannelEmail)

	assert.ElementsMatch(t, []models.Channel{models.ChannelEmail, models.ChannelPush}, targets)
}

func TestResolveTargetChannels_DisabledChannelIsExcluded(t *testing.T) {
	res := new(fakeResolver)
	res.On("GetPreferences", mock.Anything, "u1").Return([]*models.UserPreference{
		{UserID: "u1", Channel: models.ChannelPush, IsEnabled: false},
	})
	d := &Dispatcher{resolver: res}

	data := SendNotificationData{UserID: "u1", Type: models.NotificationTypeOrderConfirmation}
	targets := d.resolveTargetChannels(context.Background(), data, models.ChannelEmail)

	assert.Equal(t, []models.Channel{models.ChannelEmail}, targets)
}

func TestResolveTargetChannels_UnknownTypeFallsBackToEmail(t *testing.T) {
	res := new(fakeResolver)
	res.On("GetPreferences", mock.Anything, "u1").Return(nil)
	d := &Dispatcher{resolver: res}

	data := SendNotificationData{UserID: "u1", Type: models.NotificationType("UNKNOWN")}
	targets := d.resolveTargetChannels(context.Background(), data, models.ChannelEmail)

	assert.Equal(t, []models.Channel{models.ChannelEmail}, targets)
}

func TestValidate_ScheduledFarInPastRejected(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	data := SendNotificationData{
		UserID:      "u1",
		Type:        models.NotificationTypeWelcome,
		Title:       "hi",
		Message:     "hi",
		ScheduledAt: &past,
	}
	assert.Error(t, Validate(data))
}
