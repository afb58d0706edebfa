package workers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/5-VED/notification-dispatcher/adapters"
	"github.com/5-VED/notification-dispatcher/apperrors"
	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/queue"
)

type fakeAdapter struct {
	mock.Mock
}

func (f *fakeAdapter) Send(ctx context.Context, input adapters.SendInput) error {
	return f.Called(ctx, input).Error(0)
}

type fakeResolver struct {
	mock.Mock
}

func (f *fakeResolver) GetEmailRecipient(ctx context.Context, userID string) string {
	return f.Called(ctx, userID).String(0)
}
func (f *fakeResolver) GetPhoneRecipient(ctx context.Context, userID string) string {
	return f.Called(ctx, userID).String(0)
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

func TestDeliver_EmailMissingRecipientFails(t *testing.T) {
	res := new(fakeResolver)
	res.On("GetTemplate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	res.On("GetEmailRecipient", mock.Anything, "u1").Return("")

	p := &Pool{channel: models.ChannelEmail, resolver: res}
	job := &queue.Job{UserID: "u1", Title: "hi", Message: "hi"}

	err := p.deliver(context.Background(), job)

	var derr *apperrors.DispatchError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, apperrors.RecipientMissing, derr.Code)
}

func TestDeliver_EmailSendsRenderedContent(t *testing.T) {
	res := new(fakeResolver)
	tmpl := &models.NotificationTemplate{Title: "Hello {{name}}", Message: "Body {{name}}"}
	res.On("GetTemplate", mock.Anything, mock.Anything, mock.Anything).Return(tmpl)
	res.On("GetEmailRecipient", mock.Anything, "u1").Return("a@example.com")

	adapter := new(fakeAdapter)
	adapter.On("Send", mock.Anything, adapters.SendInput{
		Recipient: "a@example.com",
		Title:     "Hello Ada",
		Message:   "Body Ada",
	}).Return(nil)

	p := &Pool{channel: models.ChannelEmail, resolver: res, adapter: adapter}
	job := &queue.Job{UserID: "u1", Title: "hi", Message: "hi", Metadata: models.Metadata{"name": "Ada"}}

	err := p.deliver(context.Background(), job)

	assert.NoError(t, err)
	adapter.AssertExpectations(t)
}

func TestDeliver_PushNoActiveTokensFails(t *testing.T) {
	res := new(fakeResolver)
	res.On("GetTemplate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	res.On("GetActiveDeviceTokens", mock.Anything, "u1").Return(nil)

	p := &Pool{channel: models.ChannelPush, resolver: res}
	job := &queue.Job{UserID: "u1", Title: "hi", Message: "hi"}

	err := p.deliver(context.Background(), job)

	var derr *apperrors.DispatchError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, apperrors.RecipientMissing, derr.Code)
}

func TestSendPushFanOut_DeactivatesPermanentlyInvalidToken(t *testing.T) {
	res := new(fakeResolver)
	res.On("DeactivateDeviceToken", mock.Anything, "u1", "bad-token").Return(nil)

	adapter := new(fakeAdapter)
	adapter.On("Send", mock.Anything, adapters.SendInput{Recipient: "good-token", Title: "hi", Message: "hi"}).Return(nil)
	adapter.On("Send", mock.Anything, adapters.SendInput{Recipient: "bad-token", Title: "hi", Message: "hi"}).
		Return(apperrors.New(apperrors.AdapterPermanent, "push token invalid", false))

	p := &Pool{resolver: res, adapter: adapter}
	tokens := []*models.DeviceToken{{Token: "good-token"}, {Token: "bad-token"}}

	err := p.sendPushFanOut(context.Background(), tokens, "hi", "hi", "u1")

	assert.Error(t, err)
	res.AssertCalled(t, "DeactivateDeviceToken", mock.Anything, "u1", "bad-token")
}

func TestSendPushFanOut_AllSucceed(t *testing.T) {
	adapter := new(fakeAdapter)
	adapter.On("Send", mock.Anything, mock.Anything).Return(nil)

	p := &Pool{adapter: adapter}
	tokens := []*models.DeviceToken{{Token: "t1"}, {Token: "t2"}}

	err := p.sendPushFanOut(context.Background(), tokens, "hi", "hi", "u1")

	assert.NoError(t, err)
}

func TestRender_NoTemplateFallsBackToRawJobFields(t *testing.T) {
	res := new(fakeResolver)
	res.On("GetTemplate", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	p := &Pool{resolver: res}
	job := &queue.Job{Title: "raw title", Message: "raw message"}

	title, message, html := p.render(context.Background(), job)

	assert.Equal(t, "raw title", title)
	assert.Equal(t, "raw message", message)
	assert.Empty(t, html)
}

func TestToString_HandlesBasicTypes(t *testing.T) {
	assert.Equal(t, "hello", toString("hello"))
	assert.Equal(t, "42", toString(42))
}
