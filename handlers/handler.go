// Package handlers implements the Request Surface (C8): the gin-bound
// unary, bulk and admin HTTP operations plus a websocket-bound streaming
// operation, over the Dispatcher.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/apperrors"
	"github.com/5-VED/notification-dispatcher/dispatcher"
	"github.com/5-VED/notification-dispatcher/metrics"
	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/repositories"
	"github.com/5-VED/notification-dispatcher/resolver"
	"github.com/5-VED/notification-dispatcher/responses"
)

const maxBulkItems = 10000

// NotificationHandler wires the Dispatcher/Resolver/Metrics collector to
// HTTP routes.
type NotificationHandler struct {
	dispatcher *dispatcher.Dispatcher
	notifRepo  repositories.NotificationRepository
	resolver   resolver.Resolver
	metrics    *metrics.Collector
	logger     *zap.Logger
	validate   *validator.Validate
}

// New builds a NotificationHandler.
func New(d *dispatcher.Dispatcher, notifRepo repositories.NotificationRepository, res resolver.Resolver, m *metrics.Collector, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: d,
		notifRepo:  notifRepo,
		resolver:   res,
		metrics:    m,
		logger:     logger,
		validate:   validator.New(),
	}
}

// RegisterRoutes registers the full route tree under the given engine,
// grounded on the teacher's notification_handler.go RegisterRoutes shape.
func (h *NotificationHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1/notifications")
	{
		v1.POST("/send", h.SendNotification)
		v1.POST("/send/bulk", h.SendBulkNotifications)
		v1.POST("/send/bulk/optimized", h.SendBulkNotificationsOptimized)
		v1.GET("/:id/status", h.GetNotificationStatus)
		v1.PUT("/preferences/:userId", h.UpdateUserPreferences)
		v1.POST("/devices/:userId", h.RegisterDeviceToken)
		v1.DELETE("/devices/:userId", h.DeactivateDeviceToken)
		v1.GET("/health", h.HealthCheck)
		v1.GET("/stream", h.SendNotificationStream)
	}

	admin := r.Group("/api/v1/admin/notifications")
	{
		admin.POST("/broadcast", h.SendBulkNotifications)
		admin.POST("/retry", h.RetryFailed)
		admin.GET("/queues/status", h.HealthCheck)
	}
}

// SendNotification is a thin shell over the Dispatcher (§4.8).
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), toSendData(req))
	h.respondUnary(c, result, err)
}

func (h *NotificationHandler) respondUnary(c *gin.Context, result *dispatcher.Result, err error) {
	if err != nil {
		h.writeDispatchError(c, err, result)
		return
	}
	responses.SendCreatedResponse(c, SendNotificationResponse{
		Success:        true,
		NotificationID: result.Notification.ID.String(),
		Message:        "notification dispatched",
	})
}

func (h *NotificationHandler) writeDispatchError(c *gin.Context, err error, result *dispatcher.Result) {
	code := apperrors.StoreUnavailable
	message := err.Error()
	var derr *apperrors.DispatchError
	if e, ok := err.(*apperrors.DispatchError); ok {
		derr = e
	}
	if derr != nil {
		code = derr.Code
		message = derr.Message
	}

	status := http.StatusInternalServerError
	if code == apperrors.InvalidArgument {
		status = http.StatusBadRequest
	}

	resp := SendNotificationResponse{Success: false, Message: message}
	if result != nil && result.Notification != nil {
		resp.NotificationID = result.Notification.ID.String()
	}
	c.JSON(status, responses.BaseResponse{
		Success: false,
		Data:    resp,
		Error:   &responses.ErrorInfo{Code: string(code), Message: message},
	})
}

// SendBulkNotifications runs concurrent per-item Dispatcher calls with
// per-item failure isolation (§4.8).
func (h *NotificationHandler) SendBulkNotifications(c *gin.Context) {
	var req BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	if len(req.Notifications) == 0 {
		responses.InvalidArgumentResponse(c, "notifications must contain at least one item")
		return
	}
	if len(req.Notifications) > maxBulkItems {
		responses.InvalidArgumentResponse(c, "notifications must contain at most 10000 items")
		return
	}

	ids, successCount, failureCount := dispatchBulkItems(c.Request.Context(), req.Notifications, h.dispatcher)

	responses.SendSuccessResponse(c, BulkNotificationResponse{
		Success:         failureCount == 0,
		NotificationIDs: ids,
		SuccessCount:    successCount,
		FailureCount:    failureCount,
	})
}

// SendBulkNotificationsOptimized is the same HTTP contract as
// SendBulkNotifications, but runs every item through the Dispatcher's
// batch-persist/batch-enqueue pipeline (one GORM batched insert, one
// Redis pipeline per channel) instead of one dispatch round trip per
// item (§4.8).
func (h *NotificationHandler) SendBulkNotificationsOptimized(c *gin.Context) {
	var req BulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	if len(req.Notifications) == 0 {
		responses.InvalidArgumentResponse(c, "notifications must contain at least one item")
		return
	}
	if len(req.Notifications) > maxBulkItems {
		responses.InvalidArgumentResponse(c, "notifications must contain at most 10000 items")
		return
	}

	items := make([]dispatcher.SendNotificationData, len(req.Notifications))
	for i, n := range req.Notifications {
		items[i] = toSendData(n)
	}

	results := h.dispatcher.DispatchBatch(c.Request.Context(), items)

	ids := make([]string, len(results))
	successCount, failureCount := 0, 0
	for i, r := range results {
		if r.Err != nil {
			failureCount++
			continue
		}
		successCount++
		ids[i] = r.Notification.ID.String()
	}

	responses.SendSuccessResponse(c, BulkNotificationResponse{
		Success:         failureCount == 0,
		NotificationIDs: ids,
		SuccessCount:    successCount,
		FailureCount:    failureCount,
	})
}

// HealthCheck reads live figures from the Channel Work Queues and Metrics
// Collector (§4.8, §4.9).
func (h *NotificationHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"
	snapshot := h.metrics.Snapshot()
	if !snapshot.Healthy {
		status = "degraded"
	}

	responses.SendSuccessResponse(c, HealthCheckResponse{
		Status:              status,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		QueueDepth:          h.metrics.QueueDepth(ctx),
		ActiveWorkers:       h.metrics.ActiveWorkers(ctx),
		ThroughputPerSecond: h.metrics.ThroughputPerSecond(),
	})
}

// GetNotificationStatus is a read surface over the Notification Store
// (named in §6's RPC method list).
func (h *NotificationHandler) GetNotificationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.InvalidArgumentResponse(c, "id must be a valid uuid")
		return
	}

	n, err := h.notifRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		responses.NotFoundResponse(c, "notification not found")
		return
	}

	responses.SendSuccessResponse(c, gin.H{
		"id":           n.ID.String(),
		"status":       n.Status,
		"channel":      n.Channel,
		"priority":     n.Priority,
		"retryCount":   n.RetryCount,
		"createdAt":    n.CreatedAt,
		"sentAt":       n.SentAt,
		"failedAt":     n.FailedAt,
		"errorMessage": n.ErrorMessage,
	})
}

// UpdateUserPreferences upserts a (userId, channel) preference row.
func (h *NotificationHandler) UpdateUserPreferences(c *gin.Context) {
	userID := c.Param("userId")
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	if err := h.resolver.UpsertPreference(c.Request.Context(), userID, models.Channel(req.Channel), req.IsEnabled); err != nil {
		responses.InternalErrorResponse(c, "failed to update preference")
		return
	}
	responses.SendMessageResponse(c, "preference updated")
}

// RegisterDeviceToken upserts a device token for push delivery.
func (h *NotificationHandler) RegisterDeviceToken(c *gin.Context) {
	userID := c.Param("userId")
	var req DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ValidationErrorResponse(c, err)
		return
	}

	if err := h.resolver.UpsertDeviceToken(c.Request.Context(), userID, req.Token, req.Platform); err != nil {
		responses.InternalErrorResponse(c, "failed to register device token")
		return
	}
	responses.SendMessageResponse(c, "device token registered")
}

// DeactivateDeviceToken marks a device token inactive.
func (h *NotificationHandler) DeactivateDeviceToken(c *gin.Context) {
	userID := c.Param("userId")
	token := c.Query("token")
	if token == "" {
		responses.InvalidArgumentResponse(c, "token query parameter is required")
		return
	}

	if err := h.resolver.DeactivateDeviceToken(c.Request.Context(), userID, token); err != nil {
		responses.InternalErrorResponse(c, "failed to deactivate device token")
		return
	}
	responses.SendMessageResponse(c, "device token deactivated")
}

// RetryFailed triggers the Dispatcher's on-demand retry scan (§4.6).
func (h *NotificationHandler) RetryFailed(c *gin.Context) {
	count, err := h.dispatcher.RetryFailed(c.Request.Context())
	if err != nil {
		responses.InternalErrorResponse(c, "retry scan failed")
		return
	}
	responses.SendSuccessResponse(c, gin.H{"retried": count})
}
