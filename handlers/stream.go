package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/apperrors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SendNotificationStream implements the bidirectional request/response
// stream (§4.8, Design Note §9): for each inbound JSON message, dispatch
// and reply with a correlation-preserving response over the same
// connection, grounded on the teacher's websocket_handler.go upgrade and
// per-connection read loop.
func (h *NotificationHandler) SendNotificationStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()

	for {
		var req StreamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("stream read ended", zap.Error(err))
			}
			return
		}

		resp := h.handleStreamRequest(ctx, req)
		if err := conn.WriteJSON(resp); err != nil {
			h.logger.Warn("stream write failed", zap.Error(err))
			return
		}
	}
}

func (h *NotificationHandler) handleStreamRequest(ctx context.Context, req StreamRequest) StreamResponse {
	select {
	case <-ctx.Done():
		return StreamResponse{RequestID: req.RequestID, Success: false, Message: "dispatch cancelled: " + ctx.Err().Error()}
	default:
	}

	result, err := h.dispatcher.Dispatch(ctx, streamToSendData(req))
	if err != nil {
		message := err.Error()
		if derr, ok := err.(*apperrors.DispatchError); ok {
			message = derr.Message
		}
		return StreamResponse{RequestID: req.RequestID, Success: false, Message: message}
	}

	return StreamResponse{RequestID: req.RequestID, Success: true, NotificationID: result.Notification.ID.String(), Message: "dispatched"}
}
