package handlers

import (
	"context"
	"net/http"
	"time"

	"seatbook/middleware"
	"seatbook/services/notifier"
	"seatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Subscriber opens and closes notifier channels.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID string) (*notifier.Subscription, error)
	Unsubscribe(sub *notifier.Subscription)
}

type StreamHandler struct {
	Notifier  Subscriber
	Heartbeat time.Duration
}

func NewStreamHandler(n Subscriber, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandler{Notifier: n, Heartbeat: heartbeat}
}

// OperatorStream pushes the operator's booking state as server-sent events
// until the client goes away.
func (h *StreamHandler) OperatorStream(c *gin.Context) {
	logger := getLogger(c)
	ctx := c.Request.Context()
	operatorID := c.GetString(middleware.ContextAccountID)

	sub, err := h.Notifier.Subscribe(ctx, operatorID)
	if err != nil {
		logger.Error("subscribe failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not open stream", "")
		return
	}
	defer h.Notifier.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				// Pruned or shut down; the client reconnects and gets a snapshot.
				return
			}
			if err := notifier.WriteEvent(c.Writer, ev); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
			c.Writer.Flush()
		case <-ticker.C:
			if err := notifier.WriteHeartbeat(c.Writer); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
