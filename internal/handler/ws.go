package handler

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/platform/response"
	"github.com/trailview/service-routes/internal/presentation"
)

const maxInboundMessageSize = 16 << 10

// Connect handles GET /api/v1/sessions/:id/ws. Presentation commands are pushed by the
// session's hub; inbound messages are applied to the session in arrival order. Route
// selections and extent queries complete on their own goroutines so the reader keeps
// serving hovers and newer commands while they wait.
func (h *SessionHandler) Connect(c *gin.Context) {
	handle, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := handle.Session.ID()
	detach := handle.Hub.Attach(conn)
	defer detach()

	h.logger.Info("websocket client attached", zap.String("session_id", sessionID))

	conn.SetReadLimit(maxInboundMessageSize)

	ctx, cancel := context.WithCancel(c.Request.Context())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()

	reject := func(msgType string, err error) {
		h.logger.Debug("websocket command rejected",
			zap.String("session_id", sessionID),
			zap.String("type", msgType),
			zap.Error(err),
		)
		handle.Hub.SendError(err.Error())
	}

	for {
		var msg presentation.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket closed unexpectedly",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
			}
			break
		}

		pending, err := prepare(handle.Session, msg)
		if err != nil {
			reject(msg.Type, err)
			continue
		}
		if pending == nil {
			continue
		}

		inflight.Add(1)
		go func(msgType string) {
			defer inflight.Done()
			if err := pending(ctx); err != nil && ctx.Err() == nil {
				reject(msgType, err)
			}
		}(msg.Type)
	}

	h.logger.Info("websocket client detached", zap.String("session_id", sessionID))
}
