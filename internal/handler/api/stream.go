package api

import (
	"net/http"
	"time"

	"CashPilot/internal/domain/models"
	xhttp "CashPilot/pkg/http"
	xlogger "CashPilot/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamConfig tunes the insights websocket.
type StreamConfig struct {
	Interval     time.Duration
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (s StreamConfig) withDefaults() StreamConfig {
	if s.Interval <= 0 {
		s.Interval = 30 * time.Second
	}
	if s.PingInterval <= 0 {
		s.PingInterval = 20 * time.Second
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 10 * time.Second
	}
	return s
}

// StreamMessage is one frame pushed to stream subscribers.
type StreamMessage struct {
	Type     string                 `json:"type"`
	UserID   string                 `json:"user_id"`
	SentAt   time.Time              `json:"sent_at"`
	Insights *models.InsightsResult `json:"insights,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Stream upgrades to a websocket and pushes the user's insights every Interval until the client leaves.
func (h *CashFlowEchoHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	cfg := h.stream
	pongWait := cfg.PingInterval * 2
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// the read pump only exists to notice pongs and disconnects
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request().Context()
	push := func() error {
		msg := StreamMessage{Type: "insights", UserID: req.UserID, SentAt: time.Now().UTC()}
		res, err := h.uc.GenerateInsights(ctx, req.UserID)
		if err != nil {
			h.logger.Error("stream insights failed", xlogger.String("user_id", req.UserID), xlogger.Error(err))
			msg.Type = "error"
			msg.Error = "could not compute insights"
		} else {
			msg.Insights = &res
		}
		_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
		return conn.WriteJSON(msg)
	}

	if err := push(); err != nil {
		return nil
	}
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	ping := time.NewTicker(cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(cfg.WriteTimeout)); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := push(); err != nil {
				return nil
			}
		}
	}
}
