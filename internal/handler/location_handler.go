package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/model"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	heartbeatInterval = 15 * time.Second
	wsReadLimit       = 4096
	wsIdleTimeout     = 2 * time.Minute
	wsPingInterval    = wsIdleTimeout / 4
	wsWriteTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type LocationHandler struct {
	svc     *service.LocationService
	metrics *observability.Metrics
	wsRate  rate.Limit
	// ping 间隔必须小于 wsIdleTimeout，空闲的客户端靠 pong 续期
	pingInterval time.Duration
}

func NewLocationHandler(svc *service.LocationService, metrics *observability.Metrics, wsRPS float64) *LocationHandler {
	if wsRPS <= 0 {
		wsRPS = 5
	}
	return &LocationHandler{svc: svc, metrics: metrics, wsRate: rate.Limit(wsRPS), pingInterval: wsPingInterval}
}

// Get 查看好友的位置
func (h *LocationHandler) Get(c *gin.Context) {
	loc, err := h.svc.GetLocation(c.Request.Context(), middleware.UserID(c), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Friends 所有好友的位置
func (h *LocationHandler) Friends(c *gin.Context) {
	rows, err := h.svc.FriendsLocations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// Set 上报自己的位置，不广播
func (h *LocationHandler) Set(c *gin.Context) {
	var req model.Coordinates
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", pkg.ErrValidation, err))
		return
	}
	loc, err := h.svc.SetLocation(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Stream SSE 推送好友的实时位置，客户端断开后订阅随请求 ctx 一起释放
func (h *LocationHandler) Stream(c *gin.Context) {
	events, err := h.svc.StreamLocation(c.Request.Context(), middleware.UserID(c), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	done := h.metrics.StreamOpened("location")
	defer done()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("location", ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}

type wsError struct {
	Error pkg.ErrorResponse `json:"error"`
}

// Live WebSocket 实时上报位置。坐标不合法或发送过快时回一条错误帧，连接保持
func (h *LocationHandler) Live(c *gin.Context) {
	userID := middleware.UserID(c)
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade the websocket", "err", err)
		return
	}
	defer ws.Close()
	done := h.metrics.StreamOpened("live")
	defer done()

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})
	stopPing := make(chan struct{})
	defer close(stopPing)
	go h.ping(ws, stopPing)

	limiter := rate.NewLimiter(h.wsRate, int(h.wsRate)+1)
	ctx := c.Request.Context()
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Info("live location client disconnected", "user_id", userID, "err", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		if !limiter.Allow() {
			if h.reply(ws, pkg.ErrRateLimited) != nil {
				return
			}
			continue
		}

		var coords model.Coordinates
		if err := json.Unmarshal(raw, &coords); err != nil {
			if h.reply(ws, fmt.Errorf("%w: %v", pkg.ErrValidation, err)) != nil {
				return
			}
			continue
		}
		if err := h.svc.PublishLiveLocation(ctx, userID, coords); err != nil {
			if h.reply(ws, err) != nil {
				return
			}
			continue
		}
		if h.reply(ws, nil) != nil {
			return
		}
	}
}

// ping WriteControl 可以和读循环里的 WriteJSON 并发调用
func (h *LocationHandler) ping(ws *websocket.Conn, stop <-chan struct{}) {
	t := time.NewTicker(h.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *LocationHandler) reply(ws *websocket.Conn, err error) error {
	var v any = gin.H{"status": "ok"}
	if err != nil {
		_, body := pkg.ToResponse(err)
		v = wsError{Error: body}
	}
	if werr := ws.WriteJSON(v); werr != nil {
		slog.Warn("failed to write websocket frame", "err", werr)
		return werr
	}
	return nil
}
