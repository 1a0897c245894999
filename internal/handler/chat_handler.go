package handler

import (
	"io"
	"net/http"
	"time"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	svc     *service.MessageService
	metrics *observability.Metrics
}

func NewChatHandler(svc *service.MessageService, metrics *observability.Metrics) *ChatHandler {
	return &ChatHandler{svc: svc, metrics: metrics}
}

type sendMessageReq struct {
	Text string `json:"text" binding:"required"`
}

// Send 给好友发消息
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), middleware.UserID(c), c.Param("user_id"), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// History 与某个好友的聊天记录
func (h *ChatHandler) History(c *gin.Context) {
	rows, err := h.svc.History(c.Request.Context(), middleware.UserID(c), c.Param("user_id"), pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// Stream SSE 推送发给自己的新消息
func (h *ChatHandler) Stream(c *gin.Context) {
	messages, err := h.svc.Stream(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	done := h.metrics.StreamOpened("chat")
	defer done()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("message", msg)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}
