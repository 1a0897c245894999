package handler

import (
	"net/http"

	"Lee_Social/internal/middleware"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	svc *service.FriendshipService
}

func NewFriendshipHandler(svc *service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{svc: svc}
}

type friendRequestReq struct {
	FriendID string `json:"friend_id" binding:"required,uuid"`
}

// Send 发送好友请求
func (h *FriendshipHandler) Send(c *gin.Context) {
	var req friendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.svc.SendRequest(c.Request.Context(), middleware.UserID(c), req.FriendID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Accept 接受好友请求
func (h *FriendshipHandler) Accept(c *gin.Context) {
	view, err := h.svc.AcceptRequest(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *FriendshipHandler) Decline(c *gin.Context) {
	writeError(c, h.svc.Decline(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (h *FriendshipHandler) Unfriend(c *gin.Context) {
	writeError(c, h.svc.Unfriend(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

// ListFriends 好友列表
func (h *FriendshipHandler) ListFriends(c *gin.Context) {
	rows, err := h.svc.ListFriends(c.Request.Context(), middleware.UserID(c), pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// ListSent 我发出的请求
func (h *FriendshipHandler) ListSent(c *gin.Context) {
	rows, err := h.svc.ListSent(c.Request.Context(), middleware.UserID(c), pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// ListReceived 我收到的请求
func (h *FriendshipHandler) ListReceived(c *gin.Context) {
	rows, err := h.svc.ListReceived(c.Request.Context(), middleware.UserID(c), pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}

// AdminList 管理端查看所有关系记录
func (h *FriendshipHandler) AdminList(c *gin.Context) {
	rows, err := h.svc.AdminList(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": rows})
}
