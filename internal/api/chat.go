package api

import (
	"net/http"

	"campusmarket/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) startChat(c *gin.Context) {
	var req service.StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chat, err := h.chats.StartChat(c.Request.Context(), actor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *Handler) listChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *Handler) listMessages(c *gin.Context) {
	messages, err := h.chats.ListMessages(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.chats.SendMessage(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
