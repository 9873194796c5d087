package controllers

import (
	"net/http"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

type ChatbotController struct {
	Svc *services.ChatbotService
}

func NewChatbotController(svc *services.ChatbotService) *ChatbotController {
	return &ChatbotController{Svc: svc}
}

func (h *ChatbotController) History(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	logs, err := h.Svc.History(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": logs})
}

func (h *ChatbotController) Send(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var in struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
		return
	}
	entry, err := h.Svc.Send(c.Request.Context(), uid, in.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
