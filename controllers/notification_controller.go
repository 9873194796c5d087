package controllers

import (
	"net/http"
	"strconv"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	Svc *services.NotificationService
}

func NewNotificationController(svc *services.NotificationService) *NotificationController {
	return &NotificationController{Svc: svc}
}

// GET /user/notifications?limit=
func (h *NotificationController) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.Svc.List(c.Request.Context(), uid, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}
