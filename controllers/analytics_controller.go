package controllers

import (
	"net/http"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	Svc *services.AnalyticsService
}

func NewAnalyticsController(svc *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Svc: svc}
}

// GET /home?tz=Asia/Jakarta
func (h *AnalyticsController) Home(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	loc, ok := locationFromQuery(c)
	if !ok {
		return
	}
	out, err := h.Svc.Today(c.Request.Context(), uid, loc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /report?tz=Asia/Jakarta
func (h *AnalyticsController) Report(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	loc, ok := locationFromQuery(c)
	if !ok {
		return
	}
	out, err := h.Svc.Report(c.Request.Context(), uid, loc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
