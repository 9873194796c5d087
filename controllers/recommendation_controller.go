package controllers

import (
	"net/http"
	"strconv"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

type TodoController struct {
	Svc *services.TodoService
}

func NewTodoController(svc *services.TodoService) *TodoController {
	return &TodoController{Svc: svc}
}

// GET /todo returns the current to-do list, regenerating it when stale.
func (h *TodoController) Current(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	rec, err := h.Svc.Current(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /todo/generate
func (h *TodoController) Generate(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	rec, err := h.Svc.Process(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GET /todo/history?limit=
func (h *TodoController) History(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	recs, err := h.Svc.History(c.Request.Context(), uid, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}
