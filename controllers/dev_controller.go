package controllers

import (
	"context"
	"net/http"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

// DevController exposes manual triggers for push delivery and batch jobs.
// Routes are mounted only when DEV_ROUTES is enabled.
type DevController struct {
	Push *services.PushService
	Jobs *services.BatchJobs
}

func NewDevController(p *services.PushService, jobs *services.BatchJobs) *DevController {
	return &DevController{Push: p, Jobs: jobs}
}

type pushReq struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (d *DevController) PushTest(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req pushReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" {
		req.Title = "Test notification"
	}
	if req.Body == "" {
		req.Body = "This is only a test."
	}
	d.Push.PushToUser(c.Request.Context(), uid, req.Title, req.Body, req.Data)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /dev/jobs/:job runs one batch job synchronously and returns its outcome.
func (d *DevController) RunJob(c *gin.Context) {
	jobs := map[string]func(context.Context) (services.BatchOutcome, error){
		"todo": d.Jobs.RunTodoBatch,
		"food-reminder": func(ctx context.Context) (services.BatchOutcome, error) {
			return d.Jobs.RunReminder(ctx, services.FoodReminder)
		},
		"exercise-reminder": func(ctx context.Context) (services.BatchOutcome, error) {
			return d.Jobs.RunReminder(ctx, services.ExerciseReminder)
		},
		"water-reminder": func(ctx context.Context) (services.BatchOutcome, error) {
			return d.Jobs.RunReminder(ctx, services.WaterReminder)
		},
	}
	run, ok := jobs[c.Param("job")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	out, err := run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	failures := make([]gin.H, 0, out.Failed)
	for _, r := range out.Results {
		if r.State == services.TargetFailed {
			failures = append(failures, gin.H{"user_id": r.Target.UserID, "error": r.Err.Error()})
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":    out.RunID,
		"total":     out.Total,
		"succeeded": out.Succeeded,
		"failed":    out.Failed,
		"failures":  failures,
	})
}
