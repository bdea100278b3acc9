package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	cronrunner "github.com/mattdomit/dotted-sub000/internal/cron"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
)

type Sweeper interface {
	RunDailySweep(ctx context.Context, target string) (orchestrator.SweepReport, error)
}

type JobLister interface {
	Jobs() []cronrunner.JobInfo
}

type SweepHandler struct {
	Sweeper Sweeper
	Jobs    JobLister
}

func (h *SweepHandler) Register(r gin.IRouter) {
	g := r.Group("/api/v1/sweeps")
	g.POST("", h.run)
	g.GET("/schedule", h.schedule)
}

type sweepRequest struct {
	Target string `json:"target" binding:"required"`
}

// @Summary Run the daily sweep now
// @Tags sweeps
// @Param body body sweepRequest true "target phase"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/sweeps [post]
func (h *SweepHandler) run(c *gin.Context) {
	if h.Sweeper == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	report, err := h.Sweeper.RunDailySweep(c.Request.Context(), req.Target)
	if err != nil {
		writeError(c, err)
		return
	}
	Ok(c, report, nil)
}

// @Summary List the scheduled sweeps
// @Tags sweeps
// @Success 200 {object} apiResponse
// @Router /api/v1/sweeps/schedule [get]
func (h *SweepHandler) schedule(c *gin.Context) {
	if h.Jobs == nil {
		Ok(c, []cronrunner.JobInfo{}, nil)
		return
	}
	Ok(c, h.Jobs.Jobs(), nil)
}
