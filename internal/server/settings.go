package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/hexabill/hexabill/internal/settings/domain"
)

type reconcileScheduleResponse struct {
	Enabled bool   `json:"enabled"`
	RunAt   string `json:"run_at"`
}

func (s *Server) GetReconcileSchedule(c *gin.Context) {
	schedule := s.settingsSvc.ReconcileSchedule(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": reconcileScheduleResponse{
		Enabled: schedule.Enabled,
		RunAt:   schedule.RunAt.String(),
	}})
}

type updateReconcileScheduleRequest struct {
	Enabled *bool  `json:"enabled"`
	RunAt   string `json:"run_at"`
}

func (s *Server) UpdateReconcileSchedule(c *gin.Context) {
	var req updateReconcileScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	runAt := strings.TrimSpace(req.RunAt)
	if runAt != "" {
		parsed, err := settingsdomain.ParseTimeOfDay(runAt)
		if err != nil {
			AbortWithError(c, newValidationError("run_at", "invalid_run_at", "run_at must be HH:MM"))
			return
		}
		if err := s.settingsSvc.Set(c.Request.Context(), settingsdomain.KeyReconcileRunAt, parsed.String()); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	if req.Enabled != nil {
		if err := s.settingsSvc.Set(c.Request.Context(), settingsdomain.KeyReconcileEnabled, strconv.FormatBool(*req.Enabled)); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	schedule := s.settingsSvc.ReconcileSchedule(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": reconcileScheduleResponse{
		Enabled: schedule.Enabled,
		RunAt:   schedule.RunAt.String(),
	}})
}
