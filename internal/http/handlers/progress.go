package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentiby/tracker-backend/internal/http/response"
	"github.com/mentiby/tracker-backend/internal/services"
)

type ProgressHandler struct {
	progress services.ProgressService
}

func NewProgressHandler(progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// POST /api/progress/start
// body: { "problem_id": "<uuid>" }
func (h *ProgressHandler) Start(c *gin.Context) {
	userID, problemID, ok := bindProblem(c)
	if !ok {
		return
	}
	res, err := h.progress.Start(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"session_id":           res.SessionID,
		"started_at":           res.StartedAt,
		"first_started_at":     res.FirstStartedAt,
		"earliest_complete_at": res.EarliestCompleteAt,
		"recommended_minutes":  res.RecommendedMinutes,
		"resumed":              res.Resumed,
	})
}

// POST /api/progress/stop
func (h *ProgressHandler) Stop(c *gin.Context) {
	userID, problemID, ok := bindProblem(c)
	if !ok {
		return
	}
	res, err := h.progress.Stop(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if !res.Stopped {
		response.RespondOK(c, gin.H{"stopped": false})
		return
	}
	response.RespondOK(c, gin.H{
		"stopped":          true,
		"session_id":       res.SessionID,
		"ended_at":         res.EndedAt,
		"duration_minutes": res.DurationMinutes,
	})
}

// POST /api/progress/complete
func (h *ProgressHandler) Complete(c *gin.Context) {
	userID, problemID, ok := bindProblem(c)
	if !ok {
		return
	}
	res, err := h.progress.Complete(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"completion_id":       res.CompletionID,
		"started_at":          res.StartedAt,
		"completed_at":        res.CompletedAt,
		"actual_minutes":      res.ActualMinutes,
		"recommended_minutes": res.RecommendedMinutes,
		"within_recommended":  res.WithinRecommended,
		"total_score":         res.TotalScore,
	})
}

// POST /api/progress/unsolve
func (h *ProgressHandler) Unsolve(c *gin.Context) {
	userID, problemID, ok := bindProblem(c)
	if !ok {
		return
	}
	res, err := h.progress.Unsolve(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"sessions_purged":      res.SessionsPurged,
		"ledger_entry_removed": res.LedgerEntryRemoved,
		"total_score":          res.TotalScore,
	})
}

// GET /api/progress/status/:problem_id
func (h *ProgressHandler) Status(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	problemID, ok := pathUUID(c, "problem_id")
	if !ok {
		return
	}
	st, err := h.progress.Status(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": st})
}

// GET /api/progress/overview
func (h *ProgressHandler) Overview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ov, err := h.progress.Overview(c.Request.Context(), userID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"overview": ov})
}

// GET /api/progress/solved
func (h *ProgressHandler) ListSolved(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	solved, err := h.progress.ListSolved(c.Request.Context(), userID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"solved": solved})
}
