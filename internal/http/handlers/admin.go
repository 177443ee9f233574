package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mentiby/tracker-backend/internal/http/response"
	"github.com/mentiby/tracker-backend/internal/services"
)

type AdminHandler struct {
	catalogue services.CatalogueService
	scores    services.ScoreService
}

func NewAdminHandler(catalogue services.CatalogueService, scores services.ScoreService) *AdminHandler {
	return &AdminHandler{catalogue: catalogue, scores: scores}
}

// DELETE /api/admin/problems/:problem_id
func (h *AdminHandler) DeleteProblem(c *gin.Context) {
	problemID, ok := pathUUID(c, "problem_id")
	if !ok {
		return
	}
	ev, err := h.catalogue.DeleteProblem(c.Request.Context(), problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": ev})
}

// POST /api/admin/reconcile?dry_run=true
func (h *AdminHandler) Sweep(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))
	rep, err := h.scores.ReconcileAll(c.Request.Context(), services.SweepOptions{Trigger: "admin", DryRun: dryRun})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sweep": rep})
}

// GET /api/admin/reconcile/runs?limit=20
func (h *AdminHandler) ListSweeps(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 20
	}
	runs, err := h.scores.RecentSweeps(c.Request.Context(), limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}
