package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mentiby/tracker-backend/internal/http/response"
	"github.com/mentiby/tracker-backend/internal/services"
)

type LedgerHandler struct {
	scores services.ScoreService
}

func NewLedgerHandler(scores services.ScoreService) *LedgerHandler {
	return &LedgerHandler{scores: scores}
}

// GET /api/ledger
// Reconciles the caller's ledger before reading it.
func (h *LedgerHandler) GetProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := h.scores.GetUserProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

// GET /api/ledger/stats
func (h *LedgerHandler) Stats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	stats, err := h.scores.Stats(c.Request.Context(), userID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// POST /api/ledger/solve
// body: { "problem_id": "<uuid>" }
func (h *LedgerHandler) Solve(c *gin.Context) {
	userID, problemID, ok := bindProblem(c)
	if !ok {
		return
	}
	res, err := h.scores.MarkSolved(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"total_score": res.TotalScore})
}

// POST /api/ledger/unsolve
func (h *LedgerHandler) Unsolve(c *gin.Context) {
	userID, problemID, ok := bindProblem(c)
	if !ok {
		return
	}
	res, err := h.scores.MarkUnsolved(c.Request.Context(), userID, problemID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"total_score": res.TotalScore})
}

// POST /api/ledger/reconcile
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	res, err := h.scores.ReconcileUser(c.Request.Context(), userID, false)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"removed_count":   res.RemovedCount,
		"new_total_score": res.NewTotalScore,
		"changed":         res.Changed,
	})
}
