package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mentiby/tracker-backend/internal/http/response"
	"github.com/mentiby/tracker-backend/internal/platform/ctxutil"
)

type problemRequest struct {
	ProblemID string `json:"problem_id" binding:"required"`
}

// bindProblem reads the caller and the problem id from the JSON body.
func bindProblem(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	var req problemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return uuid.Nil, uuid.Nil, false
	}
	problemID, err := uuid.Parse(req.ProblemID)
	if err != nil || problemID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_problem_id", errors.New("problem_id must be a uuid"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, problemID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, errors.New(name+" must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
		return uuid.Nil, false
	}
	return userID, true
}
