package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentiby/tracker-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes e with its Extra fields merged into the error object.
func RespondAPIError(c *gin.Context, e *apierr.Error) {
	if len(e.Extra) == 0 {
		RespondError(c, e.Status, e.Code, e)
		return
	}
	body := gin.H{"message": e.Error(), "code": e.Code}
	for k, v := range e.Extra {
		body[k] = v
	}
	c.JSON(e.Status, gin.H{"error": body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
