package paymenthttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payflow/server/internal/model"
	apperrors "github.com/payflow/server/internal/shared/errors"
)

// handleError maps domain errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, model.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
		})
		return
	}

	c.JSON(apperrors.GetStatusCode(err), model.ErrorResponse{
		Code:    "internal_error",
		Message: "Internal server error",
	})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
