package handler

import (
	"errors"
	"net/http"

	"token-ledger/internal/adapter/http/dto"
	"token-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes and validates the body into req, then sanitizes it.
// A body cut off by MaxBodySize yields VAL_003, anything else VAL_001.
func bindJSON(c *gin.Context, req interface{}) *apperror.AppError {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ErrPayloadTooLarge()
		}
		return apperror.Validation(err.Error())
	}
	dto.SanitizeStruct(req)
	return nil
}
