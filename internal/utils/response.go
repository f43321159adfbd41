package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/apperrors"
)

// Every response uses the same envelope: {"error": null, "data": ...} on
// success and {"error": {"code", "message"}} on failure.

func OK(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, gin.H{"error": nil, "data": data})
}

func Fail(ctx *gin.Context, err error) {
	appErr := asAppError(err)
	ctx.JSON(apperrors.StatusOf(appErr.Kind), gin.H{"error": appErr})
}

// AbortWith is Fail for middleware: it also stops the handler chain.
func AbortWith(ctx *gin.Context, err error) {
	appErr := asAppError(err)
	ctx.AbortWithStatusJSON(apperrors.StatusOf(appErr.Kind), gin.H{"error": appErr})
}

func asAppError(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal("Error interno del servidor")
}
