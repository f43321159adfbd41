package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/types"
)

func CurrentClaims(ctx *gin.Context) (*auth.Claims, error) {
	value, exists := ctx.Get(types.ContextClaimsKey)

	if !exists {
		return nil, fmt.Errorf("user not authenticated")
	}

	claims, ok := value.(*auth.Claims)

	if !ok {
		return nil, fmt.Errorf("invalid claims type in context")
	}

	return claims, nil
}
