package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/librenovela/librenovela/internal/apperrors"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/models"
	"github.com/librenovela/librenovela/internal/types"
	"github.com/librenovela/librenovela/internal/utils"
	"gorm.io/gorm"
)

// Auth validates the auth-token header and attaches the decoded claims to
// the request context. Role checks are a separate, per-route middleware
// because several browsing routes are public.
//
// The account status is read from the table, not from the token: a ban
// must lock the account out immediately, not when the token expires.
func Auth(database *gorm.DB, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := ctx.GetHeader(types.TokenHeader)

		if tokenString == "" {
			utils.AbortWith(ctx, apperrors.Unauthorized("Acceso denegado"))
			return
		}

		claims, err := tokens.Verify(tokenString)

		if err != nil {
			utils.AbortWith(ctx, apperrors.InvalidToken("Token no válido"))
			return
		}

		var user models.User

		err = database.Select("status").First(&user, claims.UserID).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Account deleted after the token was issued.
			utils.AbortWith(ctx, apperrors.Unauthorized("Acceso denegado"))
			return
		}

		if err != nil {
			utils.AbortWith(ctx, err)
			return
		}

		if user.Status == models.StatusBanned {
			utils.AbortWith(ctx, apperrors.Forbidden("Cuenta suspendida"))
			return
		}

		claims.Status = user.Status
		ctx.Set(types.ContextClaimsKey, claims)
		ctx.Next()
	}
}

// RequireRole gates a route to the given roles. Must run after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, err := utils.CurrentClaims(ctx)

		if err != nil {
			utils.AbortWith(ctx, apperrors.Unauthorized("Acceso denegado"))
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				ctx.Next()
				return
			}
		}

		utils.AbortWith(ctx, apperrors.Forbidden("No tienes permisos para esta operación"))
	}
}
