package middleware

import (
	"context"

	"Lee_Social/internal/pkg"

	"github.com/gin-gonic/gin"
)

type adminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AdminMiddleware 必须放在 AuthMiddleware 之后，角色以用户表为准而不是令牌里的声明
func AdminMiddleware(users adminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			abort(c, pkg.ErrUnauthorized)
			return
		}
		ok, err := users.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			abort(c, err)
			return
		}
		if !ok {
			abort(c, pkg.ErrForbidden)
			return
		}
		c.Next()
	}
}
