package middleware

import (
	"context"
	"strings"

	"Lee_Social/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

type sessionChecker interface {
	CheckSession(ctx context.Context, userID, token string) error
}

func abort(c *gin.Context, err error) {
	status, body := pkg.ToResponse(err)
	c.AbortWithStatusJSON(status, body)
}

// bearerToken 优先取 Authorization 头，浏览器的 EventSource/WebSocket 无法带头时退回 ?token=
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if t := c.Query("token"); t != "" {
			return t, nil
		}
		return "", pkg.ErrUnauthorized
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", pkg.ErrTokenInvalid
	}
	return parts[1], nil
}

func AuthMiddleware(tokens *pkg.TokenManager, sessions sessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c)
		if err != nil {
			abort(c, err)
			return
		}

		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			abort(c, err)
			return
		}

		// redis校验是否是当前有效的token
		if sessions != nil {
			if err := sessions.CheckSession(c.Request.Context(), claims.UserID, tokenStr); err != nil {
				abort(c, err)
				return
			}
		}

		// 注入 user_id
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
