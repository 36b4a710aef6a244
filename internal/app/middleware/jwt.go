package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"estatehub-http-service/internal/domain/services"
	"estatehub-http-service/internal/error/code"
	"estatehub-http-service/internal/error/response"
)

// 上下文键
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextClaims = "claims"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(svc services.InterfaceJWTService) {
	jwtService = svc
}

// extractToken 从授权头中提取token，要求 Bearer 前缀
func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authentication 通用的认证中间件
func Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.FailWithMessage(c, code.ErrTokenInvalid, "Authorization header is required", nil)
			c.Abort()
			return
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			response.FailWithMessage(c, code.ErrTokenInvalid, "Authorization header format must be Bearer {token}", nil)
			c.Abort()
			return
		}

		if jwtService == nil {
			response.ServerError(c)
			c.Abort()
			return
		}
		claims, err := jwtService.ExtractClaims(tokenString)
		if err != nil {
			response.FailWithMessage(c, code.ErrTokenInvalid, "Invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireSuperAdmin 要求超级管理员，须在 Authentication 之后使用
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(ContextRole); role != services.RoleSuperAdmin {
			response.FailWithMessage(c, code.ErrForbidden, "Insufficient permissions: requires super admin", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 返回认证用户 ID，未认证时为 0
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
