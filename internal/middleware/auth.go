package middleware

import (
	"context"
	"errors"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/util"
	"mentor_lms_backend/pkg/logger"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserLookup 按 ID 读取账号当前状态
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// AuthMiddleware 校验 token 后再读取账号：已删除返回 401，已禁用返回 403。
// 角色以数据库为准，token 签发后的角色变更立即生效。
func AuthMiddleware(cfg *config.Config, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Unauthorized(c)
			} else {
				util.LogInternalError(c, err)
			}
			c.Abort()
			return
		}
		if user.Disabled {
			logger.Log.Info("disabled account rejected", zap.Uint("userId", user.ID))
			util.Error(c, http.StatusForbidden, "account disabled")
			c.Abort()
			return
		}
		claims.Role = user.Role

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware 管理员拥有所有角色权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
