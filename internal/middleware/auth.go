package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"socialpulse/internal/models"
)

const CheckUserKey = "user"

// SessionUserKey 会话中保存用户 id 的键，登录由外部账号服务完成
const SessionUserKey = "user_id"

// CurrentUser 返回 LoadUser 放入上下文的用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// LoadUser retrieves user from session and sets to context
func LoadUser(conn *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, _ := session.Get(SessionUserKey).(string)

		if userID != "" {
			var user models.User
			err := conn.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error
			switch {
			case err == nil && user.Status != models.UserStatusBanned:
				c.Set(CheckUserKey, &user)
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				log.Warn("load session user", zap.String("user_id", userID), zap.Error(err))
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// AdminRequired 必须在 AuthRequired 之后
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := CurrentUser(c); u == nil || !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
