package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"Community_Feed/internal/pkg"
	"Community_Feed/internal/service"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

const (
	msgMissingHeader = "Authentication credentials were not provided."
	msgBadFormat     = "Invalid authorization header format."
	msgBadToken      = "Invalid or expired token."
	msgElsewhere     = "Account has been logged in elsewhere."
)

// Auth Bearer JWT 校验；配置了 token 存储时还要求与最近一次登录的 token 一致
type Auth struct {
	issuer *pkg.TokenIssuer
	tokens service.TokenStore
}

func NewAuth(issuer *pkg.TokenIssuer, tokens service.TokenStore) *Auth {
	return &Auth{issuer: issuer, tokens: tokens}
}

// Required 必须登录
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, msg := a.authenticate(c)
		if msg == "" && userID == 0 {
			msg = msgMissingHeader
		}
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": msg})
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// Optional 匿名放行，但带了坏 token 仍然 401
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, msg := a.authenticate(c)
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": msg})
			return
		}
		if userID != 0 {
			c.Set(ContextUserIDKey, userID)
		}
		c.Next()
	}
}

// authenticate 没有 Authorization 头时返回 0 与空消息；失败时返回错误提示
func (a *Auth) authenticate(c *gin.Context) (uint64, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return 0, ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return 0, msgBadFormat
	}

	tokenStr := parts[1]
	claims, err := a.issuer.ParseAccess(tokenStr)
	if err != nil {
		return 0, msgBadToken
	}

	if a.tokens != nil {
		ctx := c.Request.Context()
		origin, err := a.tokens.Get(ctx, claims.UserID)
		if err != nil || origin != tokenStr {
			return 0, msgElsewhere
		}
		// 校验通过后更新过期时间；续期失败不拒绝本次请求
		if err := a.tokens.Extend(ctx, claims.UserID); err != nil {
			slog.Warn("extend login token failed", "user_id", claims.UserID, "err", err)
		}
	}
	return claims.UserID, ""
}

// UserID 未登录返回 0
func UserID(c *gin.Context) uint64 {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}
