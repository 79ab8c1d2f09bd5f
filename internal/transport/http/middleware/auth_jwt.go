package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/core/auth"
	"github.com/Anlan01819/AIteammate/internal/domain"
	resp "github.com/Anlan01819/AIteammate/internal/transport/http/response"
)

const (
	KeyUserID = "userId"
	KeyRole   = "role"
	KeyClaims = "claims"
)

// UserResolver 令牌中的用户必须仍然有效
type UserResolver interface {
	Resolve(ctx context.Context, uid string) (*domain.User, error)
}

// AuthJWT 校验 Bearer 令牌并写入 userId/role；角色限制交给 RequireRole
func AuthJWT(j *auth.JWTer, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")))
		if err != nil {
			resp.Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		role := claims.Role
		if users != nil {
			u, err := users.Resolve(c.Request.Context(), claims.UID)
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				resp.Abort(c, resp.CodeUnauthorized, "user no longer active")
				return
			case err != nil:
				resp.Abort(c, resp.CodeServerError, "")
				return
			}
			// 以库中角色为准
			role = u.Role
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyRole, role)
		c.Next()
	}
}

// RequireRole 需挂在 AuthJWT 之后；没有身份时按未登录处理
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(KeyUserID) == "" {
			resp.Abort(c, resp.CodeUnauthorized, "unauthorized")
			return
		}
		if !hasRole(c.GetString(KeyRole), roles) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
