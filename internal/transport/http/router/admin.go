package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	mdw "github.com/Anlan01819/AIteammate/internal/transport/http/middleware"
)

// NewAdminEngine 管理端 /admin/v1，分组只放行 hr / admin，具体接口再细分角色
func NewAdminEngine(o Options) *gin.Engine {
	r := newEngine(o)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(o.JWT, o.Users), mdw.RequireRole(domain.RoleHR, domain.RoleAdmin))

	if o.Registry != nil {
		o.Registry.MountAllAdmin(admin)
	}
	return r
}
