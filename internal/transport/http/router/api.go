package router

import (
	"github.com/gin-gonic/gin"

	mdw "github.com/Anlan01819/AIteammate/internal/transport/http/middleware"
)

// NewAPIEngine 用户端 /api/v1
func NewAPIEngine(o Options) *gin.Engine {
	r := newEngine(o)

	api := r.Group("/api/v1")
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(o.JWT, o.Users))

	if o.Registry != nil {
		o.Registry.MountAllAPI(Groups{Public: api, Authed: authed})
	}
	return r
}
