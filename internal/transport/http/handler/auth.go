package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/transport/http/ez"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

// Auth 注册 / 登录 / 当前用户
type Auth struct{ users *service.UserService }

func NewAuth(users *service.UserService) *Auth { return &Auth{users: users} }

func (*Auth) Priority() int { return 10 }

func (h *Auth) MountAPI(g router.Groups) {
	pub := ez.New(g.Public)
	ez.RegisterAction(pub, ez.Action[service.RegisterInput, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*service.AuthResult, error) {
			return h.users.Register(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(pub, ez.Action[service.LoginInput, *service.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (*service.AuthResult, error) {
			return h.users.Login(c.Request.Context(), *in)
		},
	})

	authed := ez.New(g.Authed)
	ez.RegisterAction(authed, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/auth/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.users.Me(c.Request.Context(), ez.UserID(c))
		},
	})
}
