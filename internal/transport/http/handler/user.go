package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/transport/http/ez"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

// User 个人资料、仪表盘、收藏；管理端用户列表与封禁
type User struct {
	users     *service.UserService
	favorites *service.FavoriteService
}

func NewUser(users *service.UserService, favorites *service.FavoriteService) *User {
	return &User{users: users, favorites: favorites}
}

func (h *User) MountAPI(g router.Groups) {
	e := ez.New(g.Authed)

	ez.RegisterAction(e, ez.Action[service.ProfileInput, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/profile",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ProfileInput) (*domain.User, error) {
			return h.users.UpdateProfile(c.Request.Context(), ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[service.PasswordInput, gin.H]{
		Method: http.MethodPut,
		Path:   "/users/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.PasswordInput) (gin.H, error) {
			if err := h.users.ChangePassword(c.Request.Context(), ez.UserID(c), *in); err != nil {
				return nil, err
			}
			return gin.H{"updated": true}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, *service.Dashboard]{
		Method: http.MethodGet,
		Path:   "/users/dashboard",
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Dashboard, error) {
			return h.users.Dashboard(c.Request.Context(), ez.UserID(c))
		},
	})

	// 收藏
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/users/favorites",
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			list, err := h.favorites.List(c.Request.Context(), ez.UserID(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"favorites": list}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[service.FavoriteInput, *domain.Favorite]{
		Method: http.MethodPost,
		Path:   "/users/favorites",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.FavoriteInput) (*domain.Favorite, error) {
			return h.favorites.Add(c.Request.Context(), ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/favorites/:aiEmployeeId",
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id, err := ez.ParamID(c, "aiEmployeeId")
			if err != nil {
				return nil, err
			}
			if err := h.favorites.Remove(c.Request.Context(), ez.UserID(c), id); err != nil {
				return nil, err
			}
			return gin.H{"ai_employee_id": id}, nil
		},
	})
}

// MountAdmin --- /admin/v1/users 仅 admin ---
func (h *User) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	ez.RegisterAction(e, ez.Action[service.UserListQuery, *service.UserList]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, in *service.UserListQuery) (*service.UserList, error) {
			return h.users.List(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id == ez.UserID(c) {
				return nil, ez.BadRequest("cannot ban yourself")
			}
			if err := h.users.Ban(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
