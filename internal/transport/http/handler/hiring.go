package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/transport/http/ez"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

// Hiring 聘用记录，全部需要登录且只作用于本人记录
type Hiring struct{ hiring *service.HiringService }

func NewHiring(hiring *service.HiringService) *Hiring { return &Hiring{hiring: hiring} }

func (h *Hiring) MountAPI(g router.Groups) {
	e := ez.New(g.Authed)

	ez.RegisterAction(e, ez.Action[service.CreateHiringInput, *domain.HiringRecord]{
		Method: http.MethodPost,
		Path:   "/hiring",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.CreateHiringInput) (*domain.HiringRecord, error) {
			return h.hiring.Create(c.Request.Context(), ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[service.HiringListQuery, *service.HiringPage]{
		Method: http.MethodGet,
		Path:   "/hiring/my-records",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.HiringListQuery) (*service.HiringPage, error) {
			return h.hiring.List(c.Request.Context(), ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, *service.HiringStatistics]{
		Method: http.MethodGet,
		Path:   "/hiring/statistics",
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.HiringStatistics, error) {
			return h.hiring.Statistics(c.Request.Context(), ez.UserID(c))
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, *domain.HiringRecord]{
		Method: http.MethodGet,
		Path:   "/hiring/:id",
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.HiringRecord, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.hiring.Get(c.Request.Context(), id, ez.UserID(c))
		},
	})
	ez.RegisterAction(e, ez.Action[service.UpdateStatusInput, *domain.HiringRecord]{
		Method: http.MethodPatch,
		Path:   "/hiring/:id/status",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.UpdateStatusInput) (*domain.HiringRecord, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.hiring.UpdateStatus(c.Request.Context(), id, ez.UserID(c), *in)
		},
	})
}
