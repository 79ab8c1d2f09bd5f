package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/transport/http/ez"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

// Employee 公开目录；管理端录入与评分修复
type Employee struct{ employees *service.EmployeeService }

func NewEmployee(employees *service.EmployeeService) *Employee {
	return &Employee{employees: employees}
}

func (h *Employee) MountAPI(g router.Groups) {
	e := ez.New(g.Public)

	ez.RegisterAction(e, ez.Action[service.EmployeeListQuery, *service.EmployeePage]{
		Method: http.MethodGet,
		Path:   "/employees",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *service.EmployeeListQuery) (*service.EmployeePage, error) {
			return h.employees.List(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/employees/featured",
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			list, err := h.employees.Featured(c.Request.Context())
			if err != nil {
				return nil, err
			}
			return gin.H{"employees": list}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, *service.EmployeeDetail]{
		Method: http.MethodGet,
		Path:   "/employees/:id",
		Handler: func(c *gin.Context, _ *struct{}) (*service.EmployeeDetail, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.employees.Get(c.Request.Context(), id)
		},
	})
}

func (h *Employee) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	// HR 与 admin 都可录入
	ez.RegisterAction(e, ez.Action[service.CreateEmployeeInput, *domain.AIEmployee]{
		Method: http.MethodPost,
		Path:   "/employees",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  []string{domain.RoleHR, domain.RoleAdmin},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.CreateEmployeeInput) (*domain.AIEmployee, error) {
			return h.employees.Create(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, *domain.AIEmployee]{
		Method: http.MethodPost,
		Path:   "/employees/:id/recompute-rating",
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, _ *struct{}) (*domain.AIEmployee, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.employees.RecomputeRating(c.Request.Context(), id)
		},
	})
}
