package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/transport/http/ez"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

type Review struct{ reviews *service.ReviewService }

func NewReview(reviews *service.ReviewService) *Review { return &Review{reviews: reviews} }

func (h *Review) MountAPI(g router.Groups) {
	pub := ez.New(g.Public)
	ez.RegisterAction(pub, ez.Action[service.PageQuery, *service.EmployeeReviews]{
		Method: http.MethodGet,
		Path:   "/reviews/employee/:employeeId",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *service.PageQuery) (*service.EmployeeReviews, error) {
			id, err := ez.ParamID(c, "employeeId")
			if err != nil {
				return nil, err
			}
			return h.reviews.ListByEmployee(c.Request.Context(), id, *in)
		},
	})

	e := ez.New(g.Authed)
	ez.RegisterAction(e, ez.Action[service.PageQuery, *service.ReviewPage]{
		Method: http.MethodGet,
		Path:   "/reviews/my-reviews",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.PageQuery) (*service.ReviewPage, error) {
			return h.reviews.ListMine(c.Request.Context(), ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[service.CreateReviewInput, *domain.Review]{
		Method: http.MethodPost,
		Path:   "/reviews",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.CreateReviewInput) (*domain.Review, error) {
			return h.reviews.Create(c.Request.Context(), ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[service.UpdateReviewInput, *domain.Review]{
		Method: http.MethodPut,
		Path:   "/reviews/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.UpdateReviewInput) (*domain.Review, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.reviews.Update(c.Request.Context(), id, ez.UserID(c), *in)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/reviews/:id",
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			if err := h.reviews.Delete(c.Request.Context(), id, ez.UserID(c)); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
