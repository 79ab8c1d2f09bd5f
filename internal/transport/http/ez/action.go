package ez

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/transport/http/middleware"
	resp "github.com/Anlan01819/AIteammate/internal/transport/http/response"
)

// 字段错误用 json/form 名字而不是 Go 字段名
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr 传输层错误，Code 即业务码
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // GET / POST / PUT / PATCH / DELETE
	Path    string   // 例："/hiring/:id/status"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 限定角色（可选）
	Status  int      // 成功时的 HTTP 状态，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 鉴权；角色由前置的 RequireRole 处理
		if a.Auth && UserID(c) == "" {
			resp.Abort(c, resp.CodeUnauthorized, "unauthorized")
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			Fail(c, bindError(bindErr))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	chain := []gin.HandlerFunc{h}
	if len(a.Roles) > 0 {
		chain = append([]gin.HandlerFunc{middleware.RequireRole(a.Roles...)}, chain...)
	}
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, chain...)
	case http.MethodPut:
		e.g.PUT(a.Path, chain...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, chain...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, chain...)
	default: // 默认 POST
		e.g.POST(a.Path, chain...)
	}
}

// Fail 统一错误映射；500 不回传内部错误文本
func Fail(c *gin.Context, err error) {
	code, msg, data := classify(err)
	if code >= resp.CodeServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(resp.HTTPStatus(code), resp.ErrorWithData(code, msg, data))
}

type fieldErrors struct {
	Errors []domain.FieldError `json:"errors"`
}

func classify(err error) (code int, msg string, data any) {
	var ae *AErr
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ae):
		if ae.Code >= resp.CodeServerError {
			return ae.Code, ae.Msg, nil
		}
		return ae.Code, ae.Error(), nil
	case errors.As(err, &ve):
		return resp.CodeBadRequest, "validation failed", fieldErrors{Errors: ve.Fields}
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, err.Error(), nil
	case errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrDuplicate):
		return resp.CodeBadRequest, err.Error(), nil
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict):
		return resp.CodeConflict, err.Error(), nil
	case errors.Is(err, domain.ErrUnauthorized):
		return resp.CodeUnauthorized, err.Error(), nil
	case errors.Is(err, domain.ErrForbidden):
		return resp.CodeForbidden, err.Error(), nil
	case errors.Is(err, context.DeadlineExceeded):
		return resp.CodeTimeout, "timeout", nil
	default:
		return resp.CodeServerError, "internal error", nil
	}
}

// bindError 绑定/校验失败转成字段错误
func bindError(err error) error {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var tooLarge *http.MaxBytesError
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &tooLarge):
		return &AErr{Code: resp.CodeTooLarge, Msg: "request body too large"}
	case errors.As(err, &verrs):
		ve := &domain.ValidationError{}
		for _, fe := range verrs {
			ve.Add(fe.Field(), describe(fe))
		}
		return ve
	case errors.As(err, &typeErr):
		return domain.Invalid(typeErr.Field, "must be a "+typeErr.Type.String())
	case errors.As(err, &numErr):
		return BadRequest("invalid number: " + numErr.Num)
	case errors.Is(err, io.EOF):
		return BadRequest("request body is required")
	default:
		return BadRequest("invalid request")
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// UserID 由 AuthJWT 写入
func UserID(c *gin.Context) string { return c.GetString(middleware.KeyUserID) }

// ParamID 路径中的正整数 id
func ParamID(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || n == 0 {
		return 0, domain.Invalid(name, "must be a positive integer")
	}
	return uint(n), nil
}
