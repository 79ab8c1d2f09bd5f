package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/transport/http/middleware"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type echoIn struct {
	Name  string `json:"name" binding:"required"`
	Count int    `json:"count" binding:"min=1,max=5"`
}

func newEngine(t *testing.T, uid, role string) (*gin.Engine, EZ) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("")
	g.Use(func(c *gin.Context) {
		if uid != "" {
			c.Set(middleware.KeyUserID, uid)
			c.Set(middleware.KeyRole, role)
		}
		c.Next()
	})
	return r, New(g)
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w, env
}

func TestRegisterActionBindingAndStatus(t *testing.T) {
	r, e := newEngine(t, "u1", domain.RoleUser)
	RegisterAction(e, Action[echoIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *echoIn) (gin.H, error) {
			return gin.H{"name": in.Name, "uid": UserID(c)}, nil
		},
	})

	w, env := do(t, r, http.MethodPost, "/echo", `{"name":"a","count":2}`)
	if w.Code != http.StatusCreated || env.Code != 0 {
		t.Fatalf("status = %d code = %d", w.Code, env.Code)
	}

	w, env = do(t, r, http.MethodPost, "/echo", `{"count":9}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var fe fieldErrors
	if err := json.Unmarshal(env.Data, &fe); err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, f := range fe.Errors {
		got[f.Field] = f.Message
	}
	if got["name"] != "is required" || got["count"] != "must be at most 5" {
		t.Fatalf("field errors = %+v", fe.Errors)
	}

	w, env = do(t, r, http.MethodPost, "/echo", `{"name":1}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(string(env.Data), "name") {
		t.Fatalf("type error = %d %s", w.Code, env.Data)
	}
}

func TestRegisterActionAuth(t *testing.T) {
	r, e := newEngine(t, "", "")
	RegisterAction(e, Action[struct{}, gin.H]{
		Method:  http.MethodGet,
		Path:    "/secret",
		Auth:    true,
		Handler: func(*gin.Context, *struct{}) (gin.H, error) { return gin.H{}, nil },
	})
	if w, _ := do(t, r, http.MethodGet, "/secret", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	r, e = newEngine(t, "u1", domain.RoleUser)
	RegisterAction(e, Action[struct{}, gin.H]{
		Method:  http.MethodGet,
		Path:    "/admin",
		Auth:    true,
		Roles:   []string{domain.RoleAdmin},
		Handler: func(*gin.Context, *struct{}) (gin.H, error) { return gin.H{}, nil },
	})
	if w, _ := do(t, r, http.MethodGet, "/admin", ""); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestFailMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("%w: hiring record", domain.ErrNotFound), 404, "not found: hiring record"},
		{domain.ErrDuplicateReview, 400, ""},
		{fmt.Errorf("%w: x", domain.ErrInvalidReference), 400, ""},
		{fmt.Errorf("%w: active -> active", domain.ErrInvalidTransition), 409, ""},
		{domain.ErrConflict, 409, ""},
		{domain.ErrUnauthorized, 401, ""},
		{domain.ErrForbidden, 403, ""},
		{domain.Invalid("rating", "bad"), 400, "validation failed"},
		{NotFound("user not found"), 404, "user not found"},
		{errors.New("dial tcp 10.0.0.1: secret dsn"), 500, "internal error"},
		{fmt.Errorf("save rating aggregate: %w", errors.New("database is locked")), 500, "internal error"},
		{Internal("list users failed", errors.New("boom")), 500, "list users failed"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r, e := newEngine(t, "", "")
			RegisterAction(e, Action[struct{}, gin.H]{
				Method:  http.MethodGet,
				Path:    "/x",
				Handler: func(*gin.Context, *struct{}) (gin.H, error) { return nil, tt.err },
			})
			w, env := do(t, r, http.MethodGet, "/x", "")
			if w.Code != tt.status || env.Code != tt.status {
				t.Fatalf("status = %d code = %d, want %d", w.Code, env.Code, tt.status)
			}
			if tt.msg != "" && env.Msg != tt.msg {
				t.Fatalf("msg = %q, want %q", env.Msg, tt.msg)
			}
		})
	}
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, err := ParamID(c, "id")
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	for path, want := range map[string]int{"/items/7": 200, "/items/0": 400, "/items/abc": 400, "/items/-1": 400} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s = %d, want %d", path, w.Code, want)
		}
	}
}
