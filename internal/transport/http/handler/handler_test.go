package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/core/auth"
	"github.com/Anlan01819/AIteammate/internal/core/config"
	"github.com/Anlan01819/AIteammate/internal/core/events"
	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/repo"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/testutil"
	"github.com/Anlan01819/AIteammate/internal/transport/http/handler"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type app struct {
	t     *testing.T
	store *repo.Store
	jwt   *auth.JWTer
	api   *gin.Engine
	admin *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	store := testutil.NewStore(t)
	return newAppOn(t, store, store)
}

// newAppOn 服务走 svcStore，造数走 store
func newAppOn(t *testing.T, store *repo.Store, svcStore domain.Store) *app {
	t.Helper()
	jwt := auth.NewJWTer("test-secret", "aiteammate", time.Hour)
	d := service.Deps{Store: svcStore, Log: zap.NewNop(), Events: &events.Recorder{}}
	agg := service.NewRatingAggregator(d.Log)
	users := service.NewUserService(d, jwt)
	reg := router.NewRegistry(
		handler.NewAuth(users),
		handler.NewUser(users, service.NewFavoriteService(d)),
		handler.NewEmployee(service.NewEmployeeService(d, agg)),
		handler.NewHiring(service.NewHiringService(d)),
		handler.NewReview(service.NewReviewService(d, agg)),
	)
	o := router.Options{Name: "test", Mode: gin.TestMode, JWT: jwt, Users: users, Registry: reg}
	return &app{t: t, store: store, jwt: jwt, api: router.NewAPIEngine(o), admin: router.NewAdminEngine(o)}
}

func (a *app) token(u *domain.User) string {
	a.t.Helper()
	tok, err := a.jwt.Issue(u.ID, u.Role)
	if err != nil {
		a.t.Fatal(err)
	}
	return tok
}

func (a *app) call(h http.Handler, method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestHiringAndReviewFlow(t *testing.T) {
	a := newApp(t)
	e := testutil.SeedEmployee(t, a.store)

	code, env := a.call(a.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "lin@example.com", "password": "secret1", "username": "lin",
	})
	if code != http.StatusCreated {
		t.Fatalf("register = %d %s", code, env.Msg)
	}
	reg := decode[service.AuthResult](t, env.Data)

	code, env = a.call(a.api, http.MethodPost, "/api/v1/hiring", reg.Token, gin.H{
		"ai_employee_id": e.ID, "hire_type": "hourly", "rate": 80, "start_date": "2024-05-01T09:00:00Z",
		"task_description": "write release notes",
	})
	if code != http.StatusCreated || env.Code != 0 {
		t.Fatalf("create hiring = %d %s", code, env.Msg)
	}
	rec := decode[domain.HiringRecord](t, env.Data)
	if rec.Status != domain.HiringActive || rec.Employee == nil {
		t.Fatalf("record = %+v", rec)
	}

	// 员工已被占用
	code, _ = a.call(a.api, http.MethodPost, "/api/v1/hiring", reg.Token, gin.H{
		"ai_employee_id": e.ID, "hire_type": "hourly", "rate": 80, "start_date": "2024-05-01",
	})
	if code != http.StatusNotFound {
		t.Fatalf("double hire = %d, want 404", code)
	}

	path := fmt.Sprintf("/api/v1/hiring/%d/status", rec.ID)
	if code, _ = a.call(a.api, http.MethodPatch, path, reg.Token, gin.H{"status": "in_progress"}); code != http.StatusBadRequest {
		t.Fatalf("legacy status = %d, want 400", code)
	}
	code, env = a.call(a.api, http.MethodPatch, path, reg.Token, gin.H{"status": "completed", "total_cost": 160})
	if code != http.StatusOK {
		t.Fatalf("complete = %d %s", code, env.Msg)
	}
	if code, _ = a.call(a.api, http.MethodPatch, path, reg.Token, gin.H{"status": "cancelled"}); code != http.StatusConflict {
		t.Fatalf("terminal transition = %d, want 409", code)
	}

	review := gin.H{"ai_employee_id": e.ID, "hiring_record_id": rec.ID, "rating": 5, "comment": "great"}
	if code, env = a.call(a.api, http.MethodPost, "/api/v1/reviews", reg.Token, review); code != http.StatusCreated {
		t.Fatalf("review = %d %s", code, env.Msg)
	}
	if code, _ = a.call(a.api, http.MethodPost, "/api/v1/reviews", reg.Token, review); code != http.StatusBadRequest {
		t.Fatalf("duplicate review = %d, want 400", code)
	}

	code, env = a.call(a.api, http.MethodGet, fmt.Sprintf("/api/v1/reviews/employee/%d", e.ID), "", nil)
	if code != http.StatusOK {
		t.Fatalf("employee reviews = %d", code)
	}
	list := decode[service.EmployeeReviews](t, env.Data)
	if list.Statistics.AverageRating != 5 || list.Statistics.TotalReviews != 1 || len(list.Statistics.RatingDistribution) != 5 {
		t.Fatalf("statistics = %+v", list.Statistics)
	}

	code, env = a.call(a.api, http.MethodGet, fmt.Sprintf("/api/v1/employees/%d", e.ID), "", nil)
	if code != http.StatusOK {
		t.Fatalf("employee detail = %d", code)
	}
	detail := decode[service.EmployeeDetail](t, env.Data)
	if detail.Employee.Rating != 5 || detail.Employee.Status != domain.EmployeeAvailable || len(detail.RecentReviews) != 1 {
		t.Fatalf("detail = %+v", detail.Employee)
	}

	code, env = a.call(a.api, http.MethodGet, "/api/v1/hiring/statistics", reg.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("statistics = %d", code)
	}
	st := decode[service.HiringStatistics](t, env.Data)
	if st.TotalHires != 1 || st.TotalCost != 160 || st.AverageRating != 5 {
		t.Fatalf("hiring statistics = %+v", st)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newApp(t)
	if code, _ := a.call(a.api, http.MethodGet, "/api/v1/hiring/my-records", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", code)
	}
	if code, _ := a.call(a.api, http.MethodGet, "/api/v1/auth/me", "garbage", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", code)
	}

	u := testutil.SeedUser(t, a.store, domain.RoleUser)
	tok := a.token(u)
	code, env := a.call(a.api, http.MethodGet, "/api/v1/auth/me", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("me = %d", code)
	}
	me := decode[map[string]any](t, env.Data)
	if me["id"] != u.ID {
		t.Fatalf("me = %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Fatal("password hash leaked")
	}

	if _, err := a.store.Users().SoftDelete(context.Background(), u.ID); err != nil {
		t.Fatal(err)
	}
	if code, _ := a.call(a.api, http.MethodGet, "/api/v1/auth/me", tok, nil); code != http.StatusUnauthorized {
		t.Fatalf("banned user = %d, want 401", code)
	}
}

func TestLoginAndValidation(t *testing.T) {
	a := newApp(t)
	code, env := a.call(a.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "nobody@example.com"})
	if code != http.StatusBadRequest {
		t.Fatalf("missing password = %d", code)
	}
	fields := decode[struct {
		Errors []domain.FieldError `json:"errors"`
	}](t, env.Data)
	if len(fields.Errors) != 1 || fields.Errors[0].Field != "password" {
		t.Fatalf("field errors = %+v", fields.Errors)
	}
	if code, _ = a.call(a.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "nobody@example.com", "password": "x"}); code != http.StatusUnauthorized {
		t.Fatalf("unknown user = %d, want 401", code)
	}
	if code, _ = a.call(a.api, http.MethodGet, "/api/v1/employees?limit=500", "", nil); code != http.StatusBadRequest {
		t.Fatalf("limit 500 = %d, want 400", code)
	}
	if code, _ = a.call(a.api, http.MethodGet, "/api/v1/employees?sortBy=password", "", nil); code != http.StatusBadRequest {
		t.Fatalf("sortBy = %d, want 400", code)
	}
	if code, _ = a.call(a.api, http.MethodGet, "/api/v1/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", code)
	}
}

func TestFavoritesAndDashboard(t *testing.T) {
	a := newApp(t)
	u := testutil.SeedUser(t, a.store, domain.RoleUser)
	e := testutil.SeedEmployee(t, a.store)
	tok := a.token(u)

	if code, _ := a.call(a.api, http.MethodPost, "/api/v1/users/favorites", tok, gin.H{"ai_employee_id": e.ID}); code != http.StatusCreated {
		t.Fatalf("add favorite = %d", code)
	}
	if code, _ := a.call(a.api, http.MethodPost, "/api/v1/users/favorites", tok, gin.H{"ai_employee_id": e.ID}); code != http.StatusBadRequest {
		t.Fatalf("duplicate favorite = %d", code)
	}
	code, env := a.call(a.api, http.MethodGet, "/api/v1/users/dashboard", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("dashboard = %d", code)
	}
	d := decode[service.Dashboard](t, env.Data)
	if len(d.FavoriteEmployees) != 1 {
		t.Fatalf("dashboard = %+v", d)
	}
	path := fmt.Sprintf("/api/v1/users/favorites/%d", e.ID)
	if code, _ := a.call(a.api, http.MethodDelete, path, tok, nil); code != http.StatusOK {
		t.Fatalf("remove favorite = %d", code)
	}
	if code, _ := a.call(a.api, http.MethodDelete, path, tok, nil); code != http.StatusNotFound {
		t.Fatalf("remove again = %d", code)
	}
}

func TestAdminRoles(t *testing.T) {
	a := newApp(t)
	user := testutil.SeedUser(t, a.store, domain.RoleUser)
	hr := testutil.SeedUser(t, a.store, domain.RoleHR)
	admin := testutil.SeedUser(t, a.store, domain.RoleAdmin)

	if code, _ := a.call(a.admin, http.MethodGet, "/admin/v1/users", a.token(user), nil); code != http.StatusForbidden {
		t.Fatalf("user on admin = %d, want 403", code)
	}
	if code, _ := a.call(a.admin, http.MethodGet, "/admin/v1/users", a.token(hr), nil); code != http.StatusForbidden {
		t.Fatalf("hr listing users = %d, want 403", code)
	}

	newEmp := gin.H{"employee_id": "AI-900", "name": "Analyst", "category": "data", "hourly_rate": 20, "monthly_rate": 2000}
	code, env := a.call(a.admin, http.MethodPost, "/admin/v1/employees", a.token(hr), newEmp)
	if code != http.StatusCreated {
		t.Fatalf("hr create employee = %d %s", code, env.Msg)
	}
	emp := decode[domain.AIEmployee](t, env.Data)
	if code, _ = a.call(a.admin, http.MethodPost, fmt.Sprintf("/admin/v1/employees/%d/recompute-rating", emp.ID), a.token(hr), nil); code != http.StatusForbidden {
		t.Fatalf("hr recompute = %d, want 403", code)
	}
	if code, _ = a.call(a.admin, http.MethodPost, fmt.Sprintf("/admin/v1/employees/%d/recompute-rating", emp.ID), a.token(admin), nil); code != http.StatusOK {
		t.Fatalf("admin recompute = %d", code)
	}

	code, env = a.call(a.admin, http.MethodGet, "/admin/v1/users?limit=10", a.token(admin), nil)
	if code != http.StatusOK {
		t.Fatalf("admin list = %d", code)
	}
	if l := decode[service.UserList](t, env.Data); l.Total != 3 {
		t.Fatalf("total = %d", l.Total)
	}
	if code, _ = a.call(a.admin, http.MethodPost, "/admin/v1/users/"+user.ID+"/ban", a.token(admin), nil); code != http.StatusOK {
		t.Fatalf("ban = %d", code)
	}
	if code, _ = a.call(a.api, http.MethodGet, "/api/v1/auth/me", a.token(user), nil); code != http.StatusUnauthorized {
		t.Fatalf("banned me = %d", code)
	}
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.api.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestReviewRecomputeFailureIsInternalError(t *testing.T) {
	store := testutil.NewStore(t)
	faulty := testutil.NewFaultyStore(store)
	a := newAppOn(t, store, faulty)
	u := testutil.SeedUser(t, a.store, domain.RoleUser)
	e := testutil.SeedEmployee(t, a.store)
	rec := testutil.SeedHiring(t, a.store, u.ID, e.ID, domain.HiringCompleted)

	faulty.FailAggregates(true)
	code, env := a.call(a.api, http.MethodPost, "/api/v1/reviews", a.token(u), gin.H{
		"ai_employee_id": e.ID, "hiring_record_id": rec.ID, "rating": 5,
	})
	if code != http.StatusInternalServerError || env.Msg != "internal error" {
		t.Fatalf("create review = %d %q", code, env.Msg)
	}
	if exists, err := a.store.Reviews().ExistsForHiring(context.Background(), rec.ID); err != nil || exists {
		t.Fatalf("review persisted after failure: %v %v", exists, err)
	}
}

func TestPerIPLimitFromConfig(t *testing.T) {
	api := router.NewAPIEngine(router.Options{
		Name: "test", Mode: gin.TestMode,
		Limits: config.Limits{PerIPRPS: 0.001, PerIPBurst: 1, PerIPMaxClients: 16},
	})
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)
		return w.Code
	}
	if hit("192.0.2.1") != http.StatusOK {
		t.Fatal("first request limited")
	}
	if code := hit("192.0.2.1"); code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", code)
	}
	if hit("192.0.2.2") != http.StatusOK {
		t.Fatal("other client shares the bucket")
	}
}
