package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Anlan01819/AIteammate/internal/core/auth"
	"github.com/Anlan01819/AIteammate/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeUsers map[string]*domain.User

func (f fakeUsers) Resolve(_ context.Context, uid string) (*domain.User, error) {
	if u, ok := f[uid]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthJWT(t *testing.T) {
	j := auth.NewJWTer("k", "test", time.Hour)
	users := fakeUsers{
		"u1": {ID: "u1", Role: domain.RoleUser},
		"a1": {ID: "a1", Role: domain.RoleAdmin},
	}
	r := gin.New()
	r.GET("/me", AuthJWT(j, users), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(KeyUserID)+":"+c.GetString(KeyRole))
	})
	r.GET("/admin", AuthJWT(j, users), RequireRole(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok := func(uid, role string) string {
		s, err := j.Issue(uid, role)
		if err != nil {
			t.Fatal(err)
		}
		return "Bearer " + s
	}
	// 令牌里自称 admin，库里是 user
	forged := tok("u1", domain.RoleAdmin)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing", "/me", "", http.StatusUnauthorized},
		{"garbage", "/me", "Bearer abc", http.StatusUnauthorized},
		{"unknown user", "/me", tok("ghost", domain.RoleUser), http.StatusUnauthorized},
		{"ok", "/me", tok("u1", domain.RoleUser), http.StatusOK},
		{"role from store", "/admin", forged, http.StatusForbidden},
		{"admin", "/admin", tok("a1", domain.RoleAdmin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", forged)
	if body := serve(r, req).Body.String(); body != "u1:user" {
		t.Fatalf("context = %q", body)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(rate.Every(time.Hour), 2), func(c *gin.Context) { c.Status(http.StatusOK) })
	got := []int{}
	for i := 0; i < 3; i++ {
		got = append(got, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	if got[0] != http.StatusOK || got[1] != http.StatusOK || got[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", got)
	}

	open := gin.New()
	open.GET("/", RateLimit(0, 0), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		if code := serve(open, httptest.NewRequest(http.MethodGet, "/", nil)).Code; code != http.StatusOK {
			t.Fatalf("unlimited = %d", code)
		}
	}
}

func perIPEngine(maxClients int, idle time.Duration) func(ip string) int {
	r := gin.New()
	r.GET("/", RateLimitPerIP(rate.Every(time.Hour), 1, maxClients, idle), func(c *gin.Context) { c.Status(http.StatusOK) })
	return func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}
}

// fakeClock 替换限速器的时钟，测试结束恢复
func fakeClock(t *testing.T) *time.Time {
	t.Helper()
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return clock }
	t.Cleanup(func() { now = time.Now })
	return &clock
}

func TestRateLimitPerIP(t *testing.T) {
	fakeClock(t)
	call := perIPEngine(10, time.Hour)
	if call("10.0.0.1") != http.StatusOK || call("10.0.0.1") != http.StatusTooManyRequests {
		t.Fatal("same ip should be limited")
	}
	if call("10.0.0.2") != http.StatusOK {
		t.Fatal("other ip has its own bucket")
	}
}

func TestRateLimitPerIPEvictsOldestWhenFull(t *testing.T) {
	clock := fakeClock(t)
	call := perIPEngine(2, time.Hour)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		if call(ip) != http.StatusOK {
			t.Fatalf("%s first request limited", ip)
		}
		*clock = clock.Add(time.Second)
	}
	if call("10.0.0.2") != http.StatusTooManyRequests {
		t.Fatal("10.0.0.2 should be limited")
	}
	*clock = clock.Add(time.Second)
	// 第三个 IP 挤掉最久未见的 10.0.0.1
	if call("10.0.0.3") != http.StatusOK {
		t.Fatal("new ip rejected when table is full")
	}
	if call("10.0.0.1") != http.StatusOK {
		t.Fatal("evicted ip should start with a fresh bucket")
	}
	// 10.0.0.1 回来时挤掉的是 10.0.0.2，而 10.0.0.3 的桶仍在
	if call("10.0.0.3") != http.StatusTooManyRequests {
		t.Fatal("recent ip lost its bucket")
	}
}

func TestRateLimitPerIPForgetsIdleClients(t *testing.T) {
	clock := fakeClock(t)
	call := perIPEngine(100, time.Minute)
	if call("10.0.0.1") != http.StatusOK || call("10.0.0.1") != http.StatusTooManyRequests {
		t.Fatal("same ip should be limited")
	}
	*clock = clock.Add(2 * time.Minute)
	if call("10.0.0.1") != http.StatusOK {
		t.Fatal("idle bucket should have been swept")
	}
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	ident := func(c *gin.Context) {
		if uid := c.GetHeader("X-Uid"); uid != "" {
			c.Set(KeyUserID, uid)
			c.Set(KeyRole, c.GetHeader("X-Role"))
		}
		c.Next()
	}
	r.GET("/staff", ident, RequireRole(domain.RoleHR, domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	cases := []struct {
		name, uid, role string
		want            int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"user", "u1", domain.RoleUser, http.StatusForbidden},
		{"hr", "h1", domain.RoleHR, http.StatusOK},
		{"admin", "a1", domain.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			req.Header.Set("X-Uid", tc.uid)
			req.Header.Set("X-Role", tc.role)
			if w := serve(r, req); w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/slow", Timeout(20*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRecoveryHidesPanic(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("secret detail") })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret detail") {
		t.Fatalf("panic value leaked: %s", w.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(KeyRequestID) == "" || w.Body.String() != w.Header().Get(KeyRequestID) {
		t.Fatalf("generated id = %q / %q", w.Header().Get(KeyRequestID), w.Body.String())
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "abc")
	if got := serve(r, req).Header().Get(KeyRequestID); got != "abc" {
		t.Fatalf("propagated id = %q", got)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, strings.Repeat("a", 100))
	if got := serve(r, req).Header().Get(KeyRequestID); len(got) != 36 {
		t.Fatalf("oversized id kept: %q", got)
	}
}

func TestMaskQuery(t *testing.T) {
	got := maskQuery(map[string][]string{"token": {"x"}, "page": {"2"}})
	if got["token"][0] == "x" || got["page"][0] != "2" {
		t.Fatalf("masked = %v", got)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/", MaxBodyBytes(8), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", w.Code)
	}
	if w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok"))); w.Code != http.StatusOK {
		t.Fatalf("small body = %d", w.Code)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.GET("/", ConcurrencyLimit(1, 10*time.Millisecond), func(c *gin.Context) {
		if c.Query("hold") != "" {
			close(entered)
			<-release
		}
		c.Status(http.StatusOK)
	})

	done := make(chan int)
	go func() { done <- serve(r, httptest.NewRequest(http.MethodGet, "/?hold=1", nil)).Code }()
	<-entered
	if code := serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code; code != http.StatusServiceUnavailable {
		t.Fatalf("saturated = %d, want 503", code)
	}
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("holder = %d", code)
	}
	if code := serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code; code != http.StatusOK {
		t.Fatalf("after release = %d", code)
	}
}
