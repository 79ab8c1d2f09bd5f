package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "github.com/Anlan01819/AIteammate/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速；rps <= 0 表示不限
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.CodeTooManyRequests, "too many requests")
	}
}

var now = time.Now

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipBuckets 有界的每 IP 令牌桶；闲置超过 idle 的定期清理，满了淘汰最久未见的
type ipBuckets struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	max       int
	idle      time.Duration
	lastSweep time.Time
	m         map[string]*visitor
}

func (b *ipBuckets) get(ip string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := now()
	if t.Sub(b.lastSweep) >= b.idle {
		for k, v := range b.m {
			if t.Sub(v.seen) >= b.idle {
				delete(b.m, k)
			}
		}
		b.lastSweep = t
	}
	v, ok := b.m[ip]
	if !ok {
		if len(b.m) >= b.max {
			b.evictOldest()
		}
		v = &visitor{lim: rate.NewLimiter(b.rps, b.burst)}
		b.m[ip] = v
	}
	v.seen = t
	return v.lim
}

func (b *ipBuckets) evictOldest() {
	var oldest string
	var at time.Time
	for k, v := range b.m {
		if oldest == "" || v.seen.Before(at) {
			oldest, at = k, v.seen
		}
	}
	delete(b.m, oldest)
}

// RateLimitPerIP 每 IP 令牌桶；最多跟踪 maxClients 个 IP，闲置 idle 后回收
func RateLimitPerIP(rps rate.Limit, burst, maxClients int, idle time.Duration) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if maxClients <= 0 {
		maxClients = 10000
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	b := &ipBuckets{rps: rps, burst: burst, max: maxClients, idle: idle, lastSweep: now(), m: make(map[string]*visitor)}
	return func(c *gin.Context) {
		if b.get(c.ClientIP()).Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.CodeTooManyRequests, "too many requests")
	}
}
