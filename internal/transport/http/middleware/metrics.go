package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// 未命中路由统一归到一个标签，避免扫描器把基数打爆
const unmatchedRoute = "unmatched"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aiteammate",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template, method and status code",
		},
		[]string{"server", "route", "method", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aiteammate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"server", "route", "method"},
	)
	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aiteammate",
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served",
		},
		[]string{"server"},
	)
)

func init() { prometheus.MustRegister(httpRequests, httpDuration, httpInFlight) }

// Metrics server 区分用户端与管理端
func Metrics(server string) gin.HandlerFunc {
	inflight := httpInFlight.WithLabelValues(server)
	return func(c *gin.Context) {
		start := time.Now()
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(server, route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(server, route, method).Observe(time.Since(start).Seconds())
	}
}
