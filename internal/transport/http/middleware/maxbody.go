package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "github.com/Anlan01819/AIteammate/internal/transport/http/response"
)

// MaxBodyBytes 声明了 Content-Length 且超限的请求直接 413；
// 分块上传的请求体在读取时截断，绑定失败后同样映射为 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, resp.CodeTooLarge, "request body too large")
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
