package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
)

// Metrics 在 client 上注册 HTTP 请求指标并返回采集中间件
func Metrics(client *prometheus.Client) (gin.HandlerFunc, error) {
	requests, err := client.NewCounter("http_requests_total",
		"Total number of HTTP requests.", []string{"path", "method", "status"})
	if err != nil {
		return nil, err
	}
	duration, err := client.NewHistogram("http_request_duration_seconds",
		"HTTP request latency in seconds.", []string{"path", "method"}, nil)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 路由模板路径而非实际请求路径
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		requests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}, nil
}
