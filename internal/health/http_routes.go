package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册 /health 详细报告与 /health/live
func RegisterHTTPRoutes(r *gin.Engine, aggregator *Aggregator) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alive": true})
	})

	// 降级仍返回 200
	r.GET("/health", func(c *gin.Context) {
		rep := aggregator.Check(c.Request.Context())
		code := http.StatusOK
		if rep.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, rep)
	})
}
