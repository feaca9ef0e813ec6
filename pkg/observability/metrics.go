package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrometheusHandler adapts the registry's scrape handler to a Gin route.
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
			return
		}
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
