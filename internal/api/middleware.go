package api

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs every API request with timing and outcome. Utility
// endpoints are skipped to keep the log useful.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/" || path == "/favicon.ico" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		line := "api: %s %s -> %d (%.2fms) client=%s"
		args := []any{c.Request.Method, path, status, float64(elapsed.Microseconds()) / 1000, c.ClientIP()}
		switch {
		case status >= 500:
			log.Printf("ERROR "+line, args...)
		case status >= 400:
			log.Printf("WARN "+line, args...)
		default:
			log.Printf(line, args...)
		}
	}
}
