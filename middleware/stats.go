package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ot-clark/llm-rank-diagnostic/logging"
)

// StatsMiddleware tracks visitors and request latency for the diagnostic API
func StatsMiddleware(stats *logging.Statistics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Track unique visitor
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method == "POST" {
			hasError := c.Writer.Status() >= 400
			switch c.Request.URL.Path {
			case "/api/analyze":
				loadTime := float64(time.Since(start).Milliseconds())
				stats.TrackAnalysis(c.Request.URL.String(), loadTime, hasError)
			case "/api/crawl":
				stats.TrackCrawl(hasError)
			}
		}

		// Periodically save statistics
		if total := stats.TotalRequests(); total > 0 && total%100 == 0 {
			go stats.Save() // Save asynchronously to not block the request
		}
	}
}
