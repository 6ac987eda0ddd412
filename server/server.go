// Package server exposes the diagnostic engine over HTTP.
package server

import (
	"log"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ot-clark/llm-rank-diagnostic/analyzer"
	"github.com/ot-clark/llm-rank-diagnostic/config"
	"github.com/ot-clark/llm-rank-diagnostic/crawler"
	"github.com/ot-clark/llm-rank-diagnostic/history"
	"github.com/ot-clark/llm-rank-diagnostic/logging"
	"github.com/ot-clark/llm-rank-diagnostic/middleware"
)

// Server wires the analyzer, crawler and history store into a gin router.
type Server struct {
	engine   *gin.Engine
	analyzer *analyzer.Analyzer
	crawler  *crawler.Crawler
	history  *history.DB
	usage    *logging.Statistics
	logger   *slog.Logger
	port     string
	maxPages int
}

// New builds the router with all middlewares and routes registered.
func New(cfg *config.Config, an *analyzer.Analyzer, cr *crawler.Crawler, hist *history.DB, usage *logging.Statistics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:   gin.Default(),
		analyzer: an,
		crawler:  cr,
		history:  hist,
		usage:    usage,
		logger:   logger,
		port:     cfg.Port,
		maxPages: cfg.Crawl.MaxPages,
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	s.engine.Use(middleware.ErrorHandler(logger))
	s.engine.Use(rateLimiter.RateLimit())
	s.engine.Use(corsMiddleware())
	s.engine.Use(middleware.StatsMiddleware(usage))

	s.registerRoutes()
	return s
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/analyze", s.analyzeURL)
		api.POST("/crawl", s.crawlSite)
		api.GET("/statistics", s.statistics)
		api.GET("/history", s.recentRuns)
	}

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Engine returns the underlying router, used by tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	log.Printf("Server starting on http://localhost:%s\n", s.port)
	return s.engine.Run(":" + s.port)
}

func (s *Server) analyzeURL(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required,url"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid URL provided",
		})
		return
	}

	report := s.analyzer.AnalyzeWithContext(c.Request.Context(), request.URL)
	s.usage.TrackTargetURL(request.URL)
	s.storeRun(report)

	c.JSON(http.StatusOK, report)
}

func (s *Server) crawlSite(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required,url"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid URL provided",
		})
		return
	}

	reports, err := s.crawler.Crawl(c.Request.Context(), request.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to crawl site: " + err.Error(),
		})
		return
	}

	for _, report := range reports {
		s.storeRun(report)
	}

	c.JSON(http.StatusOK, gin.H{
		"url":     request.URL,
		"pages":   len(reports),
		"reports": reports,
	})
}

func (s *Server) statistics(c *gin.Context) {
	monthly := s.analyzer.GetStats().GetCurrentStats()
	c.JSON(http.StatusOK, gin.H{
		"usage":   s.usage.GetStatistics(),
		"cache":   s.analyzer.GetCacheStats(),
		"monthly": monthly,
	})
}

func (s *Server) recentRuns(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History store not configured"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var (
		runs []history.Run
		err  error
	)
	if target := c.Query("url"); target != "" {
		runs, err = s.history.ForURL(target, limit)
	} else {
		runs, err = s.history.Recent(limit)
	}
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) storeRun(report *analyzer.Report) {
	if s.history == nil {
		return
	}
	if err := s.history.InsertReport(report); err != nil {
		s.logger.Error("failed to store run", "url", report.URL, "error", err)
	}
}
