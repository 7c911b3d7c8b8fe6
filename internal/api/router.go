package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Service     Service
	Pools       PoolReader
	Hub         *Hub
	Metrics     *metrics.Collector
	CORSOrigins []string
	Decimals    uint8
	Logger      *zap.Logger
}

// NewRouter builds the gin engine serving the launch API, the event stream
// and the metrics endpoint.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger.Named("http")))
	if cfg.Metrics != nil {
		router.Use(requestMetrics(cfg.Metrics))
	}

	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// a wildcard cannot be combined with credentials
	if len(cfg.CORSOrigins) == 0 || slices.Contains(cfg.CORSOrigins, "*") {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) {
		SendAPIResponse(c, http.StatusOK, true, "ok", nil)
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.Hub != nil {
		router.GET("/ws/events", cfg.Hub.ServeWS)
	}

	v1 := router.Group("/api/v1")
	NewLaunchHandler(cfg.Service, cfg.Pools, cfg.Decimals).RegisterRoutes(v1)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("Request rejected", fields...)
		default:
			logger.Debug("Request served", fields...)
		}
	}
}

func requestMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
