// Package httpapi exposes the extraction service over HTTP with gin.
package httpapi

import (
	_ "embed"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

//go:embed static/index.html
var indexHTML []byte

// Options bounds uploads and configures CORS.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	MaxFiles       int
}

type handler struct {
	svc  *extraction.Service
	log  logger.Logger
	opts Options
}

// NewRouter wires every route and middleware onto a fresh gin engine.
func NewRouter(svc *extraction.Service, log logger.Logger, opts Options) *gin.Engine {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 10
	}
	h := &handler{svc: svc, log: log, opts: opts}

	r := gin.New()
	r.Use(requestID(), accessLog(log), recovery(log), cors.New(corsConfig(opts.AllowedOrigins)))
	r.MaxMultipartMemory = opts.MaxUploadBytes

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/extract", h.extract)
		api.POST("/faqs", h.deriveFAQs)
		api.GET("/faq-rules", h.faqRules)

		ex := api.Group("/extractions")
		ex.GET("", h.listExtractions)
		ex.GET("/:id", h.getExtraction)
		ex.GET("/:id/faqs", h.getFAQs)
		ex.GET("/:id/timeline", h.getTimeline)
		ex.GET("/:id/export", h.exportExtraction)
		ex.DELETE("/:id", h.deleteExtraction)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.With(
			"request_id", c.GetString(requestIDKey),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("%s %s", c.Request.Method, c.Request.URL.Path)
		case status >= http.StatusBadRequest:
			entry.Warn("%s %s", c.Request.Method, c.Request.URL.Path)
		default:
			entry.Info("%s %s", c.Request.Method, c.Request.URL.Path)
		}
	}
}

func recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		log.With("request_id", c.GetString(requestIDKey)).Error("Panic serving %s: %v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "internal server error",
			"request_id": c.GetString(requestIDKey),
		})
	})
}
