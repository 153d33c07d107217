package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/quoteflow/internal/version"
)

// SetupRoutes registers every endpoint on r.
func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})

	v1 := r.Group("/v1")
	{
		q := v1.Group("/quotations")
		q.POST("", h.CreateQuotation)
		q.GET("", h.ListQuotations)
		q.GET("/:id", h.GetQuotation)
		q.DELETE("/:id", h.DeleteQuotation)
		q.GET("/:id/snapshot", h.GetSnapshot)
		q.POST("/:id/events", h.ApplyEvent)

		v1.POST("/stock-events", h.ReceiveStockEvent)

		a := v1.Group("/automation")
		a.POST("/trigger", h.Trigger)
		a.POST("/flush", h.Flush)
		a.GET("/pending", h.Pending)
	}
}

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// NewRouter builds a gin engine with recovery, request logging and all routes.
func NewRouter(h *Handler, logger logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(logger))
	SetupRoutes(r, h)
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Debug("http request")
	}
}
