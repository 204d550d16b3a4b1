package httpsvc

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/airrecover/storefront/internal/metrics"
)

// HeaderRequestID коррелирует запросы клиента и сервера.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// requestID берёт X-Request-ID клиента или генерирует новый.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// accessLog пишет строку лога и метрики на каждый запрос.
func accessLog(logger *log.Entry, m *metrics.StorefrontMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestStarted()
		defer m.HTTPRequestFinished()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "static"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		m.RecordHTTPRequest(route, c.Request.Method, status, duration)

		entry := logger.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"duration":   duration.String(),
			"request_id": c.GetString(requestIDKey),
		})
		switch {
		case status >= 500:
			entry.Warn("request failed")
		case route == "static":
			entry.Debug("request served")
		default:
			entry.Info("request served")
		}
	}
}

func requestLogger(c *gin.Context, logger *log.Entry) *log.Entry {
	return logger.WithField("request_id", c.GetString(requestIDKey))
}
