package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medivize/locale"
	"medivize/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger loggt jede Anfrage mit Status und Dauer.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", strings.ToUpper(c.Request.Method)),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// RequestMetrics zählt Anfragen pro Route. Unbekannte Pfade landen gesammelt unter "unmatched".
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Recovery fängt Panics ab und antwortet mit der generischen 500-Hülle.
func Recovery(log *zap.Logger, exposeErrors bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Unhandled panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		body := gin.H{"success": false, "message": locale.Text(locale.InternalError)}
		if exposeErrors {
			body["error"] = fmt.Sprint(recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

// CORS erlaubt die bekannten Frontends inklusive Cookies.
// Ohne Origins bleibt CORS aus.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
