// Package adminhttp exposes a read-only introspection surface over the
// registry — no document data, no write endpoints, spec.md's Non-goals
// exclude an HTTP data API. Grounded on the teacher's
// cmd/zmux-server/main.go gin bootstrap (ZapLogger middleware, gin.New
// plus gin.Recovery, CORS for local dev) adapted to a much smaller route
// set.
package adminhttp

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/keaz/qtable/internal/registry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ZapLogger logs every admin request through log, adapted from the
// teacher's identically named middleware.
func ZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			log.Error("admin request", fields...)
		case status >= 400:
			log.Warn("admin request", fields...)
		default:
			log.Info("admin request", fields...)
		}
	}
}

// NewRouter builds the admin HTTP surface over reg.
func NewRouter(reg *registry.Registry, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	r.Use(ZapLogger(log.Named("admin")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/databases", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"databases": reg.Names()})
	})

	r.GET("/databases/:db/tables", func(c *gin.Context) {
		db, ok := reg.Get(c.Param("db"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "database not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tables": db.TableNames()})
	})

	r.GET("/databases/:db/tables/:table/schema", func(c *gin.Context) {
		db, ok := reg.Get(c.Param("db"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "database not found"})
			return
		}
		schema, ok := db.TableSchema(c.Param("table"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "table not found"})
			return
		}
		c.JSON(http.StatusOK, schema)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
