// Devserver implements the backend contract the clockin client talks
// to: auth, events, batch attendance status, stats, face check, and the
// face-service endpoints (health, register, mark_attendance). It exists
// so the client core can be exercised end to end without the production
// services.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clockin/internal/config"
	"clockin/internal/devstore"
	"clockin/internal/event"
	"clockin/internal/httpmiddleware"
	"clockin/internal/store"
	"clockin/internal/token"
)

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("devserver failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" || env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg config.App, log *zap.Logger) error {
	var db devstore.Store
	var pg *devstore.PostgresStore
	if cfg.DatabaseURL != "" {
		var err error
		pg, err = devstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		db = pg
		log.Info("using postgres store")
	} else {
		mem := devstore.NewMemoryStore()
		mem.Seed(time.Now())
		db = mem
		log.Info("using in-memory store with demo fixtures")
	}

	var redisKV *store.RedisKV
	if cfg.RedisAddr != "" {
		redisKV = store.NewRedisKV(cfg.RedisAddr, "clockin:dev:")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		redisHealthy := redisKV == nil || redisKV.Healthy(c.Request.Context())
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": pg != nil})
	})

	// Face-service liveness probe the client pings before uploads.
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.POST("/api/auth/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u, err := db.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		signed, _, err := token.Issue(u.ID, u.Email, u.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token": signed,
			"user":  gin.H{"id": u.ID, "email": u.Email, "role": u.Role},
		})
	})

	r.POST("/api/auth/signup", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
			Name     string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if _, err := db.CreateUser(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	})

	authed := r.Group("/", token.BearerAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authed.GET("/api/events/", func(c *gin.Context) {
		events, err := db.ListEvents(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]event.Record, 0, len(events))
		for _, e := range events {
			out = append(out, event.Record{
				ID:                   e.ID,
				Name:                 e.Name,
				Description:          e.Description,
				RegisteredStudentIDs: e.Registered,
				StartTime:            e.Start,
				EndTime:              e.End,
				VenueLat:             e.VenueLat,
				VenueLng:             e.VenueLng,
			})
		}
		c.JSON(http.StatusOK, out)
	})

	authed.POST("/api/attendance/status/multiple", func(c *gin.Context) {
		var req struct {
			EventIDs []string `json:"eventIds"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		statusMap, err := db.StatusMap(c.Request.Context(), claimsSubject(c), req.EventIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"statusMap": statusMap})
	})

	authed.GET("/api/attendance/stats", func(c *gin.Context) {
		stats, err := db.Stats(c.Request.Context(), claimsSubject(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"present": stats.Present, "late": stats.Late, "absent": stats.Absent})
	})

	authed.GET("/api/check-face", func(c *gin.Context) {
		u, err := db.GetUser(c.Request.Context(), claimsSubject(c))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"registered": u.FaceRegistered})
	})

	authed.POST("/register", func(c *gin.Context) {
		if _, _, err := c.Request.FormFile("image"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image field required"})
			return
		}
		if err := db.SetFaceRegistered(c.Request.Context(), claimsSubject(c)); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.Status(http.StatusCreated)
	})

	authed.POST("/mark_attendance", markAttendanceHandler(db))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("devserver listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}
	return nil
}

// corsMiddleware answers preflights and reflects the caller's origin so
// browser-hosted clients can hit the devserver during development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// HSTS only makes sense behind TLS.
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

func claimsSubject(c *gin.Context) string {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(token.Claims)
	return claims.Subject
}
