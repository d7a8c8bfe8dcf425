package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendancewizard/internal/attendance"
	"attendancewizard/internal/auth"
	"attendancewizard/internal/config"
	"attendancewizard/internal/grading"
	"attendancewizard/internal/handler"
	"attendancewizard/internal/httpmiddleware"
	"attendancewizard/internal/identity"
	"attendancewizard/internal/queue"
	"attendancewizard/internal/report"
	"attendancewizard/internal/session"
	"attendancewizard/internal/settings"
	"attendancewizard/internal/store"
	"attendancewizard/internal/token"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		q           queue.Queue
		redisClient *store.Redis
	)
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	grades := grading.NewEngine(db, cfg.Location)
	exports := report.NewExporter(grades, q, cfg.ExportDir)
	if cfg.QueueBackend == "memory" {
		// no separate worker can see an in-process queue
		go func() {
			if err := exports.Run(ctx); err != nil {
				log.Printf("export runner stopped: %v", err)
			}
		}()
		log.Println("export jobs run in-process (QUEUE_BACKEND=memory)")
	}

	h := handler.New(handler.Deps{
		Identity:  identity.NewService(db, auth.NewBcrypt(cfg.BcryptCost)),
		Sessions:  session.NewService(db, cfg.Location, cfg.TestSessionsPerDay, cfg.RegularSessionDates),
		Tokens:    token.NewService(db, cfg.RegularTokenTTL, cfg.TestTokenTTL),
		Ledger:    attendance.NewService(db, cfg.Location, attendance.Window{Start: cfg.AttendanceStartHour, End: cfg.AttendanceEndHour}),
		Grades:    grades,
		Settings:  settings.NewService(db),
		Exports:   exports,
		Issuer:    auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL),
		Admins:    auth.Admins(cfg.Admins),
		PublicURL: cfg.PublicURL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db.Ping(c.Request.Context()) == nil
		status := http.StatusOK
		body := gin.H{"status": "ok", "db": dbHealthy}
		if redisClient != nil {
			redisHealthy := redisClient.Healthy(c.Request.Context())
			body["redis"] = redisHealthy
			dbHealthy = dbHealthy && redisHealthy
		}
		if !dbHealthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})

	markLimit := httpmiddleware.NewSimpleTokenBucket(cfg.MarkRateLimitPerMin, cfg.MarkRateLimitPerMin)
	h.Register(r, markLimit.Middleware(handler.StudentKey))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			// browsers refuse "*" on credentialed responses, so echo the caller's origin
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// HSTS only behind TLS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
