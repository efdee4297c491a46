package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"biblio-backend/internal/library/items"
	"biblio-backend/internal/library/lending"
	"biblio-backend/internal/platform/auth"
	"biblio-backend/internal/platform/cache"
	"biblio-backend/internal/platform/db"
	"biblio-backend/internal/platform/requestid"
	"biblio-backend/internal/records"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	log.Printf("[INFO] mode:%s\n", cfg.Mode)
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		log.Fatal("config mode must be dev or release")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// redis is optional; without it borrow idempotency keys are not enforced
	var idem lending.IdempotencyCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatalf("redis connect failed: %v", err)
		}
		defer rc.Close()
		idem = rc
		log.Printf("[INFO] connected to redis: %s", cfg.Redis.Addr)
	}

	secret := []byte(cfg.JWTSecret)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestid.Middleware())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", requestid.Header},
			ExposeHeaders:    []string{"Content-Length", requestid.Header},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	auth.RegisterRoutes(api, auth.NewService(conn, secret))
	items.RegisterRoutes(api, items.NewService(conn), secret)
	lending.RegisterRoutes(api, lending.NewService(conn, idem), secret)
	records.RegisterRoutes(api, records.NewService(conn))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
