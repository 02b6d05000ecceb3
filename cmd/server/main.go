package main // Entry point package

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/stylistai/auth-service/internal/auth"
	"github.com/stylistai/auth-service/internal/config"
	"github.com/stylistai/auth-service/internal/database"
	"github.com/stylistai/auth-service/internal/handler"
	"github.com/stylistai/auth-service/internal/queue"
	"github.com/stylistai/auth-service/internal/repository"
	"github.com/stylistai/auth-service/internal/router"
	queue_publisher "github.com/stylistai/auth-service/internal/service"
)

func main() {
	// .env is a development convenience; a missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	svc := auth.NewService(
		repository.NewAccountRepo(db),
		repository.NewSessionRepo(db),
		repository.NewAuditRepo(db),
		auth.Config{
			MaxAttempts:      cfg.MaxLoginAttempts,
			LockoutDuration:  cfg.LockoutDuration,
			SessionTTL:       cfg.SessionTTL,
			HashIterations:   cfg.HashIterations,
			ResetTokenTTL:    cfg.ResetTokenTTL,
			AuditRetention:   cfg.AuditRetention,
			SessionRetention: cfg.SessionRetention,
		},
	)

	// Audit fan-out and its consumer both degrade to no-ops when the
	// broker is unreachable; the MySQL audit rows remain authoritative.
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		svc.SetPublisher(queue_publisher.PublishSecurityEvent)
		go func() {
			if err := queue.StartSecurityConsumer(); err != nil {
				log.Printf("security-consumer: %v", err)
			}
		}()
	}

	// Background sweep: expire sessions and enforce retention caps.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			sctx, scancel := context.WithTimeout(context.Background(), time.Minute)
			if err := svc.Sweep(sctx); err != nil {
				log.Printf("sweep: %v", err)
			}
			scancel()
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	h := handler.NewAuthHandler(svc, cfg.Env)
	router.RegisterRoutes(e, h, svc, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
