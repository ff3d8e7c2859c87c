package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/billing"
	"github.com/tyler2w2/social-media-ai/internal/config"
	"github.com/tyler2w2/social-media-ai/internal/database"
	"github.com/tyler2w2/social-media-ai/internal/generator"
	"github.com/tyler2w2/social-media-ai/internal/handler"
	"github.com/tyler2w2/social-media-ai/internal/middleware"
	"github.com/tyler2w2/social-media-ai/internal/queue"
	"github.com/tyler2w2/social-media-ai/internal/repository"
	"github.com/tyler2w2/social-media-ai/internal/router"
	"github.com/tyler2w2/social-media-ai/internal/session"
	"github.com/tyler2w2/social-media-ai/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection required for session storage")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	sessions := session.New(store.NewRedisKV(rdb))
	gen := generator.New(time.Now().UnixNano())
	bill := billing.New(cfg.Stripe, users)
	if !bill.Enabled() {
		log.Println("billing: no stripe key configured, upgrade endpoints disabled")
	}

	// Background consumer for idea.generated events. It reconnects on
	// its own; a broker outage never blocks the HTTP server.
	go func() {
		if err := queue.StartIdeaConsumer(); err != nil {
			log.Printf("idea-consumer: %v", err)
		}
	}()

	var rl echo.MiddlewareFunc
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled {
		rl = middleware.NewTokenBucket(rlCfg, rdb)
	}

	e := echo.New()
	e.HideBanner = true

	auth := handler.NewAuthHandler(cfg, users, tokens, sessions)
	chat := handler.NewChatHandler(users, sessions, gen)
	usage := handler.NewUsageHandler(users, sessions)
	memory := handler.NewMemoryHandler(users, sessions)
	billingH := handler.NewBillingHandler(users, sessions, bill)
	webhookH := handler.NewWebhookHandler(users, bill)

	router.RegisterRoutes(e, billingH)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterAPI(e, cfg.JWTSecret, rl, chat, usage, memory, billingH)
	router.RegisterWebhook(e, webhookH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
