package main // Entry point package

import (
	"context" // lifecycle control for the fanout hub
	"log"     // Logging library

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/easycheck/easycheck/internal/config"
	"github.com/easycheck/easycheck/internal/database"
	"github.com/easycheck/easycheck/internal/fanout"
	"github.com/easycheck/easycheck/internal/handler"
	"github.com/easycheck/easycheck/internal/ledger"
	"github.com/easycheck/easycheck/internal/middleware"
	"github.com/easycheck/easycheck/internal/queue"
	"github.com/easycheck/easycheck/internal/repository"
	"github.com/easycheck/easycheck/internal/router"
	"github.com/easycheck/easycheck/internal/session"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// WebSocket fanout of session change events.
	hub := fanout.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	store := ledger.NewMySQLStore(db)
	coord := session.NewCoordinator(store, hub)

	restaurantRepo := repository.NewRestaurantRepo(db)
	menuRepo := repository.NewMenuRepo(db)

	// Redis is optional; without it the limiter and cache become no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Background consumer appends settlement records to logs/payments.log.
	go func() {
		if err := queue.StartPaymentConsumer(); err != nil {
			log.Printf("payment consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewPublicHandler(restaurantRepo, menuRepo, cfg.ClientURL), cache)
	router.RegisterSessions(e,
		handler.NewSessionHandler(coord, cfg.JWTSecret, cfg.SessionTTLMin),
		handler.NewOrderHandler(coord),
		handler.NewPaymentHandler(coord, store),
		handler.NewWSHandler(hub),
		cfg.JWTSecret, limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(menuRepo))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
