package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/stygo/stygo-backend/internal/config"     // Internal config loader
	"github.com/stygo/stygo-backend/internal/database"   // MySQL connection helper
	"github.com/stygo/stygo-backend/internal/handler"    // HTTP handlers
	"github.com/stygo/stygo-backend/internal/middleware" // Rate limiting and caching
	"github.com/stygo/stygo-backend/internal/queue"      // Code dispatch consumer
	"github.com/stygo/stygo-backend/internal/repository" // Data access layer
	"github.com/stygo/stygo-backend/internal/router"     // Route registration
	"github.com/stygo/stygo-backend/internal/service"    // Queue publisher
	"github.com/stygo/stygo-backend/internal/storage"    // Local image store
)

func main() {
	// Load a .env file if one is present; in containers the variables come
	// from the environment directly, so a missing file is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load() // Load environment config (fatal on missing keys)

	// Open the MySQL pool used by every repository.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the public catalog cache.  A nil or
	// unreachable client downgrades both middlewares to pass-through.
	rdb := config.NewRedisClient()

	// Local disk store for product images, served under /media.
	store, err := storage.NewLocalStore(cfg.MediaDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	codes := repository.NewOTPRepo(db)
	resets := repository.NewResetRepo(db)
	sellers := repository.NewSellerRepo(db)
	products := repository.NewProductRepo(db)
	subscribers := repository.NewSubscriberRepo(db)
	suggestions := repository.NewSuggestionRepo(db)

	// Handlers.
	auth := handler.NewAuthHandler(cfg, users, codes, resets, sellers, service.NewCodeDispatcher())
	seller := handler.NewSellerHandler(users, sellers, products)
	product := handler.NewProductHandler(sellers, products, store)
	public := handler.NewPublicHandler(sellers, products)
	subscriber := handler.NewSubscriberHandler(subscribers)
	suggestion := handler.NewSuggestionHandler(suggestions)

	// Background consumer that writes dispatched codes to the delivery log.
	// A broken broker connection only disables delivery, never the API.
	go func() {
		if err := queue.StartDispatchConsumer(); err != nil {
			log.Printf("dispatch consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Uploaded images are served straight from disk.
	e.Static("/media", cfg.MediaDir)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret, limit)
	router.RegisterSeller(e, seller, product, cfg.JWTSecret)
	router.RegisterPublic(e, public, product, cache)
	router.RegisterEngagement(e, subscriber, suggestion, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
