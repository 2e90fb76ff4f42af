package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"movie-catalog-api/core"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	userRepo := core.NewPgUserRepository(db)
	movieRepo := core.NewPgMovieRepository(db)
	cache := core.NewCatalogCache(redisClient, cfg.CatalogCacheTTL)

	authService := core.NewRepositoryAuthService(userRepo)
	tokens := core.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL, userRepo)

	if err := core.BootstrapCatalog(ctx, movieRepo, cache, cfg); err != nil {
		log.Fatalf("catalog bootstrap failed: %v", err)
	}

	router := core.NewRouter(cfg, authService, tokens, userRepo, movieRepo, cache, db, redisClient)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
