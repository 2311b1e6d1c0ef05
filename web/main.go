package main

import (
	"context"
	"encoding/base64"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timedock.com/timedock/auth"
	"timedock.com/timedock/core"
	"timedock.com/timedock/web/handlers"
	"timedock.com/timedock/web/middlewares"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildStore wires the credential store backend named by CREDENTIAL_STORE.
func buildStore(ctx context.Context, log *zap.Logger) auth.CredentialStore {
	backend := env("CREDENTIAL_STORE", "memory")

	switch backend {
	case "file":
		store, err := auth.NewFileStore(env("CREDENTIAL_DIR", "credentials"))
		if err != nil {
			log.Fatal("file store init failed", zap.Error(err))
		}
		return store

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: env("REDIS_ADDR", "localhost:6379")})
		return auth.NewRedisStore(client)

	case "mysql":
		store, err := auth.NewGormStore(os.Getenv("DATABASE_DSN"), 10)
		if err != nil {
			log.Fatal("mysql store init failed", zap.Error(err))
		}
		return store

	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal("aws config load failed", zap.Error(err))
		}
		return auth.NewS3Store(s3.NewFromConfig(cfg), os.Getenv("CREDENTIAL_BUCKET"), env("CREDENTIAL_PREFIX", "credentials"))

	case "memory":
		return auth.NewMemoryStore()

	default:
		log.Fatal("unknown credential store backend", zap.String("backend", backend))
		return nil
	}
}

func main() {
	godotenv.Load()

	log, _ := zap.NewProduction()
	defer log.Sync()

	ctx := context.Background()

	cfg := auth.Config{
		ClientID:     os.Getenv("QUICKBOOKS_CLIENT_ID"),
		ClientSecret: os.Getenv("QUICKBOOKS_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("QUICKBOOKS_REDIRECT_URI"),
		Environment:  env("QUICKBOOKS_ENVIRONMENT", "sandbox"),
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Fatal("QUICKBOOKS_CLIENT_ID and QUICKBOOKS_CLIENT_SECRET are required")
	}

	jwtSecret, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_SECRET"))
	if err != nil || len(jwtSecret) == 0 {
		log.Fatal("JWT_SECRET must be a base64-encoded secret")
	}

	store := buildStore(ctx, log)
	manager := auth.NewManager(cfg, store, log)
	clock := core.NewService(manager, cfg.APIBase(), log)
	handler := handlers.NewQuickBooksHandler(manager, clock, log)

	r := gin.Default()
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	handler.RegisterPublic(r)

	protected := r.Group("/api")
	protected.Use(middlewares.Authentication(jwtSecret))
	handler.Register(protected)

	r.Run(":" + env("PORT", "8090"))
}
