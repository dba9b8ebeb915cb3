package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/smartshopai/smartshop/config"
	"github.com/smartshopai/smartshop/internal/api/handlers"
	"github.com/smartshopai/smartshop/internal/api/middleware"
	"github.com/smartshopai/smartshop/internal/api/routes"
	"github.com/smartshopai/smartshop/internal/cache"
	"github.com/smartshopai/smartshop/internal/catalog"
	"github.com/smartshopai/smartshop/internal/logger"
	"github.com/smartshopai/smartshop/internal/providers/llm"
	"github.com/smartshopai/smartshop/internal/providers/stt"
	"github.com/smartshopai/smartshop/internal/services"
	"github.com/smartshopai/smartshop/internal/storage"
)

func main() {
	_ = godotenv.Load()
	l := logger.New()
	ctx := context.Background()

	repo, err := catalog.Load()
	if err != nil {
		log.Fatalf("catalog load error: %v", err)
	}
	l.WithField("products", len(repo.List())).Info("catalog loaded")

	// Redis is optional; without it recommendation caching falls back to
	// process memory.
	var recCache cache.Cache = cache.NewMemoryCache()
	if os.Getenv("REDIS_ADDR") != "" || os.Getenv("REDIS_URI") != "" || os.Getenv("REDIS_URL") != "" {
		if err := config.InitRedis(); err != nil {
			log.Fatalf("Redis init error: %v", err)
		}
		recCache = cache.NewRedisCache(config.RedisClient)
		l.Info("Redis connected")
	}

	// Vertex AI is optional; without credentials every chat turn settles
	// with the fallback reply.
	var provider llm.Provider
	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		location := os.Getenv("GCP_LOCATION")
		if location == "" {
			location = "us-central1"
		}
		p, err := llm.NewVertexGemini(ctx, projectID, location, os.Getenv("GEMINI_MODEL"), services.CatalogInstruction(repo))
		if err != nil {
			log.Fatalf("Vertex AI init error: %v", err)
		}
		defer p.Close()
		provider = p
		l.Info("Vertex AI connected")
	} else {
		l.Warn("GCP_PROJECT_ID not set, assistant runs degraded")
	}

	var speech stt.Provider
	if os.Getenv("ENABLE_SPEECH") == "true" {
		g, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.Fatalf("Speech init error: %v", err)
		}
		defer g.Close()
		speech = g
		l.Info("Speech-to-Text connected")
	}

	var uploader storage.Uploader
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		u, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer u.Close()
		uploader = u
		l.WithField("bucket", bucket).Info("GCS connected")
	}

	gateway := services.NewAssistantGateway(provider, repo, recCache, l)
	chat := services.NewChatService(repo, gateway, l)
	cart := services.NewCartService(repo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Auth:    handlers.NewAuthHandler(),
		Product: handlers.NewProductHandler(repo, chat),
		Chat:    handlers.NewChatHandler(chat),
		Cart:    handlers.NewCartHandler(cart),
		Speech:  handlers.NewSpeechHandler(speech),
		Media:   handlers.NewMediaHandler(uploader),
		WS:      handlers.NewWSHandler(chat),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
