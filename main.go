package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Sabit205/chat-app-serve/internal/chat"
	"github.com/Sabit205/chat-app-serve/internal/config"
	"github.com/Sabit205/chat-app-serve/internal/db"
	"github.com/Sabit205/chat-app-serve/internal/handlers"
	"github.com/Sabit205/chat-app-serve/internal/identity"
	"github.com/Sabit205/chat-app-serve/internal/middleware"
	"github.com/Sabit205/chat-app-serve/internal/observability"
	"github.com/Sabit205/chat-app-serve/internal/presence"
	"github.com/Sabit205/chat-app-serve/internal/rabbitmq"
	"github.com/Sabit205/chat-app-serve/internal/repositories"
	"github.com/Sabit205/chat-app-serve/internal/telemetry"
	"github.com/Sabit205/chat-app-serve/internal/tracing"
	"github.com/Sabit205/chat-app-serve/internal/ws"
)

const serviceName = "chat-app-serve"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown failed: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.EventExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	if rabbitmq.PublisherMode(auditPublisher) == "amqp" {
		observability.SetPublisher(auditPublisher)
	}

	userRepo := repositories.NewUserRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	resolver := identity.NewTokenResolver(cfg.JWTSecret, userRepo)
	registry := presence.NewRegistry()
	hub := ws.NewHub()

	chatService := chat.NewService(conversationRepo, messageRepo, userRepo, registry, hub)
	sessionHandler := ws.NewSessionHandler(hub, registry, resolver, chatService, auditEmitter, cfg.FrontendURL)
	conversationHandler := handlers.NewConversationHandler(chatService)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(resolver)
	router.GET("/conversations", authMiddleware, conversationHandler.ListConversations)

	router.GET("/ws", sessionHandler.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
