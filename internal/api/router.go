package api

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hireloop/chatsync/internal/api/handler"
	"github.com/hireloop/chatsync/internal/api/middleware"
	"github.com/hireloop/chatsync/internal/core/ports"
)

// RouterDeps carries everything the HTTP surface needs. HomeserverCheck is
// nil when no chat backend is configured.
type RouterDeps struct {
	Mongo           *mongo.Database
	Redis           *redis.Client
	JWTSecret       string
	Sync            ports.ChatSyncService
	Messages        ports.MessageService
	Enqueuer        handler.MembershipEnqueuer
	HomeserverCheck func(ctx context.Context) error
	Log             zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("chatsync"))

	// --- Observability surfaces (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis, deps.HomeserverCheck)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Chat routes ---
	chatHandler := handler.NewChatHandler(deps.Sync, deps.Enqueuer)
	messageHandler := handler.NewMessageHandler(deps.Messages)

	v1 := e.Group("/v1/chat", middleware.Auth(deps.JWTSecret))

	// Synchronization entry points, driven by backend services.
	backend := middleware.RBAC(middleware.RoleService, middleware.RoleAdmin)
	v1.POST("/identities", chatHandler.ProvisionIdentity, backend)
	v1.POST("/rooms", chatHandler.ProvisionRoom, backend)
	v1.POST("/memberships", chatHandler.SyncMembership, backend)

	// Pass-through messaging, available to end users as well.
	anyRole := middleware.RBAC(middleware.RoleUser, middleware.RoleService, middleware.RoleAdmin)
	v1.POST("/rooms/:kind/:id/messages", messageHandler.Send, anyRole)
	v1.GET("/rooms/:kind/:id/messages", messageHandler.List, anyRole)

	return e
}
