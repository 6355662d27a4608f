// chatsync bridges the jobs platform to its Matrix homeserver: it provisions
// chat identities and rooms, keeps room membership aligned with application
// status, and proxies messaging for provisioned users.
//
//	@title			chatsync API
//	@version		1.0
//	@description	Chat synchronization service bridging the jobs platform to its Matrix homeserver.
//	@BasePath		/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hireloop/chatsync/docs"
	"github.com/hireloop/chatsync/internal/api"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/core/service"
	"github.com/hireloop/chatsync/internal/infrastructure/config"
	mongodb "github.com/hireloop/chatsync/internal/infrastructure/db/mongo"
	redisdb "github.com/hireloop/chatsync/internal/infrastructure/db/redis"
	"github.com/hireloop/chatsync/internal/infrastructure/queue"
	"github.com/hireloop/chatsync/internal/matrix"
	"github.com/hireloop/chatsync/internal/vault"
	"github.com/hireloop/chatsync/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		fallback := logger.Get()
		fallback.Fatal().Err(err).Msg("configuration error")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongodb index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	var (
		chatSync        ports.ChatSyncService
		messages        ports.MessageService
		homeserverCheck func(ctx context.Context) error
	)

	if cfg.Matrix.Enabled() {
		key, err := cfg.Vault.Key()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid vault key")
		}
		credentialVault, err := vault.New(key)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid vault key")
		}

		matrixClient, err := matrix.NewClient(matrix.ClientConfig{
			HomeserverURL: cfg.Matrix.HomeserverURL,
			ServerName:    cfg.Matrix.ServerName,
			HTTPClient:    &http.Client{Timeout: cfg.Matrix.Timeout},
			Logger:        logger.Component("matrix"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("invalid matrix configuration")
		}
		executor := matrix.NewExecutor(matrix.RetryPolicy{
			MaxRetries: cfg.Matrix.MaxRetries,
			BaseDelay:  cfg.Matrix.RetryBaseWait,
		}, log)

		identityRepo := mongodb.NewIdentityRepository(db)
		roomRepo := mongodb.NewRoomRepository(db)
		marker := redisdb.NewTransitionMarker(rdb, 0)
		credentials := service.NewCredentialSource(identityRepo, credentialVault)

		identityService := service.NewIdentityService(identityRepo, matrixClient, executor, credentialVault, cfg.Matrix.AdminToken, log)
		roomService := service.NewRoomService(roomRepo, matrixClient, executor, credentials, log)
		membershipService := service.NewMembershipService(roomRepo, identityRepo, credentials, matrixClient, executor, marker, cfg.Matrix.AdminToken, log)

		chatSync = service.NewChatSyncService(identityService, roomService, membershipService, log)
		messages = service.NewMessageService(roomRepo, credentials, matrixClient, executor, log)
		homeserverCheck = func(ctx context.Context) error {
			_, err := matrixClient.WhoAmI(ctx, cfg.Matrix.AdminToken)
			return err
		}
	} else {
		log.Warn().Msg("no homeserver configured, chat synchronization disabled")
		chatSync = service.NewNoopChatSyncService(log)
		messages = service.NoopMessageService{}
	}

	dispatcher := queue.NewDispatcher(cfg.SyncWorkers, chatSync, log)
	dispatcher.Start(ctx)

	e := api.NewRouter(api.RouterDeps{
		Mongo:           db,
		Redis:           rdb,
		JWTSecret:       cfg.JWTSecret,
		Sync:            chatSync,
		Messages:        messages,
		Enqueuer:        dispatcher,
		HomeserverCheck: homeserverCheck,
		Log:             log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Bool("chat_enabled", chatSync.Enabled()).Msg("chatsync started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	dispatcher.Wait()
	log.Info().Msg("chatsync stopped")
}
