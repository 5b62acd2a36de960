//go:generate go tool swag init -o api_specs --outputTypes json,yaml

// @title			Code collab room server
// @version		1.0
// @description	Room state synchronization and broadcast for a collaborative code editor. Clients speak JSON frames over /ws; the REST endpoints are read-only.
// @BasePath		/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codecollabgo/internal/config"
	"codecollabgo/internal/http/http_server"
	"codecollabgo/internal/redis/redis_client"
	"codecollabgo/internal/services/collab"
	"codecollabgo/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

// buildLogger picks the logger for APP_ENV once the config (and .env) is in.
func buildLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if Log, err = buildLogger(cfg.AppEnv); err != nil {
		zap.L().Fatal("Failed to build logger", zap.Error(err))
	}
	zap.ReplaceGlobals(Log)
	defer Log.Sync()
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Room engine
	engine := collab.NewEngine(collab.Options{
		Defaults: collab.Defaults{
			Language: cfg.DefaultLanguage,
			Theme:    cfg.DefaultTheme,
			File: collab.FileEntry{
				ID:       "1",
				Name:     cfg.DefaultFileName,
				Language: cfg.DefaultLanguage,
			},
		},
		RoomIdleTTL: cfg.RoomIdleTTL,
	})

	// 4. WebSockets hub + optional Redis fan‑out
	hub := ws.NewHub(engine, cfg.RoomSweepInterval)
	if cfg.RedisFanoutEnabled {
		redisClient, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		hub.EnableRelay(redisClient)
		Log.Debug("Redis relay enabled")
	}
	go hub.Run(ctx)

	// 5. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, ws.ConnConfig{
		MaxMessageSize:    cfg.WsMaxMessageSize,
		SendBuffer:        cfg.WsSendBuffer,
		MessagesPerSecond: cfg.WsMessagesPerSecond,
		MessageBurst:      cfg.WsMessageBurst,
		MaxRateViolations: cfg.WsMaxRateViolations,
	})

	// 6. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, hub)
	go func() {
		if err := httpServer.Start(); err != nil {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	Log.Info("shutting down")
	_ = httpServer.Dispose()
	<-hub.Done()
}
