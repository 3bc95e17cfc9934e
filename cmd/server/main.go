// Command server runs the MLO map API: listings with the claim wizard, map
// assets placed by the coordinate engine, and the forum sync worker.
//
// Configuration comes from built-in defaults, an optional config.yaml and
// MLOMAP_* environment variables, in that order. SIGINT and SIGTERM trigger
// a graceful shutdown of the supervisor tree.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/api"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/config"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/database"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/storage"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/supervisor"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	if cfg.Logging.Level != "debug" && cfg.Logging.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.Database.Path}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	objects, err := storage.Open(storage.Config{Path: cfg.Storage.Path, InMemory: cfg.Storage.InMemory})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open object storage")
	}
	defer objects.Close()

	app, err := api.NewApp(cfg, database.GetDB(), objects, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build application")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddWorker(app.Forum)
	tree.AddWorker(supervisor.NewGCService(objects, 10*time.Minute))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", cfg.Server.Addr).
		Bool("discord", cfg.Discord.BotToken != "").
		Bool("forum_sync", cfg.Discord.ForumChannelID != "").
		Bool("smtp", cfg.SMTP.Host != "").
		Msg("Server starting")

	// 启动服务器
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	logging.Info().Msg("Server stopped")
}
