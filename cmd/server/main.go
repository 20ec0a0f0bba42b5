package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baaaki/foodgram/internal/audit"
	"github.com/Baaaki/foodgram/internal/config"
	"github.com/Baaaki/foodgram/internal/database"
	"github.com/Baaaki/foodgram/internal/server"
	"github.com/Baaaki/foodgram/internal/storage"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect(cfg)
	database.MustMigrate()

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize audit journal
	journal, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		logger.Log.Fatal("Failed to open audit journal", zap.Error(err))
	}
	defer journal.Close()

	if cfg.AuditRetention > 0 {
		removed, err := journal.Prune(time.Now().Add(-cfg.AuditRetention))
		if err != nil {
			logger.Log.Error("Failed to prune audit journal", zap.Error(err))
		} else if removed > 0 {
			logger.Log.Info("Audit journal pruned", zap.Int("removed", removed))
		}
	}

	store, err := storage.NewStorage(context.Background(), storage.Config{
		Type:      cfg.StorageType,
		BasePath:  cfg.MediaRoot,
		BaseURL:   mediaBaseURL(cfg),
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		logger.Log.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	srv, err := server.New(server.Deps{
		Config:  cfg,
		DB:      database.DB,
		Redis:   redisClient,
		Storage: store,
		Journal: journal,
	})
	if err != nil {
		logger.Log.Fatal("Failed to build server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           srv.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting",
			zap.String("addr", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.StorageType),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server stopped",
		zap.Int("open_streams", srv.Notifications.Connected()),
	)
}

// mediaBaseURL is the public prefix stored objects are served under.
func mediaBaseURL(cfg *config.Config) string {
	if cfg.StorageType == "s3" {
		return cfg.S3PublicURL
	}
	return cfg.BaseURL + cfg.MediaURL
}
