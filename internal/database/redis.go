package database

import (
	"context"
	"time"

	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis parses url, dials and pings the server.
func ConnectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("Redis connected", zap.String("addr", opt.Addr))
	return client, nil
}
