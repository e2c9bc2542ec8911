package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/echoesonmars/tabys-back/cmd/server"
	"github.com/echoesonmars/tabys-back/internal/blob"
	"github.com/echoesonmars/tabys-back/internal/broker"
	"github.com/echoesonmars/tabys-back/internal/cache"
	"github.com/echoesonmars/tabys-back/internal/config"
	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	setupTimeout = 30 * time.Second
	amqpAttempts = 5
)

func main() {
	obs.InitLogger(config.Env.LogLevel)

	// prices and quantities go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)

	db, err := storage.NewPostgresDB(config.Env.PostgresConnStr)
	if err != nil {
		fatal("postgres_connect_failed", err)
	}

	if err := storage.Migrate(ctx, db); err != nil {
		fatal("postgres_migrate_failed", err)
	}

	blobs, err := newBlobStore(ctx)
	if err != nil {
		fatal("blob_store_setup_failed", err)
	}

	var redisClient *redis.Client
	if config.Env.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, config.Env.RedisURL)
		if err != nil {
			fatal("redis_connect_failed", err)
		}
	} else {
		obs.Logger.Warn("redis disabled, category cache and idempotency keys are off")
	}

	publisher := broker.NewLogPublisher()
	if config.Env.AMQPURL != "" {
		conn, ch, err := broker.SetupConn(config.Env.AMQPURL, amqpAttempts)
		if err != nil {
			fatal("amqp_connect_failed", err)
		}
		publisher = broker.NewAMQPPublisher(conn, ch)
	}

	cancel()

	srv := server.NewServer(&server.ServerConfig{
		Addr:      config.Env.ServerAddr,
		DB:        db,
		Blobs:     blobs,
		Redis:     redisClient,
		Publisher: publisher,
	})
	srv.Run()
}

func newBlobStore(ctx context.Context) (blob.Store, error) {
	switch config.Env.BlobBackend {
	case "disk":
		return blob.NewDiskStore(config.Env.BlobDir)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:  config.Env.S3Endpoint,
			AccessKey: config.Env.S3AccessKey,
			SecretKey: config.Env.S3SecretKey,
			Bucket:    config.Env.S3Bucket,
			UseSSL:    config.Env.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", config.Env.BlobBackend)
	}
}

func fatal(msg string, err error) {
	obs.Logger.Error(msg, "error", err)
	os.Exit(1)
}
