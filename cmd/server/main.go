package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fabricstore/internal/auth"
	"fabricstore/internal/blob"
	"fabricstore/internal/config"
	"fabricstore/internal/db"
	httpapi "fabricstore/internal/http"
	"fabricstore/internal/logging"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	blobs, uploadsDir, closeBlobs := openBlobStore(ctx, cfg, log)
	defer closeBlobs()

	var limiter *httpapi.RateLimiter
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, rate limiting fails open until it recovers")
		}
		limiter = httpapi.NewRateLimiter(rdb, cfg.PublicRateLimit, cfg.PublicRateWindow, log)
	}

	repo := repository.New(pool)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenLifespan())
	svc := service.New(repo, blobs, tokens, log, service.Options{
		AllowCancelDelivered: cfg.AllowCancelDelivered,
		DefaultAdminEmail:    cfg.DefaultAdminEmail,
		DefaultAdminPassword: cfg.DefaultAdminPassword,
	})
	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		log.Fatalf("default admin init error: %v", err)
	}
	handler := httpapi.NewHandler(svc, log)
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		UploadsDir: uploadsDir,
		Limiter:    limiter,
		Log:        log,
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Infof("backend listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
		if closeErr := server.Close(); closeErr != nil {
			log.Errorf("force close failed: %v", closeErr)
		}
	}
}

// openBlobStore returns the configured store, the directory to serve under
// /uploads (empty for GCS) and a cleanup func.
func openBlobStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (blob.Store, string, func()) {
	if cfg.StorageProvider == config.StorageGCS {
		client, err := blob.NewGCSClient(ctx)
		if err != nil {
			log.Fatalf("gcs client error: %v", err)
		}
		store, err := blob.NewGCSStore(ctx, client, cfg.GCSBucket)
		if err != nil {
			log.Fatalf("gcs store error: %v", err)
		}
		return store, "", func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("close gcs client")
			}
		}
	}
	store, err := blob.NewLocalStore(cfg.UploadsDir)
	if err != nil {
		log.Fatalf("uploads dir error: %v", err)
	}
	return store, store.Root(), func() {}
}
