package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/smartdoor/doorman/internal/approval"
	"github.com/smartdoor/doorman/internal/http/handlers"
	"github.com/smartdoor/doorman/internal/intake"
	"github.com/smartdoor/doorman/internal/platform/notify"
	"github.com/smartdoor/doorman/internal/platform/photo"
	"github.com/smartdoor/doorman/internal/registry"
	"github.com/smartdoor/doorman/internal/store"
	"github.com/smartdoor/doorman/internal/verify"
	"github.com/smartdoor/doorman/pkg/config"
	"github.com/smartdoor/doorman/pkg/events"
	"github.com/smartdoor/doorman/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	var cache *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Intake.RateLimit > 0 {
		var err error
		cache, err = store.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			if cfg.Store.Driver == "redis" {
				logger.Error("Failed to connect to Redis", "error", err)
				os.Exit(1)
			}
			logger.Warn("Redis unavailable, rate limiting disabled", "error", err)
		}
	}
	if cache != nil {
		defer cache.Close()
	}

	entityStore, err := newEntityStore(ctx, cfg, cache)
	if err != nil {
		logger.Error("Failed to initialize entity store", "error", err)
		os.Exit(1)
	}

	photos, err := newPhotoStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize photo store", "error", err)
		os.Exit(1)
	}

	var bus events.EventBus
	if eb, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		bus = events.NopBus{}
	} else {
		bus = eb
		defer eb.Close()
	}

	dispatcher := newDispatcher(cfg, bus)

	visitors := registry.NewVisitors(entityStore)
	passcodes := registry.NewPasscodes(entityStore)

	intakeSvc := intake.NewService(visitors, passcodes, photos, dispatcher, bus, cfg)
	coordinator := approval.NewCoordinator(visitors, passcodes, dispatcher, bus, cfg.Owner.EntryURL)
	engine := verify.NewEngine(visitors, passcodes, bus)

	h := handlers.New(intakeSvc, coordinator, engine, visitors, photos, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Router(cache),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down doorman...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting doorman", "port", cfg.Server.Port, "store", cfg.Store.Driver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newEntityStore(ctx context.Context, cfg *config.Config, cache *redis.Client) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := store.NewPostgresPool(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return store.NewRedis(cache), nil
	}
}

func newPhotoStore(ctx context.Context, cfg *config.Config) (photo.Store, error) {
	if cfg.Photos.Bucket == "" {
		return photo.NewMemory(), nil
	}
	return photo.NewS3(ctx, cfg.Photos)
}

func newDispatcher(cfg *config.Config, bus events.Publisher) notify.Dispatcher {
	if cfg.Email.DevMode {
		return notify.NewDev()
	}
	return &notify.Router{
		Email: notify.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail),
		SMS:   notify.NewBusDispatcher(bus),
	}
}
