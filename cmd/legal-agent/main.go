package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/api"
	"github.com/kenyawebs/Tana-Delta/internal/api/middleware"
	"github.com/kenyawebs/Tana-Delta/internal/cache"
	"github.com/kenyawebs/Tana-Delta/internal/config"
	"github.com/kenyawebs/Tana-Delta/internal/conversation"
	"github.com/kenyawebs/Tana-Delta/internal/coordinator"
	"github.com/kenyawebs/Tana-Delta/internal/delivery"
	"github.com/kenyawebs/Tana-Delta/internal/events"
	"github.com/kenyawebs/Tana-Delta/internal/executor"
	"github.com/kenyawebs/Tana-Delta/internal/kafka"
	"github.com/kenyawebs/Tana-Delta/internal/logger"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/responder"
	"github.com/kenyawebs/Tana-Delta/internal/settings"
	"github.com/kenyawebs/Tana-Delta/internal/storage"
	"github.com/kenyawebs/Tana-Delta/internal/whatsapp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment:", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sugar, err := logger.New(logger.Config{Development: cfg.App.Development(), Level: cfg.App.LogLevel})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = sugar.Sync() }()
	sugar.Infof("Starting legal-agent in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	db, mongoClient, err := repository.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	store := repository.NewMongoStore(db, sugar)

	var rdb *redis.Client
	if cfg.Cache.Driver == "redis" || cfg.RateLimit.Driver == "redis" {
		rdb, err = cache.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
		if err != nil {
			sugar.Fatal(err)
		}
	}

	var caches cache.Provider
	if cfg.Cache.Driver == "redis" {
		caches = cache.NewRedisProvider(rdb, cfg.Cache.Prefix)
	} else {
		caches = cache.NewFileProvider(cfg.Cache.Dir)
	}

	publisher := newPublisher(cfg, sugar)

	client := newWhatsApp(cfg, sugar)

	var (
		blobs     storage.Store
		uploadDir string
	)
	if cfg.Storage.Driver == "s3" {
		s3Store, err := storage.NewS3Store(context.Background(), storage.S3Config{
			Region:     cfg.Storage.Region,
			Bucket:     cfg.Storage.Bucket,
			Endpoint:   cfg.Storage.Endpoint,
			PublicRead: cfg.Storage.PublicRead,
			PresignTTL: cfg.PresignTTL,
		})
		if err != nil {
			sugar.Fatalf("s3 storage: %v", err)
		}
		blobs = s3Store
	} else {
		local, err := storage.NewLocalStore(cfg.Storage.LocalDir, "/uploads")
		if err != nil {
			sugar.Fatalf("local storage: %v", err)
		}
		blobs = local
		uploadDir = cfg.Storage.LocalDir
	}

	tmpl, err := responder.LoadTemplates()
	if err != nil {
		sugar.Fatalf("load legal templates: %v", err)
	}
	research := responder.NewResearch(tmpl, caches.Category("research"), sugar)

	settingsSvc := settings.NewService(store.Settings)
	if !cfg.WhatsApp.Enabled {
		disableWhatsApp(settingsSvc, sugar)
	}

	caseLaw := responder.NewCaseLaw(tmpl, research, caches.Category("caselaw"), sugar)
	adapter := delivery.New(client, store, blobs, sugar)
	coord := coordinator.New(coordinator.Deps{
		Store:           store,
		Settings:        settingsSvc,
		Reasoning:       responder.NewReasoning(tmpl, caches.Category("reasoning"), sugar),
		Documents:       responder.NewDocuments(tmpl, caches.Category("documents"), sugar),
		CaseLaw:         caseLaw,
		Executor:        executor.New(cfg.Processing.MaxConcurrent, sugar),
		Events:          publisher,
		Notifier:        adapter,
		Logger:          sugar,
		QueryTimeout:    cfg.QueryTimeout,
		DocumentTimeout: cfg.DocumentTimeout,
	})

	var (
		rateLimit fiber.Handler
		ipLimiter *middleware.IPRateLimiter
	)
	if cfg.RateLimit.Driver == "redis" {
		rateLimit = middleware.NewRedisRateLimiter(rdb, cfg.Cache.Prefix, cfg.RateLimit.PerMinute, time.Minute, sugar).Handler()
	} else {
		ipLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, sugar)
		rateLimit = ipLimiter.Handler()
	}

	app := api.New(api.Deps{
		Coordinator:  coord,
		Conversation: conversation.NewHandler(store, coord, adapter, sugar),
		Delivery:     adapter,
		WhatsApp:     client,
		Store:        store,
		Settings:     settingsSvc,
		Research:     research,
		CaseLaw:      caseLaw,
		Files:        storage.NewUploader(blobs, sugar),
		Auth:         middleware.NewAdminAuth(cfg.JWT.Secret, cfg.JWT.Issuer, sugar),
		RateLimit:    rateLimit,
		Logger:       sugar,
		UploadDir:    uploadDir,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	go func() {
		listenAddr := ":" + cfg.App.PortString()
		sugar.Infof("Server listening on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			sugar.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		sugar.Errorf("Fiber app shutdown error: %v", err)
	}
	// in-flight jobs still write their final status
	if err := coord.Shutdown(ctx); err != nil {
		sugar.Errorf("processing shutdown error: %v", err)
	}
	if ipLimiter != nil {
		ipLimiter.Close()
	}
	if err := publisher.Close(); err != nil {
		sugar.Errorf("event publisher close error: %v", err)
	}
	if err := mongoClient.Disconnect(ctx); err != nil {
		sugar.Errorf("MongoDB disconnect error: %v", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			sugar.Errorf("Redis client close error: %v", err)
		}
	}
	sugar.Info("Graceful shutdown complete")
}

func newPublisher(cfg *config.Config, sugar *zap.SugaredLogger) events.Publisher {
	switch cfg.Events.Driver {
	case "kafka":
		sugar.Infow("publishing status events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		return events.NewKafkaPublisher(kafka.NewProducer(cfg.Kafka))
	case "nats":
		p, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			sugar.Fatalf("nats connect: %v", err)
		}
		sugar.Infow("publishing status events to nats", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		return p
	}
	return events.Nop{}
}

func newWhatsApp(cfg *config.Config, sugar *zap.SugaredLogger) whatsapp.Client {
	if cfg.WhatsApp.Mode != "live" {
		sugar.Warn("WhatsApp running in simulated mode. Replies are recorded, not sent.")
		return whatsapp.NewSimulatedClient(sugar)
	}
	return whatsapp.NewCloudClient(whatsapp.CloudConfig{
		APIURL:          cfg.WhatsApp.APIURL,
		Token:           cfg.WhatsApp.Token,
		PhoneNumberID:   cfg.WhatsApp.PhoneNumberID,
		RetryMaxElapsed: cfg.RetryMaxElapsed,
		BreakerFailures: cfg.WhatsApp.BreakerFailures,
	}, sugar)
}

// disableWhatsApp turns the channel off in the stored settings so the
// webhook rejects traffic until an admin enables it again.
func disableWhatsApp(svc *settings.Service, sugar *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := svc.Get(ctx)
	if err != nil {
		sugar.Fatalf("load settings: %v", err)
	}
	if !st.WhatsAppEnabled {
		return
	}
	st.WhatsAppEnabled = false
	if _, err := svc.Update(ctx, st); err != nil {
		sugar.Fatalf("disable whatsapp: %v", err)
	}
	sugar.Warn("WhatsApp channel disabled by configuration")
}
