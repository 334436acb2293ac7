package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FloodMonitorAPI/internal/bot"
	"FloodMonitorAPI/internal/cache"
	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/database"
	"FloodMonitorAPI/internal/handler"
	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/mqtt"
	"FloodMonitorAPI/internal/notifier"
	"FloodMonitorAPI/internal/repository"
	"FloodMonitorAPI/internal/retry"
	"FloodMonitorAPI/internal/server"
	"FloodMonitorAPI/internal/service"
	"FloodMonitorAPI/internal/telegram"
	"FloodMonitorAPI/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Flood Monitor API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database Connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Info("Database connected successfully (%s)", db.Driver())

	// 4. Initialize Repositories
	readingRepo := repository.NewReadingRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// 5. Notification channel
	var (
		alertNotifier notifier.Notifier = notifier.NewLogOnly(log)
		tgClient      *telegram.Client
		tgNotifier    *telegram.Notifier
	)
	if cfg.Telegram.Enabled {
		tgClient = telegram.NewClient(telegram.Config{
			BaseURL:     cfg.Telegram.APIURL,
			Token:       cfg.Telegram.BotToken,
			HTTPTimeout: cfg.Telegram.HTTPTimeout,
		})
		tgNotifier = telegram.NewNotifier(tgClient, cfg.Telegram.ChatID, cfg.Telegram.ParseMode)
		alertNotifier = tgNotifier
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, alerts will only be logged")
	}

	// 6. Live feed
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	// 7. Initialize Services
	policy := service.NewAlertPolicy(cfg.Alert.Policy(), alertNotifier, log,
		service.WithLocation(cfg.Location()),
		service.WithHistory(alertRepo),
	)
	policy.Subscribe(hub.BroadcastAlert)

	statsService := service.NewStatsService(readingRepo, log)
	ingestService := service.NewIngestService(readingRepo, policy, log)
	ingestService.SetBroadcaster(hub)

	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("Stats cache disabled: %v", err)
		} else {
			defer redisClient.Close()
			statsService.SetCache(redisClient)
			ingestService.SetCache(redisClient)
			log.Info("Stats cache connected at %s", cfg.Redis.Addr)
		}
	}

	// 8. MQTT ingestion
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = startMQTT(cfg, ingestService, policy, log)
		if mqttClient != nil {
			defer mqttClient.Disconnect()
		}
	}

	// 9. Command poller
	if tgClient != nil && cfg.Telegram.PollCommands {
		commands := bot.NewHandler(readingRepo, statsService, cfg.Alert.Policy(), log)
		poller := bot.NewPoller(
			telegram.NewUpdateSource(tgClient, cfg.Telegram.PollTimeout),
			commands,
			tgNotifier,
			tgNotifier.ChatID(),
			retry.Backoff{MinInterval: cfg.Telegram.BackoffBase, MaxInterval: cfg.Telegram.BackoffMax},
			log,
		)
		go poller.Run(ctx)
	}

	// 10. Initialize Handlers
	srv := server.New(cfg, log)
	srv.RegisterHandlers(ctx,
		handler.NewReadingHandler(ingestService, statsService, log),
		handler.NewStatsHandler(statsService, log),
		handler.NewAlertHandler(policy, alertRepo, cfg.Security.JWTSecret, log),
		handler.NewReportHandler(statsService, alertRepo, cfg.Alert.Threshold, cfg.Location(), log),
		handler.NewHealthHandler(db, readingRepo, mqttClient, log),
		handler.NewLiveHandler(hub, log),
	)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Alert threshold: %d%%", cfg.Alert.Threshold)

	// 11. Graceful Shutdown
	<-ctx.Done()
	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}

// startMQTT connects the broker ingress and mirrors alerts onto it. Failures
// are logged and leave HTTP ingestion running.
func startMQTT(cfg *config.Config, ingest *service.IngestService, policy *service.AlertPolicy, log *logger.Logger) *mqtt.Client {
	client, err := mqtt.NewClient(mqtt.ClientConfig{
		MQTT:   &cfg.MQTT,
		Logger: log,
	})
	if err != nil {
		log.Error("Failed to create MQTT client: %v", err)
		return nil
	}

	if err := client.Connect(); err != nil {
		log.Error("Failed to connect to MQTT broker: %v", err)
		return client
	}

	if err := client.Subscribe(cfg.MQTT.ReadingTopic, mqtt.ReadingHandler(service.ParsePayload, ingest)); err != nil {
		log.Error("Failed to subscribe to reading topic: %v", err)
	}

	if cfg.MQTT.AlertTopic != "" {
		publisher := mqtt.NewAlertPublisher(client, cfg.MQTT.AlertTopic)
		policy.Subscribe(func(event models.AlertEvent) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Publish(ctx, event); err != nil {
				log.Warn("Failed to mirror alert to MQTT: %v", err)
			}
		})
	}

	log.Info("MQTT ingestion active on %s", cfg.MQTT.ReadingTopic)
	return client
}
