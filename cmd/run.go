package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"betbot/api"
	"betbot/bot"
	"betbot/bot/common"
	"betbot/bot/discord"
	"betbot/bot/features/account"
	"betbot/bot/features/admin"
	"betbot/bot/features/deposits"
	"betbot/bot/features/support"
	"betbot/bot/features/wagers"
	"betbot/bot/telegram"
	"betbot/config"
	"betbot/database"
	"betbot/events"
	"betbot/infrastructure"
	"betbot/infrastructure/observability"
	"betbot/models"
	"betbot/repository"
	"betbot/service"

	log "github.com/sirupsen/logrus"
)

// platformClient is what an adapter provides to the services
type platformClient interface {
	service.Messenger
	service.MembershipProvider
	common.Platform
}

// adapter receives updates until its context ends
type adapter struct {
	client platformClient
	start  func(ctx context.Context, handler common.Handler) error
	stop   func()
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)
	log.WithField("platform", cfg.Platform).Info("Starting bet bot...")
	started := time.Now()

	log.Info("Initializing event bus...")
	eventBus := events.NewBus()

	log.Info("Initializing metrics...")
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Attach(eventBus)

	var db *database.DB
	if cfg.DatabaseURL != "" {
		log.Info("Running database migrations...")
		if err := database.RunMigrationsWithURL(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		log.Info("Connecting to database...")
		var err error
		db, err = database.NewConnection(ctx, cfg.DatabaseURL, 5)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		infrastructure.NewJournalRecorder(repository.NewJournalRepository(db)).Attach(eventBus)
		log.Info("Audit journal enabled")
	}

	var natsClient *infrastructure.NATSClient
	if cfg.NATSURL != "" {
		log.Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSURL)
		mapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.Connect(ctx); err != nil {
			log.WithError(err).Warn("NATS unavailable, events will not be published")
			natsClient = nil
		} else {
			if err := natsClient.EnsureStream(infrastructure.EventStreamName, mapper.StreamSubjects()); err != nil {
				log.WithError(err).Warn("Failed to ensure NATS stream")
			}
			infrastructure.NewNATSEventPublisher(natsClient, mapper).Attach(eventBus)
		}
	}

	log.Info("Initializing scheduler...")
	scheduler, err := infrastructure.NewScheduler()
	if err != nil {
		return err
	}
	scheduler.Start()

	log.Info("Initializing services...")
	ledger := service.NewLedgerService(
		repository.NewAccountStore(),
		repository.NewSettingsStore(models.DefaultSettings()),
		eventBus,
		cfg.OwnerID,
		cfg.Location(),
	)
	guard := service.NewAccessGuard(ledger)
	wagerService := service.NewWagerService(repository.NewWagerStore(), ledger, scheduler, service.CryptoRandom{}, eventBus, cfg.WagerTimeout)
	depositService := service.NewDepositService(repository.NewDepositStore(), ledger, guard, eventBus)
	settingsService := service.NewSettingsService(ledger, guard, eventBus)
	statsService := service.NewStatsService(ledger, depositService, wagerService, eventBus)

	log.Info("Initializing chat platform...")
	platform, err := newAdapter(cfg)
	if err != nil {
		return err
	}

	channelStore := repository.NewChannelStore()
	channelService := service.NewChannelService(channelStore, platform.client, guard)
	gate := service.NewMembershipGate(ledger, channelStore, platform.client, platform.client)

	responder := common.NewResponder(platform.client, cfg.OwnerID)
	sessions := common.NewSessionStore()

	wagerFeature := wagers.New(wagerService, ledger, responder, platform.client, cfg.SettleDelay)
	wagerFeature.Attach(eventBus)
	features := bot.Features{
		Wagers:   wagerFeature,
		Deposits: deposits.New(depositService, ledger, sessions, responder),
		Account:  account.New(ledger, guard, statsService, responder, platform.client),
		Support:  support.New(ledger, guard, sessions, responder),
		Admin:    admin.New(ledger, guard, settingsService, channelService, statsService, sessions, responder),
	}
	dispatcher := bot.NewDispatcher(gate, sessions, responder, features, metrics)

	if err := scheduler.Every("session-sweep", common.SessionSweepInterval, func() {
		if n := sessions.Sweep(common.SessionTTL); n > 0 {
			log.WithField("count", n).Debug("Expired idle sessions")
		}
	}); err != nil {
		return err
	}

	log.Info("Starting health endpoints...")
	health := api.NewHealthServer(statsService, cfg.Platform, started)
	go func() {
		if err := health.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.WithError(err).Error("Health server stopped")
		}
	}()

	var grpcHealth *api.GRPCHealth
	if cfg.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen on grpc port: %w", err)
		}
		grpcHealth = api.NewGRPCHealth()
		go func() {
			if err := grpcHealth.Serve(lis); err != nil {
				log.WithError(err).Error("grpc health server stopped")
			}
		}()
	}

	if err := platform.start(ctx, dispatcher); err != nil {
		return fmt.Errorf("failed to start %s adapter: %w", cfg.Platform, err)
	}
	if grpcHealth != nil {
		grpcHealth.SetServing(true)
	}

	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down bot...")
	if grpcHealth != nil {
		grpcHealth.SetServing(false)
	}

	platform.stop()
	wagerFeature.Wait()
	gate.WaitAlerts()

	if err := scheduler.Shutdown(); err != nil {
		log.WithError(err).Error("Error stopping scheduler")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eventBus.Drain(shutdownCtx); err != nil {
		log.WithError(err).Warn("Event handlers did not finish before the shutdown timeout")
	}
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error stopping health server")
	}
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}
	if db != nil {
		log.Info("Closing database connection...")
		db.Close()
	}

	log.Info("Shutdown completed")
	return nil
}

func configureLogging(cfg *config.Config) {
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func newAdapter(cfg *config.Config) (*adapter, error) {
	switch cfg.Platform {
	case config.PlatformTelegram:
		botAPI, err := telegram.Connect(cfg.BotToken, cfg.LogLevel == "debug")
		if err != nil {
			return nil, err
		}
		done := make(chan struct{})
		return &adapter{
			client: telegram.NewClient(botAPI, botAPI.Self),
			start: func(ctx context.Context, handler common.Handler) error {
				poller := telegram.NewPoller(botAPI, handler)
				go func() {
					defer close(done)
					poller.Run(ctx)
				}()
				return nil
			},
			stop: func() { <-done },
		}, nil

	case config.PlatformDiscord:
		discordBot, err := discord.New(cfg.BotToken)
		if err != nil {
			return nil, err
		}
		return &adapter{
			client: discordBot.Client(),
			start:  discordBot.Start,
			stop: func() {
				if err := discordBot.Close(); err != nil {
					log.WithError(err).Error("Error closing Discord bot")
				}
			},
		}, nil
	}
	return nil, errors.New("unsupported platform " + cfg.Platform)
}
