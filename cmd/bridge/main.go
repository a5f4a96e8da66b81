package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/leoapplecool/discord-x-housing-bridge/alerts"
	"github.com/leoapplecool/discord-x-housing-bridge/clients/discord"
	"github.com/leoapplecool/discord-x-housing-bridge/clients/minecraft"
	"github.com/leoapplecool/discord-x-housing-bridge/config"
	"github.com/leoapplecool/discord-x-housing-bridge/db"
	"github.com/leoapplecool/discord-x-housing-bridge/handlers"
	"github.com/leoapplecool/discord-x-housing-bridge/models"
	"github.com/leoapplecool/discord-x-housing-bridge/services"
	"github.com/leoapplecool/discord-x-housing-bridge/services/presence"
	"github.com/leoapplecool/discord-x-housing-bridge/services/relay"
	"github.com/leoapplecool/discord-x-housing-bridge/services/rules"
	"github.com/leoapplecool/discord-x-housing-bridge/services/settings"
	"github.com/leoapplecool/discord-x-housing-bridge/usecases/bridge"
)

type Options struct {
	DataDir string `long:"data-dir" description:"Directory for the file-based rule store (overrides DATA_DIR)"`
	NoMC    bool   `long:"no-minecraft" description:"Run without connecting to Minecraft (Discord-side only)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	log.Printf("📋 Starting Discord ↔ housing bridge")
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	alerter := alerts.NewAlerter(alerts.SlackAlertConfig{
		WebhookURL:  cfg.AlertsConfig.SlackWebhookURL,
		Environment: cfg.Environment,
		AppName:     "housing-bridge",
	})

	rulesRepo, settingsRepo, err := buildRepositories(ctx, cfg)
	if err != nil {
		return err
	}

	bridgeRules, err := rules.LoadRules(ctx, rulesRepo, models.EmptyBridgeRules())
	if err != nil {
		log.Printf("⚠️ Falling back to default rules: %v", err)
		alerter.NotifyError("rules load", err)
	}
	rulesService := rules.NewService(rulesRepo, bridgeRules)
	settingsService := settings.NewService(settingsRepo)

	session, err := discord.NewSession(cfg.DiscordConfig.BotToken)
	if err != nil {
		return err
	}
	discordClient := discord.NewClient(session)

	presenceTracker := presence.NewTracker()
	relayService := relay.NewService(discordClient)

	if opts.NoMC {
		cfg.MinecraftConfig.ReconnectDelay = 0
		cfg.MinecraftConfig.Username = ""
	}

	engine := bridge.NewEngine(
		cfg,
		discordClient,
		minecraft.NewDialer(),
		rulesService,
		settingsService,
		presenceTracker,
		relayService,
		alerter,
	)
	eventsHandler := handlers.NewDiscordEventsHandler(session, cfg.DiscordConfig, engine, rulesService)

	if err := eventsHandler.StartBot(); err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bridge engine: %w", err)
	}

	statusHandler := handlers.NewStatusHTTPHandler(engine, cfg.StatusPort)
	statusHandler.Start()

	// Periodically reconcile presence with the live tab list.
	presenceTicker := time.NewTicker(30 * time.Second)
	defer presenceTicker.Stop()
	go alerter.WrapBackgroundTask("presence refresh", func() {
		for range presenceTicker.C {
			engine.RefreshPresence()
		}
	})()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	engine.Stop()
	eventsHandler.StopBot()
	statusHandler.Stop()

	log.Printf("✅ Bridge stopped gracefully")
	return nil
}

// buildRepositories selects Postgres- or file-backed persistence for rules
// and settings based on configuration.
func buildRepositories(
	ctx context.Context,
	cfg *config.AppConfig,
) (services.RulesRepository, services.SettingsRepository, error) {
	if cfg.DatabaseConfig.IsConfigured() {
		conn, err := db.NewConnection(ctx, cfg.DatabaseConfig.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := db.NewPostgresRulesRepository(conn, cfg.DatabaseConfig.Schema)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to prepare database schema: %w", err)
		}
		return repo, repo, nil
	}

	repo := db.NewFileRulesRepository(cfg.DataDir)
	return repo, repo, nil
}
