package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DiscordConfig struct {
	BotToken             string
	GuildID              string
	ConfigureCommandName string
	AdminRoleIDs         []string
}

// IsConfigured returns true if all required Discord configuration is present
func (c DiscordConfig) IsConfigured() bool {
	return c.BotToken != ""
}

type MinecraftConfig struct {
	Host            string
	Port            int
	Username        string
	VisitTarget     string
	CommandCooldown time.Duration
	SettleDelay     time.Duration
	ReconnectDelay  time.Duration
}

// IsConfigured returns true if the bot identity needed to join the server is present
func (c MinecraftConfig) IsConfigured() bool {
	return c.Username != ""
}

type DatabaseConfig struct {
	URL    string
	Schema string
}

// IsConfigured returns true if rules should persist to Postgres instead of the data dir
func (c DatabaseConfig) IsConfigured() bool {
	return c.URL != "" && c.Schema != ""
}

type AlertsConfig struct {
	SlackWebhookURL string
}

// IsConfigured returns true if operator alerts should be delivered
func (c AlertsConfig) IsConfigured() bool {
	return c.SlackWebhookURL != ""
}

type AppConfig struct {
	Environment string
	DataDir     string
	StatusPort  string // Optional with default "8080"

	DiscordConfig   DiscordConfig
	MinecraftConfig MinecraftConfig
	DatabaseConfig  DatabaseConfig
	AlertsConfig    AlertsConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	// The Discord token is the only hard requirement - without it the bridge
	// cannot reach either side.
	botToken, err := getEnvRequired("DISCORD_TOKEN")
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		Environment: getEnvWithDefault("ENVIRONMENT", "dev"),
		DataDir:     getEnvWithDefault("DATA_DIR", "data"),
		StatusPort:  getEnvWithDefault("STATUS_PORT", "8080"),

		DiscordConfig: DiscordConfig{
			BotToken:             botToken,
			GuildID:              os.Getenv("GUILD_ID"),
			ConfigureCommandName: getEnvWithDefault("CONFIGURE_COMMAND_NAME", "configure"),
			AdminRoleIDs:         splitList(os.Getenv("ADMIN_ROLE_IDS")),
		},

		MinecraftConfig: MinecraftConfig{
			Host:            getEnvWithDefault("MC_HOST", "mc.hypixel.net"),
			Port:            getEnvIntWithDefault("MC_PORT", 25565),
			Username:        os.Getenv("MC_EMAIL"),
			VisitTarget:     os.Getenv("MC_VISIT_TARGET"),
			CommandCooldown: getEnvMillisWithDefault("MC_COMMAND_COOLDOWN_MS", 1200*time.Millisecond),
			SettleDelay:     getEnvMillisWithDefault("MC_SETTLE_DELAY_MS", 4000*time.Millisecond),
			ReconnectDelay:  getEnvMillisWithDefault("MC_RECONNECT_DELAY_MS", 5000*time.Millisecond),
		},

		DatabaseConfig: DatabaseConfig{
			URL:    os.Getenv("DB_URL"),
			Schema: os.Getenv("DB_SCHEMA"),
		},

		AlertsConfig: AlertsConfig{
			SlackWebhookURL: os.Getenv("SLACK_ALERT_WEBHOOK_URL"),
		},
	}

	if config.MinecraftConfig.IsConfigured() {
		log.Printf("✅ Minecraft identity configured (%s)", config.MinecraftConfig.Username)
	} else {
		log.Printf("⚠️ No Minecraft user set (MC_EMAIL) - the bot cannot join the server")
	}

	if config.DatabaseConfig.IsConfigured() {
		log.Printf("✅ Postgres rules persistence configured")
	} else {
		log.Printf("📋 Using file-based rules persistence under %s/", config.DataDir)
	}

	if config.AlertsConfig.IsConfigured() {
		log.Printf("✅ Slack operator alerts configured")
	} else {
		log.Printf("⚠️ Slack operator alerts not configured - disconnect alerts will only be logged")
	}

	return config, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️ Invalid integer for %s (%q) - using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvMillisWithDefault reads a millisecond count. An explicit zero is
// meaningful for MC_RECONNECT_DELAY_MS: it disables reconnection.
func getEnvMillisWithDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		log.Printf("⚠️ Invalid duration for %s (%q) - using default %s", key, raw, defaultValue)
		return defaultValue
	}
	return time.Duration(value) * time.Millisecond
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
