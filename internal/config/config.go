package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	Port        string

	OTLPEndpoint string

	Discord DiscordConfig

	WebsiteURL     string
	WebhookSecret  string
	LinkSessionTTL time.Duration

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// DiscordConfig carries everything needed to talk to the Discord API,
// both as the bot (role mutation) and as an OAuth client (identity link).
type DiscordConfig struct {
	BotToken      string
	GuildID       string
	PremiumRoleID string

	ClientID     string
	ClientSecret string
	RedirectURI  string

	APIBase        string
	RequestTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "rolegate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		Port:        getenv("PORT", "8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		Discord: DiscordConfig{
			BotToken:       strings.TrimSpace(getenv("DISCORD_BOT_TOKEN", "")),
			GuildID:        strings.TrimSpace(getenv("DISCORD_GUILD_ID", "")),
			PremiumRoleID:  strings.TrimSpace(getenv("DISCORD_PREMIUM_ROLE_ID", "")),
			ClientID:       strings.TrimSpace(getenv("DISCORD_CLIENT_ID", "")),
			ClientSecret:   strings.TrimSpace(getenv("DISCORD_CLIENT_SECRET", "")),
			RedirectURI:    strings.TrimSpace(getenv("DISCORD_REDIRECT_URI", "")),
			APIBase:        strings.TrimRight(getenv("DISCORD_API_BASE", "https://discord.com/api/v10"), "/"),
			RequestTimeout: getenvDuration("DISCORD_REQUEST_TIMEOUT", 10*time.Second),
		},

		WebsiteURL:     strings.TrimRight(getenv("WEBSITE_URL", "http://localhost:3000"), "/"),
		WebhookSecret:  strings.TrimSpace(getenv("WEBHOOK_SECRET", "")),
		LinkSessionTTL: getenvDuration("LINK_SESSION_TTL", 30*time.Minute),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "rolegate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 30),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 10),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
