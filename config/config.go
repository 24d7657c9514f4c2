package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration snapshot. It is loaded once in
// main and never mutated afterwards.
type Config struct {
	Addr     string `env:"LISTEN_ADDR" envDefault:":5800"`
	SiteRoot string `env:"SITE_ROOT" envDefault:"./site"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	DBHost string `env:"DB_HOST" envDefault:"localhost"`
	DBPort int    `env:"DB_PORT" envDefault:"5432"`
	DBUser string `env:"DB_USER,required"`
	DBPass string `env:"DB_PASS,required"`
	DBName string `env:"DB_NAME,required"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	YoutubeAPIKey  string `env:"YT_API_KEY,required"`
	YoutubeBaseURL string `env:"YT_BASE_URL" envDefault:"https://www.googleapis.com/youtube/v3"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID,required"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET,required"`
	DiscordAppID        string `env:"DISCORD_APP_ID,required"`
	DiscordAuthURL      string `env:"DISCORD_AUTH_URL" envDefault:"https://discord.com/oauth2/authorize"`
	DiscordTokenURL     string `env:"DISCORD_TOKEN_URL" envDefault:"https://discord.com/api/oauth2/token"`
	DiscordAPIBase      string `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
	DiscordRedirectURL  string `env:"DISCORD_REDIRECT_URL,required"`

	WebhookPB       string `env:"WEBHOOK_PB"`
	WebhookWR       string `env:"WEBHOOK_WR"`
	WebhookActivity string `env:"WEBHOOK_ACTIVITY"`

	// Optional R2 mirror for CDN objects. Mirroring is disabled when the
	// bucket name is empty.
	R2AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string `env:"R2_BUCKET_NAME"`
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// DSN builds the postgres connection string used by both GORM and the
// notification listener connections.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
