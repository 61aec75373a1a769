package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Telegram TelegramConfig
	Card     CardConfig
	LogLevel string
}

type ServerConfig struct {
	Port string
}

// TelegramConfig configures the bot. WebhookURL is the public base URL of the
// server, without the webhook route.
type TelegramConfig struct {
	BotToken   string
	WebhookURL string
	APIBaseURL string
	BotName    string
}

type CardConfig struct {
	TemplatePath   string
	FontAmharic    string
	FontEnglish    string
	FontSize       float64
	Boldness       int
	RasterDPI      int
	ScratchRoot    string
	ComposeTimeout time.Duration
	Annotate       bool
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if one exists.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped and
// variables already set in the environment win.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Telegram: TelegramConfig{
			BotToken:   getEnv("BOT_TOKEN", ""),
			WebhookURL: getEnv("WEBHOOK_URL", ""),
			APIBaseURL: getEnv("API_BASE_URL", "https://api.telegram.org"),
			BotName:    getEnv("BOT_NAME", "PDF Image Bot"),
		},
		Card: CardConfig{
			TemplatePath:   getEnv("TEMPLATE_PATH", "assets/template.png"),
			FontAmharic:    getEnv("FONT_AMHARIC", "/usr/share/fonts/truetype/noto/NotoSansEthiopic-Regular.ttf"),
			FontEnglish:    getEnv("FONT_ENGLISH", "/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf"),
			FontSize:       getEnvAsFloat("FONT_SIZE", 24),
			Boldness:       getEnvAsInt("BOLDNESS", 1),
			RasterDPI:      getEnvAsInt("RASTER_DPI", 72),
			ScratchRoot:    getEnv("SCRATCH_ROOT", os.TempDir()),
			ComposeTimeout: getEnvAsDuration("COMPOSE_TIMEOUT", 60*time.Second),
			Annotate:       getEnvAsBool("ANNOTATE_CROPS", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Telegram.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	if cfg.Card.Boldness < 0 {
		return nil, errors.New("BOLDNESS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
