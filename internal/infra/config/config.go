package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Asia/Tashkent"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	Lang        string `envconfig:"BOT_LANG" default:"ru"`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN" required:"true"`
		WebhookURL    string `envconfig:"TG_WEBHOOK_URL"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
	} `envconfig:""`

	AdminID int64 `envconfig:"ADMIN_ID" required:"true"`

	Store struct {
		Driver     string `envconfig:"STORE_DRIVER" default:"postgres"`
		PGDSN      string `envconfig:"PG_DSN"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"checkin.db"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Event struct {
		TargetLat    float64 `envconfig:"TARGET_LAT" default:"41.356015"`
		TargetLon    float64 `envconfig:"TARGET_LON" default:"69.314663"`
		RadiusMeters float64 `envconfig:"RADIUS_METERS" default:"150"`
		Award        int     `envconfig:"CHECKIN_AWARD" default:"20"`
	} `envconfig:""`

	Dialog struct {
		ConfirmTokens []string      `envconfig:"CONFIRM_TOKENS" default:"да,yes"`
		SkipTokens    []string      `envconfig:"SKIP_TOKENS" default:"нет,no"`
		TTL           time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	} `envconfig:""`

	Broadcast struct {
		Workers int `envconfig:"BROADCAST_WORKERS" default:"4"`
	} `envconfig:""`
}

// Load загружает конфиг из .env (если он есть) и окружения.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Printf("файл .env не найден, используем переменные окружения")
	}
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг только из окружения.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Location возвращает часовой пояс мероприятия, по которому считается «сегодня».
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
