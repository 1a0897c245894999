package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config 所有配置项都有默认值，可以被同名环境变量或 .env 覆盖
type Config struct {
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ServiceName     string        `mapstructure:"SERVICE_NAME"`
	OTLPEndpoint    string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	DatabaseDSN     string        `mapstructure:"DATABASE_DSN"`
	DBSlowThreshold time.Duration `mapstructure:"DB_SLOW_THRESHOLD"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTAccessSecret  string `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`

	LocationChannelPrefix string `mapstructure:"LOCATION_CHANNEL_PREFIX"`
	ChatChannelPrefix     string `mapstructure:"CHAT_CHANNEL_PREFIX"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	SMTPHost     string        `mapstructure:"SMTP_HOST"`
	SMTPPort     int           `mapstructure:"SMTP_PORT"`
	SMTPUsername string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string        `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string        `mapstructure:"SMTP_FROM"`
	SMTPTimeout  time.Duration `mapstructure:"SMTP_TIMEOUT"`

	MinioEndpoint       string        `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey      string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey      string        `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket         string        `mapstructure:"MINIO_BUCKET"`
	MinioRegion         string        `mapstructure:"MINIO_REGION"`
	MinioUseSSL         bool          `mapstructure:"MINIO_USE_SSL"`
	PresignExpiry       time.Duration `mapstructure:"PRESIGN_EXPIRY"`
	DefaultProfileImage string        `mapstructure:"DEFAULT_PROFILE_IMAGE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	WSRateLimitRPS float64 `mapstructure:"WS_RATE_LIMIT_RPS"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                   ":8080",
	"LOG_LEVEL":                   "info",
	"SERVICE_NAME":                "lee-social",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"DATABASE_DSN":                "user:password@tcp(127.0.0.1:3306)/social?charset=utf8mb4&parseTime=True&loc=UTC",
	"DB_SLOW_THRESHOLD":           "200ms",

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_ACCESS_SECRET":  "change-me-access",
	"JWT_REFRESH_SECRET": "change-me-refresh",

	"LOCATION_CHANNEL_PREFIX": "channel:location",
	"CHAT_CHANNEL_PREFIX":     "channel:chat",

	"KAFKA_BROKERS": "",
	"KAFKA_TOPIC":   "social-events",

	"SMTP_HOST":     "",
	"SMTP_PORT":     587,
	"SMTP_USERNAME": "",
	"SMTP_PASSWORD": "",
	"SMTP_FROM":     "NoReply <no-reply@example.com>",
	"SMTP_TIMEOUT":  "10s",

	"MINIO_ENDPOINT":        "",
	"MINIO_ACCESS_KEY":      "",
	"MINIO_SECRET_KEY":      "",
	"MINIO_BUCKET":          "profile-images",
	"MINIO_REGION":          "us-east-1",
	"MINIO_USE_SSL":         false,
	"PRESIGN_EXPIRY":        "1h",
	"DEFAULT_PROFILE_IMAGE": "https://static.example.com/default-avatar.png",

	"RATE_LIMIT_RPS":    20.0,
	"RATE_LIMIT_BURST":  40,
	"WS_RATE_LIMIT_RPS": 5.0,
}

// Load 从 dir 下的 .env 和环境变量读取配置，.env 不存在时只用环境变量
func Load(dir string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
