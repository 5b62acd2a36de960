package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development" validate:"oneof=development production"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"5000" validate:"min=1000,max=65535"`

	DefaultLanguage string `env:"DEFAULT_LANGUAGE"  envDefault:"javascript" validate:"required"`
	DefaultTheme    string `env:"DEFAULT_THEME"     envDefault:"dracula"    validate:"required"`
	DefaultFileName string `env:"DEFAULT_FILE_NAME" envDefault:"main"       validate:"required"`

	// 0 keeps empty rooms until the process exits.
	RoomIdleTTL       time.Duration `env:"ROOM_IDLE_TTL"       envDefault:"0s"  validate:"gte=0"`
	RoomSweepInterval time.Duration `env:"ROOM_SWEEP_INTERVAL" envDefault:"30s" validate:"min=1s"`

	WsMaxMessageSize    int64   `env:"WS_MAX_MESSAGE_SIZE"    envDefault:"1048576" validate:"min=1024"`
	WsSendBuffer        int     `env:"WS_SEND_BUFFER"         envDefault:"256"     validate:"min=1"`
	WsMessagesPerSecond float64 `env:"WS_MESSAGES_PER_SECOND" envDefault:"100"     validate:"gt=0"`
	WsMessageBurst      int     `env:"WS_MESSAGE_BURST"       envDefault:"200"     validate:"min=1"`
	WsMaxRateViolations int     `env:"WS_MAX_RATE_VIOLATIONS" envDefault:"1000"    validate:"min=1"`

	RedisFanoutEnabled bool   `env:"REDIS_FANOUT_ENABLED" envDefault:"false"`
	RedisHost          string `env:"REDIS_HOST"           envDefault:"localhost"`
	RedisPort          uint16 `env:"REDIS_PORT"           envDefault:"6379" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
