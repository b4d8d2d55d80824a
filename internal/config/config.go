// Package config содержит логику чтения конфигурации сервиса кофейни.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultTokenTTL   = 24 * time.Hour
)

// Config содержит параметры конфигурации сервиса кофейни.
type Config struct {
	RunAddress  string        `env:"RUN_ADDRESS"`
	DatabaseURI string        `env:"DATABASE_URI"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTTTL      time.Duration `env:"JWT_TTL"`
	TaxRate     string        `env:"TAX_RATE"`
	AMQPURL     string        `env:"AMQP_URL"`
	LogLevel    string        `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret key for signing tokens")
	flag.DurationVar(&cfg.JWTTTL, "t", defaultTokenTTL, "token lifetime")
	flag.StringVar(&cfg.TaxRate, "x", "0", "tax rate in percent")
	flag.StringVar(&cfg.AMQPURL, "q", "", "AMQP broker URL for order events")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")

	flag.Parse()

	override(&cfg.RunAddress, fromEnv.RunAddress)
	override(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	override(&cfg.JWTSecret, fromEnv.JWTSecret)
	override(&cfg.TaxRate, fromEnv.TaxRate)
	override(&cfg.AMQPURL, fromEnv.AMQPURL)
	override(&cfg.LogLevel, fromEnv.LogLevel)
	if fromEnv.JWTTTL != 0 {
		cfg.JWTTTL = fromEnv.JWTTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %s", cfg.JWTTTL)
	}
	if _, err := cfg.Tax(); err != nil {
		return nil, err
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Tax возвращает ставку налога в процентах, например 8.25.
func (c *Config) Tax() (decimal.Decimal, error) {
	if c.TaxRate == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("tax rate must be between 0 and 100, got %s", rate)
	}
	return rate, nil
}

// Level возвращает уровень логирования.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return lvl, nil
}
