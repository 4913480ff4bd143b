package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort      int
	SQLitePath    string
	SessionSecret string
	SessionTTL    time.Duration

	LogLevel  string
	LogFormat string

	AMQPURL   string
	AMQPQueue string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LoginRate  float64
	LoginBurst int

	SeriesWorkers int

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load reads an optional .env file and then parses BOOKING_* variables from
// the process environment.
//
// Defaults are applied for optional fields. Missing required keys and keys
// with unparsable values are collected and reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:      8080,
		SQLitePath:    "booking.db",
		SessionTTL:    24 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
		AMQPQueue:     "reservation.events",
		CacheTTL:      30 * time.Second,
		LoginRate:     1,
		LoginBurst:    5,
		SeriesWorkers: 4,
	}

	p := parser{getenv: getenv}

	p.positiveInt("BOOKING_HTTP_PORT", &cfg.HTTPPort)
	p.str("BOOKING_SQLITE_PATH", &cfg.SQLitePath)
	if secret := p.value("BOOKING_SESSION_SECRET"); secret == "" {
		p.missing = append(p.missing, "BOOKING_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}
	p.duration("BOOKING_SESSION_TTL", &cfg.SessionTTL)

	p.oneOf("BOOKING_LOG_LEVEL", &cfg.LogLevel, "debug", "info", "warn", "error")
	p.oneOf("BOOKING_LOG_FORMAT", &cfg.LogFormat, "json", "text")

	p.str("BOOKING_AMQP_URL", &cfg.AMQPURL)
	p.str("BOOKING_AMQP_QUEUE", &cfg.AMQPQueue)

	p.str("BOOKING_REDIS_ADDR", &cfg.RedisAddr)
	p.str("BOOKING_REDIS_PASSWORD", &cfg.RedisPassword)
	if value := p.value("BOOKING_REDIS_DB"); value != "" {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			p.invalid = append(p.invalid, "BOOKING_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}
	p.duration("BOOKING_CACHE_TTL", &cfg.CacheTTL)

	if value := p.value("BOOKING_LOGIN_RATE"); value != "" {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			p.invalid = append(p.invalid, "BOOKING_LOGIN_RATE")
		} else {
			cfg.LoginRate = rate
		}
	}
	p.positiveInt("BOOKING_LOGIN_BURST", &cfg.LoginBurst)
	p.positiveInt("BOOKING_SERIES_WORKERS", &cfg.SeriesWorkers)

	p.str("BOOKING_BOOTSTRAP_ADMIN_EMAIL", &cfg.BootstrapAdminEmail)
	p.str("BOOKING_BOOTSTRAP_ADMIN_PASSWORD", &cfg.BootstrapAdminPassword)
	if (cfg.BootstrapAdminEmail == "") != (cfg.BootstrapAdminPassword == "") {
		if cfg.BootstrapAdminEmail == "" {
			p.missing = append(p.missing, "BOOKING_BOOTSTRAP_ADMIN_EMAIL")
		} else {
			p.missing = append(p.missing, "BOOKING_BOOTSTRAP_ADMIN_PASSWORD")
		}
	}

	if len(p.missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(p.invalid, ", "))
	}

	return cfg, nil
}

type parser struct {
	getenv  func(string) string
	missing []string
	invalid []string
}

func (p *parser) value(key string) string {
	return strings.TrimSpace(p.getenv(key))
}

func (p *parser) str(key string, dst *string) {
	if value := p.value(key); value != "" {
		*dst = value
	}
}

func (p *parser) positiveInt(key string, dst *int) {
	value := p.value(key)
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	value := p.value(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}

func (p *parser) oneOf(key string, dst *string, allowed ...string) {
	value := strings.ToLower(p.value(key))
	if value == "" {
		return
	}
	for _, candidate := range allowed {
		if value == candidate {
			*dst = value
			return
		}
	}
	p.invalid = append(p.invalid, key)
}
