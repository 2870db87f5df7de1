// Package config loads bot settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting the bot consumes.
type Config struct {
	BotToken string `validate:"required"`
	AdminID  int64  `validate:"required,gt=0"`

	DeadlineHours     int           `validate:"gt=0"`
	ReminderLeadHours int           `validate:"gte=0,ltfield=DeadlineHours"`
	SweepInterval     time.Duration `validate:"gte=1s"`
	DeliveryTimeout   time.Duration `validate:"gt=0"`
	DraftTTL          time.Duration `validate:"gt=0"`

	StoreDriver   string `validate:"oneof=sqlite mongo"`
	SQLitePath    string `validate:"required_if=StoreDriver sqlite"`
	MongoURI      string `validate:"required_if=StoreDriver mongo"`
	MongoDatabase string `validate:"required_if=StoreDriver mongo"`
	RedisURI      string

	AppURI          string `validate:"required,numeric"`
	JWTSecret       string
	AdminAPIKeyHash string

	UpdateMode    string `validate:"oneof=polling webhook"`
	WebhookURL    string `validate:"required_if=UpdateMode webhook"`
	WebhookSecret string `validate:"required_if=UpdateMode webhook"`

	Location *time.Location `validate:"required"`
}

// Defaults: 18 hours to answer, reminder one hour before the deadline.
const (
	DefaultDeadlineHours     = 18
	DefaultReminderLeadHours = 1
	DefaultSweepInterval     = time.Hour
	DefaultDeliveryTimeout   = 10 * time.Second
	DefaultDraftTTL          = 24 * time.Hour
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("⚠️ no .env file found, using process environment")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates a Config using lookup to read variables.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	p := parser{lookup: lookup}

	if dsn, ok := lookup("DATABASE_URL"); ok {
		if isPostgresURL(dsn) {
			return nil, errors.New("postgres DATABASE_URL is not supported: set STORE_DRIVER=sqlite with SQLITE_PATH, or STORE_DRIVER=mongo with MONGO_URI")
		}
		if dsn != "" {
			slog.Warn("⚠️ DATABASE_URL is ignored, configure STORE_DRIVER instead")
		}
	}

	cfg := &Config{
		BotToken:          p.str("BOT_TOKEN", ""),
		AdminID:           p.int64Var("ADMIN_ID", 0),
		DeadlineHours:     p.intVar("RATING_DEADLINE_HOURS", DefaultDeadlineHours),
		ReminderLeadHours: p.intVar("REMINDER_BEFORE_DEADLINE_HOURS", DefaultReminderLeadHours),
		SweepInterval:     p.duration("SWEEP_INTERVAL", DefaultSweepInterval),
		DeliveryTimeout:   p.duration("DELIVERY_TIMEOUT", DefaultDeliveryTimeout),
		DraftTTL:          p.duration("DRAFT_TTL", DefaultDraftTTL),
		StoreDriver:       p.str("STORE_DRIVER", "sqlite"),
		SQLitePath:        p.str("SQLITE_PATH", "survey.db"),
		MongoURI:          p.str("MONGO_URI", ""),
		MongoDatabase:     p.str("MONGO_DB", "YouthFeedbackDB"),
		RedisURI:          p.str("REDIS_URI", ""),
		AppURI:            p.str("APP_URI", "8888"),
		JWTSecret:         p.str("JWT_SECRET", ""),
		AdminAPIKeyHash:   p.str("ADMIN_API_KEY_HASH", ""),
		UpdateMode:        p.str("UPDATE_MODE", "polling"),
		WebhookURL:        p.str("WEBHOOK_URL", ""),
		WebhookSecret:     p.str("WEBHOOK_SECRET", ""),
	}

	tz := p.str("TZ_NAME", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("TZ_NAME: %w", err))
	}
	cfg.Location = loc

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Deadline is the answer window of a survey.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.DeadlineHours) * time.Hour
}

// ReminderDelay is how long after the start the reminder goes out.
func (c *Config) ReminderDelay() time.Duration {
	return time.Duration(c.DeadlineHours-c.ReminderLeadHours) * time.Hour
}

// APIEnabled reports whether the admin HTTP API can issue tokens.
func (c *Config) APIEnabled() bool {
	return c.JWTSecret != "" && c.AdminAPIKeyHash != ""
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) str(key, def string) string {
	v, ok := p.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func (p *parser) int64Var(key string, def int64) int64 {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) intVar(key string, def int) int {
	return int(p.int64Var(key, int64(def)))
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func isPostgresURL(dsn string) bool {
	scheme, _, ok := strings.Cut(strings.TrimSpace(dsn), "://")
	if !ok {
		return false
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return true
	}
	return false
}
