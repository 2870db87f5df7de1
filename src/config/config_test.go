package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(env(map[string]string{
		"BOT_TOKEN": "123:abc",
		"ADMIN_ID":  "1125355606",
		"TZ_NAME":   "UTC",
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(1125355606), cfg.AdminID)
	assert.Equal(t, 18, cfg.DeadlineHours)
	assert.Equal(t, 1, cfg.ReminderLeadHours)
	assert.Equal(t, 18*time.Hour, cfg.Deadline())
	assert.Equal(t, 17*time.Hour, cfg.ReminderDelay())
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "polling", cfg.UpdateMode)
	assert.Equal(t, "8888", cfg.AppURI)
	assert.False(t, cfg.APIEnabled())
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := FromLookup(env(map[string]string{
		"BOT_TOKEN":                      "123:abc",
		"ADMIN_ID":                       "42",
		"RATING_DEADLINE_HOURS":          "24",
		"REMINDER_BEFORE_DEADLINE_HOURS": "3",
		"SWEEP_INTERVAL":                 "15m",
		"STORE_DRIVER":                   "mongo",
		"MONGO_URI":                      "mongodb://localhost:27017",
		"JWT_SECRET":                     "s3cret",
		"ADMIN_API_KEY_HASH":             "$2a$10$abc",
		"TZ_NAME":                        "UTC",
	}))
	require.NoError(t, err)

	assert.Equal(t, 21*time.Hour, cfg.ReminderDelay())
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "YouthFeedbackDB", cfg.MongoDatabase)
	assert.True(t, cfg.APIEnabled())
}

func TestFromLookupErrors(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"BOT_TOKEN": "t", "ADMIN_ID": "1", "TZ_NAME": "UTC"}
	}

	cases := map[string]func(m map[string]string){
		"missing token":        func(m map[string]string) { delete(m, "BOT_TOKEN") },
		"missing admin":        func(m map[string]string) { delete(m, "ADMIN_ID") },
		"bad admin":            func(m map[string]string) { m["ADMIN_ID"] = "me" },
		"reminder after close": func(m map[string]string) { m["REMINDER_BEFORE_DEADLINE_HOURS"] = "18" },
		"bad duration":         func(m map[string]string) { m["SWEEP_INTERVAL"] = "hourly" },
		"tiny sweep":           func(m map[string]string) { m["SWEEP_INTERVAL"] = "10ms" },
		"unknown driver":       func(m map[string]string) { m["STORE_DRIVER"] = "postgres" },
		"mongo without uri":    func(m map[string]string) { m["STORE_DRIVER"] = "mongo" },
		"webhook without url":  func(m map[string]string) { m["UPDATE_MODE"] = "webhook" },
		"webhook without secret": func(m map[string]string) {
			m["UPDATE_MODE"] = "webhook"
			m["WEBHOOK_URL"] = "https://bot.example.org/telegram/webhook"
		},
		"postgres url":   func(m map[string]string) { m["DATABASE_URL"] = "postgres://x" },
		"postgresql url": func(m map[string]string) { m["DATABASE_URL"] = "PostgreSQL://u@h/db" },
		"bad timezone":   func(m map[string]string) { m["TZ_NAME"] = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := base()
			mutate(m)
			_, err := FromLookup(env(m))
			assert.Error(t, err)
		})
	}
}

func TestFromLookupIgnoresOtherDatabaseURL(t *testing.T) {
	cfg, err := FromLookup(env(map[string]string{
		"BOT_TOKEN":    "123:abc",
		"ADMIN_ID":     "1",
		"TZ_NAME":      "UTC",
		"DATABASE_URL": "mysql://platform-injected/db",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
}
