// Package controllers holds the fiber handlers of the admin API and the
// Telegram webhook.
package controllers

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/config"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/access"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/reports"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/surveys"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/telegram"
)

// Deps wires a Controllers value. Bot may be nil when updates come from
// polling.
type Deps struct {
	Access  *access.Service
	Surveys *surveys.Manager
	Reports *reports.Service
	Bot     telegram.UpdateHandler
	Config  *config.Config
	Now     func() time.Time
}

type Controllers struct {
	access   *access.Service
	surveys  *surveys.Manager
	reports  *reports.Service
	bot      telegram.UpdateHandler
	cfg      *config.Config
	now      func() time.Time
	validate *validator.Validate
}

func New(d Deps) *Controllers {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Controllers{
		access:   d.Access,
		surveys:  d.Surveys,
		reports:  d.Reports,
		bot:      d.Bot,
		cfg:      d.Config,
		now:      d.Now,
		validate: validator.New(),
	}
}

// paramID reads a positive int64 path parameter.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrInvalidID
	}
	return id, nil
}
