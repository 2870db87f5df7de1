package controllers

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/utils"
)

type StartSurveyResponse struct {
	Survey models.Survey `json:"survey"`
	Sent   int           `json:"sent"`
	Failed int           `json:"failed"`
}

// StartSurvey godoc
// @Summary      Start a survey and invite every approved user
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  StartSurveyResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /surveys [post]
func (h *Controllers) StartSurvey(c *fiber.Ctx) error {
	sv, res, err := h.surveys.Start(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(StartSurveyResponse{Survey: sv, Sent: res.Sent, Failed: res.Failed})
}

// GetActiveSurvey godoc
// @Summary      Get the active survey
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.Survey
// @Failure      409  {object}  models.ErrorResponse
// @Router       /surveys/active [get]
func (h *Controllers) GetActiveSurvey(c *fiber.Ctx) error {
	sv, err := h.surveys.Active(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(sv)
}

// CloseActiveSurvey godoc
// @Summary      Close the active survey
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.Survey
// @Failure      409  {object}  models.ErrorResponse
// @Router       /surveys/active/close [post]
func (h *Controllers) CloseActiveSurvey(c *fiber.Ctx) error {
	sv, err := h.surveys.CloseActive(c.UserContext())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(sv)
}

// GetSurveyStats godoc
// @Summary      Statistics of one survey
// @Tags         stats
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Survey id"
// @Success      200  {object}  models.SurveyStats
// @Failure      404  {object}  models.ErrorResponse
// @Router       /surveys/{id}/stats [get]
func (h *Controllers) GetSurveyStats(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	st, err := h.reports.StatsFor(c.UserContext(), id)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(st)
}

// ExportSurvey godoc
// @Summary      Anonymous CSV export of one survey
// @Tags         stats
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id   path  int  true  "Survey id"
// @Success      200  {string}  string
// @Failure      404  {object}  models.ErrorResponse
// @Router       /surveys/{id}/export [get]
func (h *Controllers) ExportSurvey(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	var buf bytes.Buffer
	if err := h.reports.ExportCSV(c.UserContext(), id, &buf); err != nil {
		return utils.HandleServiceError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="survey-%d.csv"`, id))
	return c.Send(buf.Bytes())
}

// GetTrend godoc
// @Summary      Per-survey averages of closed surveys
// @Tags         stats
// @Produce      json
// @Security     BearerAuth
// @Param        days  query     int  false  "Look back this many days; omit for all time"
// @Success      200   {array}   models.PeriodStat
// @Failure      400   {object}  models.ErrorResponse
// @Router       /stats/trend [get]
func (h *Controllers) GetTrend(c *fiber.Ctx) error {
	var (
		rows []models.PeriodStat
		err  error
	)
	if q := c.Query("days"); q != "" {
		days, convErr := strconv.Atoi(q)
		if convErr != nil {
			return utils.HandleServiceError(c, models.ErrInvalidPeriod)
		}
		rows, err = h.reports.StatsForPeriod(c.UserContext(), days)
	} else {
		rows, err = h.reports.StatsForAllTime(c.UserContext())
	}
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(rows)
}
