package controllers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"zubi/internal/models"
	"zubi/internal/repository"
)

// ConversationResetter forgets a conversation everywhere it is held.
type ConversationResetter interface {
	Reset(ctx context.Context, phone string) error
}

type ConversationController struct {
	repo     repository.ConversationRepository
	resetter ConversationResetter
	log      zerolog.Logger
	now      func() time.Time
}

func NewConversationController(repo repository.ConversationRepository, resetter ConversationResetter, log zerolog.Logger) *ConversationController {
	return &ConversationController{repo: repo, resetter: resetter, log: log, now: time.Now}
}

// GetConversation godoc
// @Summary Get a patient's conversation overview
// @Description Returns the profile, intake state, nutrition targets and today's meal totals (requires authentication)
// @Tags conversations
// @Produce json
// @Security ApiKeyAuth
// @Param phone path string true "Patient phone number"
// @Success 200 {object} map[string]interface{} "Conversation overview"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 404 {object} map[string]interface{} "Conversation not found"
// @Failure 500 {object} map[string]interface{} "Failed to load conversation"
// @Router /conversations/{phone} [get]
func (cc *ConversationController) GetConversation(c *gin.Context) {
	phone := c.Param("phone")

	conv, err := cc.repo.Find(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status":  "error",
				"message": "Conversation not found",
			})
			return
		}
		cc.log.Error().Err(err).Str("phone", phone).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to load conversation",
			"error":   err.Error(),
		})
		return
	}

	today := cc.now().Format(models.DateLayout)
	var meals []models.MealEntry
	if day, ok := conv.Days[today]; ok {
		meals = day.Meals
	}
	progress := models.DailyProgress{
		Totals:    models.SumMeals(meals),
		MealCount: len(meals),
	}

	data := gin.H{
		"phone":           conv.Phone,
		"profile":         conv.Profile,
		"intake_complete": conv.IntakeComplete,
		"missing_fields":  conv.Profile.MissingFields(),
		"updated_at":      conv.UpdatedAt,
	}
	if targets, err := conv.Profile.Targets(); err == nil {
		data["targets"] = targets
		progress.GoalCalories = math.Round(targets.Calories)
	}
	data["today"] = gin.H{
		"date":          today,
		"meals":         meals,
		"totals":        progress.Totals,
		"meal_count":    progress.MealCount,
		"goal_calories": progress.GoalCalories,
		"percent":       progress.Percent(),
		"remaining":     progress.Remaining(),
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Conversation retrieved successfully",
		"data":    data,
	})
}

// DeleteConversation godoc
// @Summary Reset a patient's conversation
// @Description Deletes the stored conversation so the next message starts a new intake (requires authentication)
// @Tags conversations
// @Produce json
// @Security ApiKeyAuth
// @Param phone path string true "Patient phone number"
// @Success 200 {object} map[string]interface{} "Conversation deleted"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 500 {object} map[string]interface{} "Failed to delete conversation"
// @Router /conversations/{phone} [delete]
func (cc *ConversationController) DeleteConversation(c *gin.Context) {
	phone := c.Param("phone")

	if err := cc.resetter.Reset(c.Request.Context(), phone); err != nil {
		cc.log.Error().Err(err).Str("phone", phone).Msg("failed to delete conversation")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to delete conversation",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Conversation deleted successfully",
	})
}
