package controllers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zubi/internal/controllers"
	"zubi/internal/mocks"
	"zubi/internal/models"
	"zubi/internal/repository"
	"zubi/internal/services"
)

func journalingConversation(phone string) *models.Conversation {
	now := time.Now()
	conv := models.NewConversation(phone, now)
	conv.Profile = models.Profile{
		Name:          "João",
		Age:           30,
		Gender:        models.GenderMale,
		WeightKg:      70,
		HeightCm:      175,
		ActivityLevel: models.ActivitySedentary,
		Goal:          models.GoalMuscleGain,
	}
	conv.IntakeComplete = true
	day := conv.Day(now.Format(models.DateLayout))
	day.Meals = append(day.Meals,
		models.MealEntry{ID: "a", Description: "pão", Nutrition: models.Nutrition{Kcal: 140, ProteinG: 4}},
		models.MealEntry{ID: "b", Description: "arroz e feijão", Nutrition: models.Nutrition{Kcal: 500, ProteinG: 40}},
	)
	return conv
}

func TestGetConversation(t *testing.T) {
	repo := repository.NewMemoryConversationRepository()
	require.NoError(t, repo.Save(context.Background(), journalingConversation("5511999990000")))
	controller := controllers.NewConversationController(repo, nil, zerolog.Nop())
	router := setupTestRouter()
	router.GET("/conversations/:phone", controller.GetConversation)

	req := httptest.NewRequest(http.MethodGet, "/conversations/5511999990000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data struct {
			IntakeComplete bool           `json:"intake_complete"`
			MissingFields  []string       `json:"missing_fields"`
			Profile        models.Profile `json:"profile"`
			Targets        models.Targets `json:"targets"`
			Today          struct {
				MealCount    int              `json:"meal_count"`
				Totals       models.Nutrition `json:"totals"`
				GoalCalories float64          `json:"goal_calories"`
				Percent      int              `json:"percent"`
				Remaining    float64          `json:"remaining"`
			} `json:"today"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Data.IntakeComplete)
	assert.Empty(t, response.Data.MissingFields)
	assert.Equal(t, "João", response.Data.Profile.Name)
	assert.Equal(t, 140.0, response.Data.Targets.ProteinG)
	assert.Equal(t, 2, response.Data.Today.MealCount)
	assert.Equal(t, 640.0, response.Data.Today.Totals.Kcal)
	assert.Equal(t, 2270.0, response.Data.Today.GoalCalories)
	assert.Equal(t, 28, response.Data.Today.Percent)
	assert.Equal(t, 1630.0, response.Data.Today.Remaining)
}

func TestGetConversationErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"not found", repository.ErrConversationNotFound, http.StatusNotFound},
		{"backend down", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockConversationRepository)
			repo.On("Find", mock.Anything, "5511").Return(nil, tt.err)
			controller := controllers.NewConversationController(repo, nil, zerolog.Nop())
			router := setupTestRouter()
			router.GET("/conversations/:phone", controller.GetConversation)

			req := httptest.NewRequest(http.MethodGet, "/conversations/5511", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			repo.AssertExpectations(t)
		})
	}
}

func TestDeleteConversation(t *testing.T) {
	repo := new(mocks.MockConversationRepository)
	repo.On("Delete", mock.Anything, "5511").Return(nil).Once()
	repo.On("Delete", mock.Anything, "5522").Return(errors.New("connection refused")).Once()
	store := services.NewConversationStore(repo, zerolog.Nop(), 30)
	controller := controllers.NewConversationController(repo, store, zerolog.Nop())
	router := setupTestRouter()
	router.DELETE("/conversations/:phone", controller.DeleteConversation)

	req := httptest.NewRequest(http.MethodDelete, "/conversations/5511", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/conversations/5522", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	repo.AssertExpectations(t)
}
