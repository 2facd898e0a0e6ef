package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zubi/internal/models"
	"zubi/internal/services"
)

func TestLogMealKeepsRunningTotals(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.journaling(ctx)

	s.llm.On("CompleteJSON", mock.Anything, promptContaining("2 fatias de pão")).
		Return(`{"description": "2 fatias de pão", "kcal": 140, "protein_g": 4, "carbs_g": 26, "fat_g": 2}`, nil).Once()
	s.llm.On("CompleteJSON", mock.Anything, promptContaining("arroz, feijão e frango")).
		Return(`{"description": "arroz, feijão e frango", "kcal": 500, "protein_g": 40, "carbs_g": 55, "fat_g": 12}`, nil).Once()
	s.llm.On("CompleteJSON", mock.Anything, promptContaining("3 pizzas")).
		Return(`{"description": "3 pizzas", "kcal": "2000", "protein_g": 80, "carbs_g": 220, "fat_g": 90}`, nil).Once()

	first := s.meals.LogMeal(ctx, "comi 2 fatias de pão", testPhone)
	assert.Contains(t, first, "✅ Refeição registrada: 2 fatias de pão")
	assert.Contains(t, first, "🔥 140 kcal | P: 4g | C: 26g | G: 2g")
	assert.Contains(t, first, "📊 Progresso: 140/2270 kcal (6%)")
	assert.Contains(t, first, "⚡ Faltam: 2130 kcal")
	assert.Contains(t, first, "proteína")

	second := s.meals.LogMeal(ctx, "almocei arroz, feijão e frango", testPhone)
	assert.Contains(t, second, "📊 Progresso: 640/2270 kcal (28%)")
	assert.Contains(t, second, "⚡ Faltam: 1630 kcal")

	third := s.meals.LogMeal(ctx, "jantei 3 pizzas", testPhone)
	assert.Contains(t, third, "📊 Progresso: 2640/2270 kcal (116%)")
	assert.Contains(t, third, "⚠️ Você ultrapassou sua meta em 370 kcal!")

	meals := s.store.MealsForToday(ctx, testPhone)
	require.Len(t, meals, 3)
	assert.Equal(t, 2640.0, models.SumMeals(meals).Kcal)
	assert.NotEmpty(t, meals[0].ID)
	assert.NotEqual(t, meals[0].ID, meals[1].ID)
	s.llm.AssertExpectations(t)
}

func TestLogMealRejectsEmptyEstimate(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.journaling(ctx)

	s.llm.On("CompleteJSON", mock.Anything, mock.Anything).
		Return(`{"description": "", "kcal": 0, "protein_g": 0, "carbs_g": 0, "fat_g": 0}`, nil).Once()

	out := s.meals.LogMeal(ctx, "comi um negócio", testPhone)

	assert.Contains(t, out, "não consegui processar sua refeição")
	assert.Empty(t, s.store.MealsForToday(ctx, testPhone))
}

func TestLogMealModelFailure(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.journaling(ctx)

	s.llm.On("CompleteJSON", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	out := s.meals.LogMeal(ctx, "comi uma banana", testPhone)

	assert.Contains(t, out, "não consegui processar sua refeição")
	assert.Empty(t, s.store.MealsForToday(ctx, testPhone))
}

func TestLogMealRedirectsDuringIntake(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	name := "Maria"
	s.store.UpdateProfile(ctx, testPhone, models.ProfileUpdate{Name: &name})

	out := s.meals.LogMeal(ctx, "comi uma banana", testPhone)

	assert.Equal(t, services.IntakeRedirectMessage("Maria"), out)
	assert.Equal(t, "Fala Maria! Preciso completar sua análise antes de começar a anotar as refeições.", out)
	assert.Empty(t, s.store.MealsForToday(ctx, testPhone))
	s.llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
}

func TestEstimateSumsItemsWhenTotalsMissing(t *testing.T) {
	s := newTestStack(t)
	s.llm.On("CompleteJSON", mock.Anything, mock.Anything).Return(`{
		"description": "café da manhã",
		"items": [
			{"name": "ovo", "quantity": 2, "unit": "unidade", "kcal": 140, "protein_g": 12, "carbs_g": 1, "fat_g": 10},
			{"name": "café", "quantity": "1", "unit": "xícara", "kcal": 5, "protein_g": 0, "carbs_g": 1, "fat_g": 0}
		]
	}`, nil).Once()

	entry, err := s.meals.Estimate(context.Background(), "2 ovos e um café")

	require.NoError(t, err)
	assert.Equal(t, "café da manhã", entry.Description)
	require.Len(t, entry.Items, 2)
	assert.Equal(t, 2.0, entry.Items[0].Quantity)
	assert.Equal(t, models.Nutrition{Kcal: 145, ProteinG: 12, CarbsG: 2, FatG: 10}, entry.Nutrition)
}

func TestEstimateRejectsGarbage(t *testing.T) {
	s := newTestStack(t)
	s.llm.On("CompleteJSON", mock.Anything, mock.Anything).Return(`{"kcal": "muito"}`, nil).Once()

	entry, err := s.meals.Estimate(context.Background(), "um prato")

	require.NoError(t, err)
	assert.True(t, entry.Nutrition.IsZero())
	assert.Equal(t, "um prato", entry.Description)
}

func TestWeightLossTipWhenBudgetIsLow(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.journaling(ctx)
	goal := models.GoalWeightLoss
	s.store.UpdateProfile(ctx, testPhone, models.ProfileUpdate{Goal: &goal})

	// Target is 1469.5 kcal, rounded to 1470.
	s.llm.On("CompleteJSON", mock.Anything, mock.Anything).
		Return(`{"description": "feijoada", "kcal": 1100, "protein_g": 60, "carbs_g": 90, "fat_g": 50}`, nil).Once()

	out := s.meals.LogMeal(ctx, "almocei feijoada", testPhone)

	assert.Contains(t, out, "📊 Progresso: 1100/1470 kcal (75%)")
	assert.Contains(t, out, "opções leves")
}

func TestDailySummary(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.journaling(ctx)
	s.store.RecordMeal(ctx, testPhone, models.MealEntry{ID: "a", Nutrition: models.Nutrition{Kcal: 300, ProteinG: 20, CarbsG: 30, FatG: 10}})
	s.store.RecordMeal(ctx, testPhone, models.MealEntry{ID: "b", Nutrition: models.Nutrition{Kcal: 200, ProteinG: 10, CarbsG: 20, FatG: 5}})

	out := s.meals.DailySummary(ctx, testPhone)

	assert.Contains(t, out, "📊 Resumo do dia")
	assert.Contains(t, out, "- Refeições: 2")
	assert.Contains(t, out, "- Calorias: 500/2270 kcal (22%)")
	assert.Contains(t, out, "- Proteínas: 30/140g")
	assert.Contains(t, out, "⚡ Faltam: 1770 kcal")
}
