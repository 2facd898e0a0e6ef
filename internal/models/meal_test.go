package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumMeals(t *testing.T) {
	meals := []MealEntry{
		{Nutrition: Nutrition{Kcal: 140, ProteinG: 4, CarbsG: 26, FatG: 2}},
		{Nutrition: Nutrition{Kcal: 500, ProteinG: 30, CarbsG: 40, FatG: 20}},
	}

	assert.Equal(t, Nutrition{Kcal: 640, ProteinG: 34, CarbsG: 66, FatG: 22}, SumMeals(meals))
	assert.True(t, SumMeals(nil).IsZero())
}

func TestDailyProgress(t *testing.T) {
	d := DailyProgress{Totals: Nutrition{Kcal: 1500}, GoalCalories: 2000}
	assert.Equal(t, 500.0, d.Remaining())
	assert.Equal(t, 75, d.Percent())

	d.Totals.Kcal = 2300
	assert.Equal(t, -300.0, d.Remaining())
	assert.Equal(t, 115, d.Percent())

	assert.Equal(t, 0, DailyProgress{}.Percent())
}
