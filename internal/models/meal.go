package models

import (
	"time"
)

type Nutrition struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// IsZero reports an all-zero parse, which is treated as a failed estimate.
func (n Nutrition) IsZero() bool {
	return n.Kcal == 0 && n.ProteinG == 0 && n.CarbsG == 0 && n.FatG == 0
}

func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Kcal:     n.Kcal + o.Kcal,
		ProteinG: n.ProteinG + o.ProteinG,
		CarbsG:   n.CarbsG + o.CarbsG,
		FatG:     n.FatG + o.FatG,
	}
}

type FoodItem struct {
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	Nutrition Nutrition `json:"nutrition"`
}

// MealEntry is one logged meal. Entries are append-only.
type MealEntry struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Items       []FoodItem `json:"items,omitempty"`
	Nutrition   Nutrition  `json:"nutrition"`
	Timestamp   time.Time  `json:"timestamp"`
}

// DailyProgress sums a day's meals against the calorie target.
type DailyProgress struct {
	Totals       Nutrition `json:"totals"`
	GoalCalories float64   `json:"goal_calories"`
	MealCount    int       `json:"meal_count"`
}

// SumMeals recomputes the totals from every stored entry.
func SumMeals(meals []MealEntry) Nutrition {
	var total Nutrition
	for _, m := range meals {
		total = total.Add(m.Nutrition)
	}
	return total
}

// Remaining is the calorie budget left; negative means the goal was exceeded.
func (d DailyProgress) Remaining() float64 {
	return d.GoalCalories - d.Totals.Kcal
}

// Percent is the share of the goal consumed, rounded.
func (d DailyProgress) Percent() int {
	if d.GoalCalories <= 0 {
		return 0
	}
	return int(d.Totals.Kcal/d.GoalCalories*100 + 0.5)
}
