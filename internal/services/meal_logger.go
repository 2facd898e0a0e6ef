package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zubi/internal/models"
	"zubi/internal/openai"
)

const (
	mealRephraseMessage = "Desculpe, não consegui processar sua refeição. Pode descrever novamente? 😅"

	// lowProteinPerKg is the daily protein intake below which a muscle gain
	// patient gets a protein tip.
	lowProteinPerKg = 1.6
	// lowBudgetShare is the share of the calorie goal left below which a
	// weight loss patient gets a light-meals tip.
	lowBudgetShare = 0.30
)

type MealLogger struct {
	store *ConversationStore
	llm   openai.Completer
	log   zerolog.Logger
	newID func() string
	now   func() time.Time
}

func NewMealLogger(store *ConversationStore, llm openai.Completer, log zerolog.Logger) *MealLogger {
	return &MealLogger{
		store: store,
		llm:   llm,
		log:   log,
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
}

func IntakeRedirectMessage(name string) string {
	return greetName(name) + " Preciso completar sua análise antes de começar a anotar as refeições."
}

func JournalGreeting(name string) string {
	return greetName(name) + "\nPode me dizer sua refeição que eu anoto aqui pra você."
}

func greetName(name string) string {
	if name == "" {
		return "Opa!"
	}
	return fmt.Sprintf("Fala %s!", name)
}

type mealItemEstimate struct {
	Name     string     `json:"name"`
	Quantity flexNumber `json:"quantity"`
	Unit     string     `json:"unit"`
	Kcal     flexNumber `json:"kcal"`
	ProteinG flexNumber `json:"protein_g"`
	CarbsG   flexNumber `json:"carbs_g"`
	FatG     flexNumber `json:"fat_g"`
}

type mealEstimate struct {
	Description string             `json:"description"`
	Kcal        flexNumber         `json:"kcal"`
	ProteinG    flexNumber         `json:"protein_g"`
	CarbsG      flexNumber         `json:"carbs_g"`
	FatG        flexNumber         `json:"fat_g"`
	Items       []mealItemEstimate `json:"items"`
}

func nonNegative(n flexNumber) float64 {
	if !n.set || n.value < 0 || math.IsNaN(n.value) {
		return 0
	}
	return n.value
}

// entry converts the estimate into a meal entry. When the flattened totals
// are missing the item list is summed instead.
func (m mealEstimate) entry(fallbackDescription string) models.MealEntry {
	e := models.MealEntry{
		Description: strings.TrimSpace(m.Description),
		Nutrition: models.Nutrition{
			Kcal:     nonNegative(m.Kcal),
			ProteinG: nonNegative(m.ProteinG),
			CarbsG:   nonNegative(m.CarbsG),
			FatG:     nonNegative(m.FatG),
		},
	}
	if e.Description == "" {
		e.Description = fallbackDescription
	}

	var itemsTotal models.Nutrition
	for _, it := range m.Items {
		item := models.FoodItem{
			Name:     it.Name,
			Quantity: nonNegative(it.Quantity),
			Unit:     it.Unit,
			Nutrition: models.Nutrition{
				Kcal:     nonNegative(it.Kcal),
				ProteinG: nonNegative(it.ProteinG),
				CarbsG:   nonNegative(it.CarbsG),
				FatG:     nonNegative(it.FatG),
			},
		}
		e.Items = append(e.Items, item)
		itemsTotal = itemsTotal.Add(item.Nutrition)
	}
	if e.Nutrition.IsZero() {
		e.Nutrition = itemsTotal
	}
	return e
}

// Estimate asks the model for the nutrition of a meal description.
func (l *MealLogger) Estimate(ctx context.Context, text string) (models.MealEntry, error) {
	raw, err := l.llm.CompleteJSON(ctx, mealEstimatePrompt(text))
	if err != nil {
		return models.MealEntry{}, fmt.Errorf("meal estimate failed: %w", err)
	}
	var est mealEstimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return models.MealEntry{}, fmt.Errorf("failed to parse meal estimate: %w", err)
	}
	return est.entry(text), nil
}

// LogMeal estimates, persists and reports one meal.
func (l *MealLogger) LogMeal(ctx context.Context, text, phone string) string {
	profile := l.store.Profile(ctx, phone)
	if !profile.IsComplete() || !l.store.IsIntakeComplete(ctx, phone) {
		return IntakeRedirectMessage(profile.Name)
	}

	entry, err := l.Estimate(ctx, text)
	if err != nil {
		llmFailuresTotal.WithLabelValues("meal").Inc()
		l.log.Warn().Err(err).Str("phone", phone).Msg("meal estimate failed")
		return mealRephraseMessage
	}
	if entry.Nutrition.IsZero() {
		l.log.Info().Str("phone", phone).Msg("meal estimate came back empty")
		return mealRephraseMessage
	}

	entry.ID = l.newID()
	entry.Timestamp = l.now()
	l.store.RecordMeal(ctx, phone, entry)
	mealsLoggedTotal.Inc()

	progress := l.Progress(ctx, phone, profile)
	l.log.Info().
		Str("phone", phone).
		Float64("kcal", entry.Nutrition.Kcal).
		Float64("total_kcal", progress.Totals.Kcal).
		Msg("meal logged")

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Refeição registrada: %s\n", entry.Description)
	fmt.Fprintf(&b, "🔥 %.0f kcal | P: %.0fg | C: %.0fg | G: %.0fg\n\n",
		entry.Nutrition.Kcal, entry.Nutrition.ProteinG, entry.Nutrition.CarbsG, entry.Nutrition.FatG)
	fmt.Fprintf(&b, "📊 Progresso: %.0f/%.0f kcal (%d%%)\n", progress.Totals.Kcal, progress.GoalCalories, progress.Percent())
	b.WriteString(remainingLine(progress))
	if tip := pickTip(profile, progress); tip != "" {
		b.WriteString("\n\n")
		b.WriteString(tip)
	}
	return b.String()
}

// Progress recomputes today's totals from every stored meal.
func (l *MealLogger) Progress(ctx context.Context, phone string, profile models.Profile) models.DailyProgress {
	meals := l.store.MealsForToday(ctx, phone)
	goal, err := profile.CalorieTarget()
	if err != nil {
		goal = 0
	}
	return models.DailyProgress{
		Totals:       models.SumMeals(meals),
		GoalCalories: math.Round(goal),
		MealCount:    len(meals),
	}
}

func remainingLine(p models.DailyProgress) string {
	remaining := p.Remaining()
	if remaining >= 0 {
		return fmt.Sprintf("⚡ Faltam: %.0f kcal", remaining)
	}
	return fmt.Sprintf("⚠️ Você ultrapassou sua meta em %.0f kcal!", math.Abs(remaining))
}

// pickTip returns at most one goal-aligned tip, first matching rule wins.
func pickTip(profile models.Profile, p models.DailyProgress) string {
	switch {
	case profile.Goal == models.GoalMuscleGain && profile.WeightKg > 0 &&
		p.Totals.ProteinG/profile.WeightKg < lowProteinPerKg:
		return "💡 Dica: inclua uma boa fonte de proteína nas próximas refeições (ovos, frango, peixe ou leguminosas) para apoiar o ganho de massa."
	case profile.Goal == models.GoalWeightLoss && p.GoalCalories > 0 &&
		p.Remaining() < lowBudgetShare*p.GoalCalories:
		return "💡 Dica: você já consumiu boa parte da meta de hoje. Prefira opções leves e ricas em fibras no restante do dia."
	}
	return ""
}

// DailySummary reports today's totals against the patient's targets.
func (l *MealLogger) DailySummary(ctx context.Context, phone string) string {
	profile := l.store.Profile(ctx, phone)
	progress := l.Progress(ctx, phone, profile)

	var b strings.Builder
	b.WriteString("📊 Resumo do dia\n")
	fmt.Fprintf(&b, "- Refeições: %d\n", progress.MealCount)
	fmt.Fprintf(&b, "- Calorias: %.0f/%.0f kcal (%d%%)\n", progress.Totals.Kcal, progress.GoalCalories, progress.Percent())
	if t, err := profile.Targets(); err == nil {
		fmt.Fprintf(&b, "- Proteínas: %.0f/%.0fg\n", progress.Totals.ProteinG, t.ProteinG)
		fmt.Fprintf(&b, "- Carboidratos: %.0f/%.0fg\n", progress.Totals.CarbsG, t.CarbsG)
		fmt.Fprintf(&b, "- Gorduras: %.0f/%.0fg\n", progress.Totals.FatG, t.FatG)
	}
	b.WriteString(remainingLine(progress))
	return b.String()
}
