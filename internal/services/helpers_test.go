package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"zubi/internal/mocks"
	"zubi/internal/models"
	"zubi/internal/repository"
	"zubi/internal/services"
)

const testPhone = "5511999990000"

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testStack struct {
	repo      repository.ConversationRepository
	store     *services.ConversationStore
	llm       *mocks.MockCompleter
	extractor *services.FieldExtractor
	intake    *services.IntakeFlow
	meals     *services.MealLogger
	router    *services.Router
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	log := zerolog.Nop()
	repo := repository.NewMemoryConversationRepository()
	store := services.NewConversationStore(repo, log, 30).WithClock(func() time.Time { return testNow })
	llm := new(mocks.MockCompleter)
	extractor := services.NewFieldExtractor(llm, log)
	intake := services.NewIntakeFlow(store, extractor, llm, log)
	meals := services.NewMealLogger(store, llm, log)
	router := services.NewRouter(store, intake, meals, llm, log)
	return &testStack{
		repo:      repo,
		store:     store,
		llm:       llm,
		extractor: extractor,
		intake:    intake,
		meals:     meals,
		router:    router,
	}
}

// promptContaining matches a prompt argument that contains every fragment.
func promptContaining(fragments ...string) interface{} {
	return mock.MatchedBy(func(p string) bool {
		for _, f := range fragments {
			if !strings.Contains(p, f) {
				return false
			}
		}
		return true
	})
}

// completeProfile is a 30 year old sedentary man, 70 kg, 175 cm, gaining
// muscle: BMR 1641.25, TDEE 1969.5, target 2269.5 kcal.
func completeProfile() models.ProfileUpdate {
	name := "João"
	age := 30
	gender := models.GenderMale
	weight := 70.0
	height := 175.0
	activity := models.ActivitySedentary
	goal := models.GoalMuscleGain
	return models.ProfileUpdate{
		Name:          &name,
		Age:           &age,
		Gender:        &gender,
		WeightKg:      &weight,
		HeightCm:      &height,
		ActivityLevel: &activity,
		Goal:          &goal,
	}
}

// journaling puts the test phone past intake with one earlier message.
func (s *testStack) journaling(ctx context.Context) {
	s.store.AppendMessage(ctx, testPhone, models.RoleUser, "oi")
	s.store.UpdateProfile(ctx, testPhone, completeProfile())
	s.store.MarkIntakeComplete(ctx, testPhone)
}
