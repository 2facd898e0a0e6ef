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

func TestMealDuringIntakeIsRedirected(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.startIntake(t, ctx)

	reply := s.router.Route(ctx, testPhone, "comi 2 fatias de pão")

	assert.Equal(t, []string{services.IntakeRedirectMessage("Maria"), ageQuestion}, reply.Parts)
	assert.Empty(t, s.store.MealsForToday(ctx, testPhone))
	s.llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
}

func TestMealDuringIntakeKeepsTheAnswer(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.startIntake(t, ctx)

	reply := s.router.Route(ctx, testPhone, "almocei, tenho 30 anos")

	assert.Equal(t, []string{services.IntakeRedirectMessage("Maria"), services.QuestionGender}, reply.Parts)
	assert.Equal(t, 30, s.store.Profile(ctx, testPhone).Age)
	assert.Empty(t, s.store.MealsForToday(ctx, testPhone))
	s.llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
}

func TestMealThatCompletesIntakeIsLogged(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	goalQuestion := "Qual é o seu objetivo?"

	s.store.AppendMessage(ctx, testPhone, models.RoleUser, "oi")
	profile := completeProfile()
	profile.Goal = nil
	s.store.UpdateProfile(ctx, testPhone, profile)
	s.store.RememberQuestionContext(ctx, testPhone, []models.Field{models.FieldGoal}, goalQuestion)
	s.store.AppendMessage(ctx, testPhone, models.RoleSystem, goalQuestion)

	s.llm.On("Complete", mock.Anything, mock.Anything, promptContaining("Reescreva o resumo"), mock.Anything).
		Return("Resumo do João", nil).Once()
	s.llm.On("CompleteJSON", mock.Anything, promptContaining("Estime as informações nutricionais")).
		Return(`{"description": "arroz", "kcal": 130, "protein_g": 3, "carbs_g": 28, "fat_g": 0}`, nil).Once()

	reply := s.router.Route(ctx, testPhone, "almocei arroz, quero emagrecer")

	require.Len(t, reply.Parts, 3)
	assert.Equal(t, "Resumo do João", reply.Parts[0])
	assert.Equal(t, services.TransitionMessage("João"), reply.Parts[1])
	assert.Contains(t, reply.Parts[2], "✅ Refeição registrada: arroz")
	assert.Equal(t, models.GoalWeightLoss, s.store.Profile(ctx, testPhone).Goal)
	assert.True(t, s.store.IsIntakeComplete(ctx, testPhone))
	assert.Len(t, s.store.MealsForToday(ctx, testPhone), 1)
	s.llm.AssertExpectations(t)
}

func TestFoodWishDuringIntakeReachesExtractor(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.startIntake(t, ctx)

	s.llm.On("CompleteJSON", mock.Anything, mock.Anything).
		Return(`{"age": 41, "remaining_text": ""}`, nil).Once()

	reply := s.router.Route(ctx, testPhone, "tenho 41 e quero comer melhor daqui pra frente")

	assert.Equal(t, []string{services.QuestionGender}, reply.Parts)
	assert.Equal(t, 41, s.store.Profile(ctx, testPhone).Age)
}

func TestJournalingRoutes(t *testing.T) {
	t.Run("greeting", func(t *testing.T) {
		s := newTestStack(t)
		ctx := context.Background()
		s.journaling(ctx)

		reply := s.router.Route(ctx, testPhone, "Oi!")

		assert.Equal(t, []string{"Fala João!\nPode me dizer sua refeição que eu anoto aqui pra você."}, reply.Parts)
	})

	t.Run("greeting with a meal logs the meal", func(t *testing.T) {
		for _, message := range []string{"Oi, comi um pão", "bom dia, almocei arroz", "oi comi pizza"} {
			t.Run(message, func(t *testing.T) {
				s := newTestStack(t)
				ctx := context.Background()
				s.journaling(ctx)
				s.llm.On("CompleteJSON", mock.Anything, promptContaining("Estime as informações nutricionais")).
					Return(`{"description": "refeição", "kcal": 250, "protein_g": 8, "carbs_g": 40, "fat_g": 6}`, nil).Once()

				reply := s.router.Route(ctx, testPhone, message)

				require.Len(t, reply.Parts, 1)
				assert.Contains(t, reply.Parts[0], "✅ Refeição registrada: refeição")
				assert.Len(t, s.store.MealsForToday(ctx, testPhone), 1)
				s.llm.AssertExpectations(t)
			})
		}
	})

	t.Run("food keywords skip the classifier", func(t *testing.T) {
		s := newTestStack(t)
		ctx := context.Background()
		s.journaling(ctx)
		s.llm.On("CompleteJSON", mock.Anything, promptContaining("Estime as informações nutricionais")).
			Return(`{"description": "banana", "kcal": 90, "protein_g": 1, "carbs_g": 23, "fat_g": 0}`, nil).Once()

		reply := s.router.Route(ctx, testPhone, "comi uma banana agora, quanto falta?")

		require.Len(t, reply.Parts, 1)
		assert.Contains(t, reply.Parts[0], "✅ Refeição registrada: banana")
		s.llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, promptContaining("Classifique"))
		s.llm.AssertExpectations(t)
	})

	t.Run("info is answered locally", func(t *testing.T) {
		s := newTestStack(t)
		ctx := context.Background()
		s.journaling(ctx)

		reply := s.router.Route(ctx, testPhone, "me mostra meu resumo")

		require.Len(t, reply.Parts, 2)
		assert.Contains(t, reply.Parts[0], "Resumo do Paciente:")
		assert.Contains(t, reply.Parts[1], "📊 Resumo do dia")
		s.llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
		s.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other goes to conversation", func(t *testing.T) {
		s := newTestStack(t)
		ctx := context.Background()
		s.journaling(ctx)
		s.llm.On("CompleteJSON", mock.Anything, promptContaining("Classifique")).
			Return(`{"intent": "other"}`, nil).Once()
		s.llm.On("Complete", mock.Anything, mock.Anything, promptContaining("obrigado pela ajuda"), mock.Anything).
			Return("De nada, João! 😊", nil).Once()

		reply := s.router.Route(ctx, testPhone, "obrigado pela ajuda")

		assert.Equal(t, []string{"De nada, João! 😊"}, reply.Parts)
		s.llm.AssertExpectations(t)
	})

	t.Run("conversation failure uses fallback", func(t *testing.T) {
		s := newTestStack(t)
		ctx := context.Background()
		s.journaling(ctx)
		s.llm.On("CompleteJSON", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()
		s.llm.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError).Once()

		reply := s.router.Route(ctx, testPhone, "qual a diferença entre whey e albumina")

		require.Len(t, reply.Parts, 1)
		assert.Contains(t, reply.Parts[0], "Estou aqui para te ajudar")
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		response string
		want     services.Intent
	}{
		{"food keyword", "Almocei arroz e feijão", "", services.IntentMeal},
		{"info keyword", "quanto falta pra minha meta?", "", services.IntentInfo},
		{"model meal", "mandei ver numa feijoada", `{"intent": "meal"}`, services.IntentMeal},
		{"model question", "whey engorda?", `{"intent": "NUTRITION_QUESTION"}`, services.IntentNutritionQuestion},
		{"unknown intent", "bom jogo ontem", `{"intent": "sports"}`, services.IntentOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t)
			if tt.response != "" {
				s.llm.On("CompleteJSON", mock.Anything, promptContaining(tt.message)).Return(tt.response, nil).Once()
			}

			assert.Equal(t, tt.want, s.router.Classify(context.Background(), tt.message))
			if tt.response == "" {
				s.llm.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRouteRecordsBothSides(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	s.router.Route(ctx, testPhone, "oi")

	msgs := s.store.RecentMessages(ctx, testPhone, 10)
	require.Len(t, msgs, 4)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "oi", msgs[0].Text)
	assert.Equal(t, models.RoleSystem, msgs[3].Role)
	assert.Equal(t, services.NameRequest, msgs[3].Text)
}
