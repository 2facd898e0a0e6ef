package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"zubi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConversation(phone string) *models.Conversation {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	conv := models.NewConversation(phone, now)
	conv.Profile = models.Profile{Name: "Maria", Age: 30, Gender: models.GenderFemale}
	day := conv.Day("2024-05-01")
	day.Messages = append(day.Messages, models.Message{Role: models.RoleUser, Text: "oi", Timestamp: now})
	day.MessageCount = 1
	day.Meals = append(day.Meals, models.MealEntry{
		ID:          "m1",
		Description: "pão francês",
		Nutrition:   models.Nutrition{Kcal: 140, ProteinG: 4, CarbsG: 26, FatG: 2},
		Timestamp:   now,
	})
	conv.RememberQuestion(models.QuestionContext{Fields: []models.Field{models.FieldWeight}, Question: "Qual seu peso?", AskedAt: now})
	return conv
}

func exerciseRepository(t *testing.T, repo ConversationRepository) {
	ctx := context.Background()

	_, err := repo.Find(ctx, "5511999990000")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	conv := sampleConversation("5511999990000")
	require.NoError(t, repo.Save(ctx, conv))

	loaded, err := repo.Find(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "Maria", loaded.Profile.Name)
	assert.Equal(t, 30, loaded.Profile.Age)
	require.Contains(t, loaded.Days, "2024-05-01")
	assert.Equal(t, 140.0, loaded.Days["2024-05-01"].Meals[0].Nutrition.Kcal)
	assert.Len(t, loaded.Questions, 1)

	// Mutating the loaded copy must not leak into storage until saved.
	loaded.Profile.Name = "Joana"
	again, err := repo.Find(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "Maria", again.Profile.Name)

	loaded.IntakeComplete = true
	require.NoError(t, repo.Save(ctx, loaded))
	again, err = repo.Find(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "Joana", again.Profile.Name)
	assert.True(t, again.IntakeComplete)

	require.NoError(t, repo.Delete(ctx, "5511999990000"))
	_, err = repo.Find(ctx, "5511999990000")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository())
}

func TestSQLiteConversationRepository(t *testing.T) {
	repo, err := NewSQLiteConversationRepository(filepath.Join(t.TempDir(), "zubi.db"))
	require.NoError(t, err)
	defer repo.Close()

	exerciseRepository(t, repo)
}

func TestSQLiteCountCompleted(t *testing.T) {
	repo, err := NewSQLiteConversationRepository(filepath.Join(t.TempDir(), "zubi.db"))
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	done := sampleConversation("1")
	done.IntakeComplete = true
	require.NoError(t, repo.Save(ctx, done))
	require.NoError(t, repo.Save(ctx, sampleConversation("2")))

	n, err := repo.CountCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDecodeInitializesDays(t *testing.T) {
	conv, err := Decode([]byte(`{"phone":"1"}`))
	require.NoError(t, err)
	assert.NotNil(t, conv.Days)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
