package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zubi/internal/models"
	"zubi/internal/repository"
)

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url", 0)
	assert.Error(t, err)
}

func TestGetStatusReportsUnreachableServer(t *testing.T) {
	rc := NewRedisClientFrom(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}), 0)
	defer rc.Close()

	_, err := rc.GetStatus(context.Background())
	assert.Error(t, err)
}

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "conversation:5511999990000", conversationKey("5511999990000"))
}

// Runs against a live server when ZUBI_TEST_REDIS_URL is set.
func TestRedisConversationRoundTrip(t *testing.T) {
	url := os.Getenv("ZUBI_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ZUBI_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	rc, err := NewRedisClient(ctx, url, time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	phone := "5500000000001"
	_ = rc.Delete(ctx, phone)

	_, err = rc.Find(ctx, phone)
	assert.ErrorIs(t, err, repository.ErrConversationNotFound)

	conv := models.NewConversation(phone, time.Now())
	conv.Profile.Name = "Maria"
	require.NoError(t, rc.Save(ctx, conv))

	loaded, err := rc.Find(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, "Maria", loaded.Profile.Name)

	status, err := rc.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, status["connected"])

	require.NoError(t, rc.Delete(ctx, phone))
}
