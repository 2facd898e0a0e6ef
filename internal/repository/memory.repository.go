package repository

import (
	"context"
	"sync"

	"zubi/internal/models"
)

// memoryConversationRepository keeps serialized snapshots so callers never
// share pointers with the stored copy.
type memoryConversationRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{data: map[string][]byte{}}
}

func (r *memoryConversationRepository) Find(_ context.Context, phone string) (*models.Conversation, error) {
	r.mu.RLock()
	raw, ok := r.data[phone]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrConversationNotFound
	}
	return Decode(raw)
}

func (r *memoryConversationRepository) Save(_ context.Context, conv *models.Conversation) error {
	raw, err := Encode(conv)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data[conv.Phone] = raw
	r.mu.Unlock()
	return nil
}

func (r *memoryConversationRepository) Delete(_ context.Context, phone string) error {
	r.mu.Lock()
	delete(r.data, phone)
	r.mu.Unlock()
	return nil
}
