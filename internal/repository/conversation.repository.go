package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zubi/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository persists whole conversations keyed by phone number.
type ConversationRepository interface {
	Find(ctx context.Context, phone string) (*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
	Delete(ctx context.Context, phone string) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository stores conversations in the conversations table
// through gorm.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Find(ctx context.Context, phone string) (*models.Conversation, error) {
	var record models.ConversationRecord
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return Decode([]byte(record.Data))
}

func (r *conversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := Encode(conv)
	if err != nil {
		return err
	}

	record := models.ConversationRecord{
		Phone:          conv.Phone,
		IntakeComplete: conv.IntakeComplete,
		Data:           string(data),
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"intake_complete", "data", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, phone string) error {
	return r.db.WithContext(ctx).Where("phone = ?", phone).Delete(&models.ConversationRecord{}).Error
}

// Encode serializes a conversation document.
func Encode(conv *models.Conversation) ([]byte, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return data, nil
}

// Decode parses a conversation document.
func Decode(data []byte) (*models.Conversation, error) {
	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	if conv.Days == nil {
		conv.Days = map[string]*models.DayLog{}
	}
	return &conv, nil
}
