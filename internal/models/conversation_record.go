package models

import (
	"time"
)

// ConversationRecord is the relational row behind a persisted conversation.
// The conversation itself is stored as a JSON document.
type ConversationRecord struct {
	Phone          string    `gorm:"primaryKey;size:32" json:"phone"`
	IntakeComplete bool      `gorm:"index" json:"intake_complete"`
	Data           string    `gorm:"type:text;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (ConversationRecord) TableName() string {
	return "conversations"
}
