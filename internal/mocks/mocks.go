package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"zubi/internal/models"
	"zubi/internal/services"
)

// MockCompleter implements openai.Completer.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, temperature)
	return args.String(0), args.Error(1)
}

func (m *MockCompleter) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	switch v := args.Get(0).(type) {
	case string:
		return json.RawMessage(v), args.Error(1)
	default:
		return v.(json.RawMessage), args.Error(1)
	}
}

// MockSender implements messaging.Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendText(ctx context.Context, phone, text string) error {
	args := m.Called(ctx, phone, text)
	return args.Error(0)
}

// MockConversationRepository implements repository.ConversationRepository.
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Find(ctx context.Context, phone string) (*models.Conversation, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationRepository) Delete(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

// MockReplyQueue implements controllers.ReplyQueue.
type MockReplyQueue struct {
	mock.Mock
}

func (m *MockReplyQueue) Enqueue(msg services.InboundMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

// MockChatResponder implements controllers.ChatResponder.
type MockChatResponder struct {
	mock.Mock
}

func (m *MockChatResponder) Reply(ctx context.Context, phone, text string) models.Reply {
	args := m.Called(ctx, phone, text)
	return args.Get(0).(models.Reply)
}

// MockMessageProcessor implements services.MessageProcessor.
type MockMessageProcessor struct {
	mock.Mock
}

func (m *MockMessageProcessor) ProcessAndDeliver(ctx context.Context, phone, text string) string {
	args := m.Called(ctx, phone, text)
	return args.String(0)
}
