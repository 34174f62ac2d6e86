// Package mocks provides test doubles for notification delivery.
package mocks

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// SentMessage captures a message sent via MockTelegram.
type SentMessage struct {
	ChatID any
	Text   string
}

// MockTelegram simulates the Telegram SendMessage call.
type MockTelegram struct {
	mu sync.RWMutex

	SentMessages []SentMessage

	// SendMessageError allows simulating SendMessage failures.
	SendMessageError error

	// NextMessageID is auto-incremented for each sent message.
	NextMessageID int
}

// NewMockTelegram creates a new MockTelegram instance.
func NewMockTelegram() *MockTelegram {
	return &MockTelegram{
		SentMessages:  make([]SentMessage, 0),
		NextMessageID: 1000,
	}
}

// SendMessage simulates sending a message.
func (m *MockTelegram) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}

	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID: params.ChatID,
		Text:   params.Text,
	})

	msgID := m.NextMessageID
	m.NextMessageID++

	return &models.Message{
		ID:   msgID,
		Chat: models.Chat{ID: chatIDToInt64(params.ChatID)},
		Text: params.Text,
	}, nil
}

// LastSentMessage returns the most recently sent message, or nil if none.
func (m *MockTelegram) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentMessages) == 0 {
		return nil
	}
	return &m.SentMessages[len(m.SentMessages)-1]
}

// SentMessageCount returns the number of messages sent.
func (m *MockTelegram) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
