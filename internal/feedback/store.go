// Package feedback records user feedback about answered conversations.
package feedback

import (
	"context"
	"time"
)

// Record is one piece of feedback tied to a conversation.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	Sentiment      string    `json:"sentiment"` // "positive", "negative" or free-form
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists feedback records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Close() error
}
