// Package cache stores per-(user, conversation) turn history behind a
// single contract with two interchangeable backends: a capacity-bounded
// in-process store and a shared redis store.
package cache

import (
	"context"
	"errors"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn is a single message within a conversation. Immutable once created.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Line renders the turn as a single prompt line. Prompt assembly and token
// accounting both go through this form so a turn is only ever costed the
// way it is sent.
func (t Turn) Line() string {
	return string(t.Role) + ": " + t.Content
}

// Stats carries monotonic hit/miss counters. Observability only.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

var (
	// ErrNotFound is returned by Get when no record exists for the key.
	ErrNotFound = errors.New("conversation not found")

	// ErrUnavailable marks backend failures (network, decode). Callers must
	// treat it as fatal to the request rather than proceed with empty
	// history.
	ErrUnavailable = errors.New("conversation cache unavailable")
)

// Cache is the conversation store contract shared by both backends.
//
// Both operations validate the user and conversation identifiers before
// touching the store, so a malformed key never reads as a miss.
type Cache interface {
	// Get returns the recorded turns in append order, or ErrNotFound.
	Get(ctx context.Context, userID, conversationID string) ([]Turn, error)

	// InsertOrAppend creates the record if absent, otherwise appends turns
	// in order. Appending refreshes the entry's recency.
	InsertOrAppend(ctx context.Context, userID, conversationID string, turns []Turn) error

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
