package ports

import (
	"context"
	"time"

	"github.com/hireloop/chatsync/internal/core/domain"
)

// SendMessageInput carries a pass-through message send: the acting user must
// already hold a chat identity and the entity a room.
type SendMessageInput struct {
	EntityKind domain.EntityKind
	EntityID   string
	UserID     string
	Body       string
}

// SendMessageResult is returned after a successful send.
type SendMessageResult struct {
	EventID string
	RoomID  string
}

// ListMessagesInput carries the parameters for listing recent room messages.
type ListMessagesInput struct {
	EntityKind domain.EntityKind
	EntityID   string
	UserID     string
	From       string // pagination token; empty starts from the newest
	Limit      int
}

// ChatMessage is one timeline message in an entity's room.
type ChatMessage struct {
	EventID   string
	Sender    string
	Body      string
	Timestamp time.Time
}

// ListMessagesResult is a page of room messages plus the next token.
type ListMessagesResult struct {
	Messages  []ChatMessage
	NextToken string
}

// MessageService exposes pass-through messaging on top of provisioned
// identities and rooms. Unlike ChatSyncService these operations are
// user-facing and return their errors.
type MessageService interface {
	Send(ctx context.Context, input SendMessageInput) (*SendMessageResult, error)
	List(ctx context.Context, input ListMessagesInput) (*ListMessagesResult, error)
}
