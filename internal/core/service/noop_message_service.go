package service

import (
	"context"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
)

// NoopMessageService is selected at startup when no chat backend is
// configured. Unlike the sync boundary, messaging is user-facing, so it
// fails explicitly instead of silently doing nothing.
type NoopMessageService struct{}

var _ ports.MessageService = NoopMessageService{}

func (NoopMessageService) Send(context.Context, ports.SendMessageInput) (*ports.SendMessageResult, error) {
	return nil, domain.ErrChatDisabled
}

func (NoopMessageService) List(context.Context, ports.ListMessagesInput) (*ports.ListMessagesResult, error) {
	return nil, domain.ErrChatDisabled
}
