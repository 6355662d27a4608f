package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/matrix"
)

// messageClient is the subset of the matrix client used for pass-through
// messaging.
type messageClient interface {
	SendMessage(ctx context.Context, accessToken, roomID string, content matrix.MessageContent, txnID string) (string, error)
	RoomMessages(ctx context.Context, accessToken, roomID string, options matrix.RoomMessagesOptions) (*matrix.RoomMessagesResponse, error)
}

const defaultListLimit = 50

// MessageService sends and lists room messages on behalf of provisioned
// users. These are user-facing pass-through operations: unlike the sync
// boundary, errors are returned to the caller.
type MessageService struct {
	rooms       ports.RoomRepository
	credentials *CredentialSource
	client      messageClient
	executor    *matrix.Executor
	log         zerolog.Logger
}

func NewMessageService(
	rooms ports.RoomRepository,
	credentials *CredentialSource,
	client messageClient,
	executor *matrix.Executor,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		rooms:       rooms,
		credentials: credentials,
		client:      client,
		executor:    executor,
		log:         log,
	}
}

// Send posts a text message to the entity's room as the given user. Each
// send carries a fresh random transaction ID so a retried call cannot
// double-post.
func (s *MessageService) Send(ctx context.Context, input ports.SendMessageInput) (*ports.SendMessageResult, error) {
	room, err := s.rooms.FindByEntity(ctx, input.EntityKind, input.EntityID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	token, err := s.credentials.Token(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	txnID, err := transactionID()
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	var eventID string
	err = s.executor.Do(ctx, "send_message", func(ctx context.Context) error {
		var sendErr error
		eventID, sendErr = s.client.SendMessage(ctx, token, room.RemoteRoomID, matrix.NewTextMessage(input.Body), txnID)
		return sendErr
	})
	if err != nil {
		return nil, fmt.Errorf("send message to %s %s: %w", input.EntityKind, input.EntityID, err)
	}

	return &ports.SendMessageResult{EventID: eventID, RoomID: room.RemoteRoomID}, nil
}

// List returns a page of the room's recent messages, newest first.
func (s *MessageService) List(ctx context.Context, input ports.ListMessagesInput) (*ports.ListMessagesResult, error) {
	room, err := s.rooms.FindByEntity(ctx, input.EntityKind, input.EntityID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	token, err := s.credentials.Token(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var response *matrix.RoomMessagesResponse
	err = s.executor.Do(ctx, "list_messages", func(ctx context.Context) error {
		var listErr error
		response, listErr = s.client.RoomMessages(ctx, token, room.RemoteRoomID, matrix.RoomMessagesOptions{
			From:  input.From,
			Limit: limit,
		})
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("list messages for %s %s: %w", input.EntityKind, input.EntityID, err)
	}

	messages := make([]ports.ChatMessage, 0, len(response.Chunk))
	for _, event := range response.Chunk {
		if event.Type != "m.room.message" {
			continue
		}
		body, _ := event.Content["body"].(string)
		messages = append(messages, ports.ChatMessage{
			EventID:   event.EventID,
			Sender:    event.Sender,
			Body:      body,
			Timestamp: time.UnixMilli(event.OriginServerTS).UTC(),
		})
	}

	return &ports.ListMessagesResult{Messages: messages, NextToken: response.End}, nil
}

// transactionID returns a fresh random idempotency token for a send.
func transactionID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
