package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/matrix"
)

func newMessageFixture(t *testing.T) (*MessageService, *stubMatrixClient) {
	t.Helper()
	rooms := newStubRoomRepo()
	idents := newStubIdentityRepo()
	client := &stubMatrixClient{}
	v := testVault(t)

	seedIdentity(t, idents, v, "user-1", "@applicant:test.local", "applicant_token")
	seedRoom(rooms, domain.KindJob, "job-1", "!job1:test.local", "creator-1")

	credentials := NewCredentialSource(idents, v)
	svc := NewMessageService(rooms, credentials, client, instantExecutor(), zerolog.Nop())
	return svc, client
}

func TestMessageService_Send(t *testing.T) {
	svc, client := newMessageFixture(t)

	result, err := svc.Send(context.Background(), ports.SendMessageInput{
		EntityKind: domain.KindJob,
		EntityID:   "job-1",
		UserID:     "user-1",
		Body:       "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.EventID != "$event:test.local" {
		t.Errorf("EventID = %q", result.EventID)
	}
	if result.RoomID != "!job1:test.local" {
		t.Errorf("RoomID = %q", result.RoomID)
	}
	assertOps(t, client, "send")
	if client.calls[0].token != "applicant_token" {
		t.Errorf("send used token %q", client.calls[0].token)
	}
	// the stub records the txn id in the userID slot
	if client.calls[0].userID == "" {
		t.Error("send carried no transaction id")
	}
}

func TestMessageService_Send_FreshTransactionIDPerCall(t *testing.T) {
	svc, client := newMessageFixture(t)

	input := ports.SendMessageInput{EntityKind: domain.KindJob, EntityID: "job-1", UserID: "user-1", Body: "x"}
	if _, err := svc.Send(context.Background(), input); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if _, err := svc.Send(context.Background(), input); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if client.calls[0].userID == client.calls[1].userID {
		t.Error("transaction id reused across sends")
	}
}

func TestMessageService_Send_UnknownRoom(t *testing.T) {
	svc, client := newMessageFixture(t)

	_, err := svc.Send(context.Background(), ports.SendMessageInput{
		EntityKind: domain.KindJob,
		EntityID:   "job-unknown",
		UserID:     "user-1",
		Body:       "hello",
	})
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
	assertOps(t, client)
}

func TestMessageService_Send_MissingCredential(t *testing.T) {
	svc, client := newMessageFixture(t)

	_, err := svc.Send(context.Background(), ports.SendMessageInput{
		EntityKind: domain.KindJob,
		EntityID:   "job-1",
		UserID:     "stranger",
		Body:       "hello",
	})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	assertOps(t, client)
}

func TestMessageService_List(t *testing.T) {
	svc, client := newMessageFixture(t)
	client.messages = &matrix.RoomMessagesResponse{
		Chunk: []matrix.Event{
			{
				Type:           "m.room.message",
				EventID:        "$m1",
				Sender:         "@creator:test.local",
				OriginServerTS: 1700000000000,
				Content:        map[string]any{"msgtype": "m.text", "body": "welcome"},
			},
			{Type: "m.room.member", EventID: "$join", Sender: "@applicant:test.local"},
			{
				Type:           "m.room.message",
				EventID:        "$m2",
				Sender:         "@applicant:test.local",
				OriginServerTS: 1700000060000,
				Content:        map[string]any{"msgtype": "m.text", "body": "thanks"},
			},
		},
		End: "t123",
	}

	result, err := svc.List(context.Background(), ports.ListMessagesInput{
		EntityKind: domain.KindJob,
		EntityID:   "job-1",
		UserID:     "user-1",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// Non-message events are filtered out.
	if len(result.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(result.Messages))
	}
	first := result.Messages[0]
	if first.EventID != "$m1" || first.Body != "welcome" {
		t.Errorf("first message = %+v", first)
	}
	if want := time.UnixMilli(1700000000000).UTC(); !first.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, want)
	}
	if result.NextToken != "t123" {
		t.Errorf("NextToken = %q", result.NextToken)
	}
}
