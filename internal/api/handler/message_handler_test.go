package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
)

// stubMessageService returns canned results and records inputs.
type stubMessageService struct {
	sendInput  *ports.SendMessageInput
	sendResult *ports.SendMessageResult
	sendErr    error
	listResult *ports.ListMessagesResult
	listErr    error
}

func (s *stubMessageService) Send(_ context.Context, input ports.SendMessageInput) (*ports.SendMessageResult, error) {
	s.sendInput = &input
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return s.sendResult, nil
}

func (s *stubMessageService) List(_ context.Context, _ ports.ListMessagesInput) (*ports.ListMessagesResult, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listResult, nil
}

func newMessageTestContext(t *testing.T, method, body, kind, id string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("kind", "id")
	c.SetParamValues(kind, id)
	c.Set("subject", "user-1")
	c.Set("role", "user")
	return c, rec
}

func TestMessageHandler_Send(t *testing.T) {
	svc := &stubMessageService{
		sendResult: &ports.SendMessageResult{EventID: "$evt", RoomID: "!room:hs"},
	}
	h := NewMessageHandler(svc)

	c, rec := newMessageTestContext(t, http.MethodPost, `{"body":"hello"}`, "job", "job-1")
	if err := h.Send(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if svc.sendInput.UserID != "user-1" {
		t.Errorf("UserID = %q, want the authenticated subject", svc.sendInput.UserID)
	}
	if svc.sendInput.EntityKind != domain.KindJob || svc.sendInput.EntityID != "job-1" {
		t.Errorf("entity = %s/%s", svc.sendInput.EntityKind, svc.sendInput.EntityID)
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EventID != "$evt" || resp.RoomID != "!room:hs" {
		t.Errorf("response = %+v", resp)
	}
}

func TestMessageHandler_Send_UnknownKind(t *testing.T) {
	h := NewMessageHandler(&stubMessageService{})

	c, _ := newMessageTestContext(t, http.MethodPost, `{"body":"hello"}`, "candidate", "x")
	err := h.Send(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want 422", err)
	}
}

func TestMessageHandler_Send_MissingClaims(t *testing.T) {
	h := NewMessageHandler(&stubMessageService{})

	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"body":"hello"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("kind", "id")
	c.SetParamValues("job", "job-1")

	err := h.Send(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
}

func TestMessageHandler_Send_EmptyBody(t *testing.T) {
	h := NewMessageHandler(&stubMessageService{})

	c, _ := newMessageTestContext(t, http.MethodPost, `{"body":""}`, "job", "job-1")
	err := h.Send(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestMessageHandler_Send_ServiceErrorPropagates(t *testing.T) {
	svc := &stubMessageService{sendErr: domain.ErrRoomNotFound}
	h := NewMessageHandler(svc)

	c, _ := newMessageTestContext(t, http.MethodPost, `{"body":"hello"}`, "job", "job-1")
	if err := h.Send(c); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound to reach the error handler", err)
	}
}

func TestMessageHandler_List(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	svc := &stubMessageService{
		listResult: &ports.ListMessagesResult{
			Messages: []ports.ChatMessage{
				{EventID: "$m1", Sender: "@a:hs", Body: "hi", Timestamp: now},
			},
			NextToken: "t42",
		},
	}
	h := NewMessageHandler(svc)

	c, rec := newMessageTestContext(t, http.MethodGet, "", "organization", "org-7")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp listMessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].EventID != "$m1" || resp.Data[0].Body != "hi" {
		t.Errorf("response = %+v", resp)
	}
	if resp.NextToken != "t42" {
		t.Errorf("NextToken = %q", resp.NextToken)
	}
}
