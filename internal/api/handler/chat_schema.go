package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// acceptedResponse acknowledges a fire-and-forget synchronization request.
type acceptedResponse struct {
	Status string `json:"status"`
}

// --- Request / Response types ---

type provisionIdentityRequest struct {
	UserID      string `json:"user_id"      validate:"required"`
	Email       string `json:"email"        validate:"required,email"`
	DisplayName string `json:"display_name"`
}

type provisionRoomRequest struct {
	EntityID      string `json:"entity_id"       validate:"required"`
	EntityKind    string `json:"entity_kind"     validate:"required,oneof=job organization"`
	Title         string `json:"title"           validate:"required"`
	Topic         string `json:"topic"`
	CreatorUserID string `json:"creator_user_id" validate:"required"`
}

type syncMembershipRequest struct {
	EntityKind     string `json:"entity_kind"     validate:"required,oneof=job organization"`
	EntityID       string `json:"entity_id"       validate:"required"`
	UserID         string `json:"user_id"         validate:"required"`
	PreviousStatus string `json:"previous_status" validate:"omitempty,oneof=applied reviewing accepted rejected withdrawn"`
	NewStatus      string `json:"new_status"      validate:"omitempty,oneof=applied reviewing accepted rejected withdrawn"`
	Deleted        bool   `json:"deleted"`
	Reason         string `json:"reason"`
	EventID        string `json:"event_id"`
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

type sendMessageResponse struct {
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
}

// Response-only types owned by the transport layer, decoupled from the
// internal service types.

type messageResponse struct {
	EventID   string    `json:"event_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

type listMessagesResponse struct {
	Data      []messageResponse `json:"data"`
	NextToken string            `json:"next_token,omitempty"`
}
