package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
)

// MembershipEnqueuer hands a membership transition to the sharded worker
// pool. Transitions for the same (entity, user) pair are applied in order.
type MembershipEnqueuer interface {
	Enqueue(input ports.SyncMembershipInput)
}

// ChatHandler handles the synchronization entry points called by the
// platform's backend services. All three are fire-and-forget: the response
// acknowledges acceptance, never the remote outcome, because failures inside
// the sync boundary are logged and swallowed by contract.
type ChatHandler struct {
	sync    ports.ChatSyncService
	enqueue MembershipEnqueuer
}

func NewChatHandler(sync ports.ChatSyncService, enqueue MembershipEnqueuer) *ChatHandler {
	return &ChatHandler{sync: sync, enqueue: enqueue}
}

// ProvisionIdentity handles POST /v1/chat/identities.
//
// @Summary      Provision a chat identity for a platform user
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      provisionIdentityRequest  true  "User details"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/chat/identities [post]
func (h *ChatHandler) ProvisionIdentity(c echo.Context) error {
	var req provisionIdentityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !h.sync.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat backend not configured")
	}

	h.sync.ProvisionIdentity(c.Request().Context(), ports.ProvisionIdentityInput{
		UserID:      req.UserID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	return c.JSON(http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// ProvisionRoom handles POST /v1/chat/rooms.
//
// @Summary      Provision a chat room for a job or organization
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      provisionRoomRequest  true  "Owning entity details"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/chat/rooms [post]
func (h *ChatHandler) ProvisionRoom(c echo.Context) error {
	var req provisionRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !h.sync.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat backend not configured")
	}

	h.sync.ProvisionRoom(c.Request().Context(), ports.ProvisionRoomInput{
		EntityID:      req.EntityID,
		EntityKind:    domain.EntityKind(req.EntityKind),
		Title:         req.Title,
		Topic:         req.Topic,
		CreatorUserID: req.CreatorUserID,
	})
	return c.JSON(http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// SyncMembership handles POST /v1/chat/memberships.
//
// @Summary      Apply an application status transition to room membership
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      syncMembershipRequest  true  "Status transition"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/chat/memberships [post]
func (h *ChatHandler) SyncMembership(c echo.Context) error {
	var req syncMembershipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !h.sync.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat backend not configured")
	}

	h.enqueue.Enqueue(ports.SyncMembershipInput{
		EntityKind:     domain.EntityKind(req.EntityKind),
		EntityID:       req.EntityID,
		UserID:         req.UserID,
		PreviousStatus: domain.ApplicationStatus(req.PreviousStatus),
		NewStatus:      domain.ApplicationStatus(req.NewStatus),
		Deleted:        req.Deleted,
		Reason:         req.Reason,
		EventID:        req.EventID,
	})
	return c.JSON(http.StatusAccepted, acceptedResponse{Status: "accepted"})
}
