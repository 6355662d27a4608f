package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
)

// MessageHandler handles user-facing pass-through messaging. Unlike the
// synchronization entry points these are synchronous: the caller gets the
// real outcome, including remote failures.
type MessageHandler struct {
	messages ports.MessageService
}

func NewMessageHandler(messages ports.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// entityParams extracts and validates the :kind/:id route parameters.
func entityParams(c echo.Context) (domain.EntityKind, string, error) {
	kind := domain.EntityKind(c.Param("kind"))
	if !kind.Valid() {
		return "", "", echo.NewHTTPError(http.StatusUnprocessableEntity, "unknown entity kind")
	}
	entityID := c.Param("id")
	if entityID == "" {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "missing entity id")
	}
	return kind, entityID, nil
}

// Send handles POST /v1/chat/rooms/:kind/:id/messages.
//
// @Summary      Send a message to an entity's room as the authenticated user
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string              true  "Entity kind (job or organization)"
// @Param        id    path      string              true  "Entity id"
// @Param        body  body      sendMessageRequest  true  "Message body"
// @Success      201   {object}  sendMessageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/chat/rooms/{kind}/{id}/messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	kind, entityID, err := entityParams(c)
	if err != nil {
		return err
	}
	subject, _, err := ctxSubject(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.messages.Send(c.Request().Context(), ports.SendMessageInput{
		EntityKind: kind,
		EntityID:   entityID,
		UserID:     subject,
		Body:       req.Body,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sendMessageResponse{
		EventID: result.EventID,
		RoomID:  result.RoomID,
	})
}

// List handles GET /v1/chat/rooms/:kind/:id/messages.
//
// @Summary      List recent messages in an entity's room
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        kind   path      string  true   "Entity kind (job or organization)"
// @Param        id     path      string  true   "Entity id"
// @Param        from   query     string  false  "Pagination token from a previous page"
// @Param        limit  query     int     false  "Page size (default 50)"
// @Success      200    {object}  listMessagesResponse
// @Failure      404    {object}  errorResponse
// @Failure      409    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /v1/chat/rooms/{kind}/{id}/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	kind, entityID, err := entityParams(c)
	if err != nil {
		return err
	}
	subject, _, err := ctxSubject(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.messages.List(c.Request().Context(), ports.ListMessagesInput{
		EntityKind: kind,
		EntityID:   entityID,
		UserID:     subject,
		From:       c.QueryParam("from"),
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	data := make([]messageResponse, 0, len(result.Messages))
	for _, m := range result.Messages {
		data = append(data, messageResponse{
			EventID:   m.EventID,
			Sender:    m.Sender,
			Body:      m.Body,
			Timestamp: m.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, listMessagesResponse{Data: data, NextToken: result.NextToken})
}
