// Package matrix is a minimal Matrix client-server and Synapse admin API
// client covering the operations the synchronization layer needs: account
// registration and recovery, login, room creation, invites, forced removal,
// and message send/list.
//
// Request URLs are built by string concatenation with url.PathEscape on
// variable segments; all API errors come back as *Error with the standard
// Matrix errcode and HTTP status.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the homeserver (e.g. "https://matrix.hireloop.io").
	HomeserverURL string
	// ServerName is the Matrix server name used in fully-qualified user IDs
	// (e.g. "hireloop.io" for "@alice:hireloop.io").
	ServerName string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging.
	Logger zerolog.Logger
}

// Client is a Matrix homeserver client. It is stateless with respect to
// sessions: authenticated calls take the access token explicitly.
type Client struct {
	baseURL    string
	serverName string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient validates the configuration and returns a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.HomeserverURL == "" {
		return nil, fmt.Errorf("matrix: homeserver URL is required")
	}
	if cfg.ServerName == "" {
		return nil, fmt.Errorf("matrix: server name is required")
	}
	if _, err := url.Parse(cfg.HomeserverURL); err != nil {
		return nil, fmt.Errorf("matrix: invalid homeserver URL %q: %w", cfg.HomeserverURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.HomeserverURL, "/"),
		serverName: cfg.ServerName,
		httpClient: httpClient,
		log:        cfg.Logger,
	}, nil
}

// UserID returns the fully-qualified Matrix user ID for a localpart.
func (c *Client) UserID(localpart string) string {
	return "@" + localpart + ":" + c.serverName
}

// FullAlias returns the fully-qualified room alias for a local alias part.
func (c *Client) FullAlias(localAlias string) string {
	return "#" + localAlias + ":" + c.serverName
}

// RegisterAccount creates a new account with the given bootstrap password.
// An existing username surfaces as *Error with code M_USER_IN_USE; the
// caller recovers via UpsertAccount. Login is inhibited; the caller obtains
// a session through Login so fresh creation and recovery share one path.
func (c *Client) RegisterAccount(ctx context.Context, username, password string) error {
	request := registerRequest{
		Username:     username,
		Password:     password,
		InhibitLogin: true,
		Auth:         &auth{Type: "m.login.dummy"},
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/register", "", request)
	if err != nil {
		return fmt.Errorf("matrix: register %q: %w", username, err)
	}
	c.log.Info().Str("username", username).Msg("registered matrix account")
	return nil
}

// Login exchanges a localpart and password for a session access token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	request := loginRequest{
		Type:                     "m.login.password",
		Identifier:               loginIdentifier{Type: "m.id.user", User: username},
		Password:                 password,
		InitialDeviceDisplayName: "chatsync",
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/login", "", request)
	if err != nil {
		return nil, fmt.Errorf("matrix: login %q: %w", username, err)
	}

	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("matrix: parse login response: %w", err)
	}
	return &response, nil
}

// UpsertAccount creates or updates an account through the Synapse admin API.
// Idempotent: an existing account gets its password and display name reset,
// which is the recovery path when registration hits M_USER_IN_USE.
func (c *Client) UpsertAccount(ctx context.Context, adminToken, userID, password, displayName string) error {
	path := "/_synapse/admin/v2/users/" + url.PathEscape(userID)
	request := adminUpsertRequest{Password: password, DisplayName: displayName}
	if _, err := c.doRequest(ctx, http.MethodPut, path, adminToken, request); err != nil {
		return fmt.Errorf("matrix: upsert account %q: %w", userID, err)
	}
	c.log.Info().Str("user_id", userID).Msg("upserted matrix account via admin API")
	return nil
}

// DeactivateAccount permanently deactivates an account through the Synapse
// admin API. Operator tooling only: identity rows are owned by the platform
// user lifecycle and remote cleanup is not performed automatically.
func (c *Client) DeactivateAccount(ctx context.Context, adminToken, userID string, erase bool) error {
	path := "/_synapse/admin/v1/deactivate/" + url.PathEscape(userID)
	if _, err := c.doRequest(ctx, http.MethodPost, path, adminToken, adminDeactivateRequest{Erase: erase}); err != nil {
		return fmt.Errorf("matrix: deactivate account %q: %w", userID, err)
	}
	return nil
}

// SetDisplayName sets the display name on the user's own profile.
func (c *Client) SetDisplayName(ctx context.Context, accessToken, userID, displayName string) error {
	path := "/_matrix/client/v3/profile/" + url.PathEscape(userID) + "/displayname"
	request := map[string]string{"displayname": displayName}
	if _, err := c.doRequest(ctx, http.MethodPut, path, accessToken, request); err != nil {
		return fmt.Errorf("matrix: set display name for %q: %w", userID, err)
	}
	return nil
}

// CreateRoom creates a room on behalf of the access token's user. Reusing an
// alias surfaces as *Error with code M_ROOM_IN_USE rather than a duplicate
// room; callers rely on that for predictable replays.
func (c *Client) CreateRoom(ctx context.Context, accessToken string, request CreateRoomRequest) (*CreateRoomResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/_matrix/client/v3/createRoom", accessToken, request)
	if err != nil {
		return nil, fmt.Errorf("matrix: create room: %w", err)
	}

	var response CreateRoomResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("matrix: parse create room response: %w", err)
	}
	c.log.Info().Str("room_id", response.RoomID).Str("alias", request.Alias).Msg("created matrix room")
	return &response, nil
}

// InviteUser invites a user to a room. The token's user must already be a
// room participant with invite rights.
func (c *Client) InviteUser(ctx context.Context, accessToken, roomID, userID string) error {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID) + "/invite"
	if _, err := c.doRequest(ctx, http.MethodPost, path, accessToken, inviteRequest{UserID: userID}); err != nil {
		return fmt.Errorf("matrix: invite %q to %q: %w", userID, roomID, err)
	}
	return nil
}

// KickUser removes a user from a room with a reason. Performed with an
// administrative token so removal succeeds even when the original inviter
// has left the room or lost rights.
func (c *Client) KickUser(ctx context.Context, accessToken, roomID, userID, reason string) error {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID) + "/kick"
	if _, err := c.doRequest(ctx, http.MethodPost, path, accessToken, kickRequest{UserID: userID, Reason: reason}); err != nil {
		return fmt.Errorf("matrix: kick %q from %q: %w", userID, roomID, err)
	}
	return nil
}

// JoinRoom joins the token's user to a room by ID or alias.
func (c *Client) JoinRoom(ctx context.Context, accessToken, roomIDOrAlias string) error {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomIDOrAlias)
	if _, err := c.doRequest(ctx, http.MethodPost, path, accessToken, struct{}{}); err != nil {
		return fmt.Errorf("matrix: join %q: %w", roomIDOrAlias, err)
	}
	return nil
}

// SendMessage sends an m.room.message event. The transaction ID is the
// caller-supplied idempotency token: the homeserver deduplicates repeated
// sends with the same ID, so retried sends never double-post.
func (c *Client) SendMessage(ctx context.Context, accessToken, roomID string, content MessageContent, txnID string) (string, error) {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID) +
		"/send/m.room.message/" + url.PathEscape(txnID)
	body, err := c.doRequest(ctx, http.MethodPut, path, accessToken, content)
	if err != nil {
		return "", fmt.Errorf("matrix: send message to %q: %w", roomID, err)
	}

	var response sendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("matrix: parse send response: %w", err)
	}
	return response.EventID, nil
}

// RoomMessages fetches paginated timeline events from a room.
func (c *Client) RoomMessages(ctx context.Context, accessToken, roomID string, options RoomMessagesOptions) (*RoomMessagesResponse, error) {
	direction := options.Direction
	if direction == "" {
		direction = "b"
	}
	query := url.Values{"dir": {direction}}
	if options.From != "" {
		query.Set("from", options.From)
	}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID) + "/messages?" + query.Encode()
	body, err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("matrix: room messages for %q: %w", roomID, err)
	}

	var response RoomMessagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("matrix: parse messages response: %w", err)
	}
	return &response, nil
}

// WhoAmI validates an access token and returns the user ID it belongs to.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", accessToken, nil)
	if err != nil {
		return "", fmt.Errorf("matrix: whoami: %w", err)
	}

	var response whoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("matrix: parse whoami response: %w", err)
	}
	return response.UserID, nil
}

// doRequest performs an HTTP request against the homeserver and returns the
// response body. On non-2xx the body is decoded into *Error; accessToken may
// be empty for unauthenticated endpoints.
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All Matrix error responses share the same JSON envelope.
	var matrixErr Error
	if jsonErr := json.Unmarshal(responseBody, &matrixErr); jsonErr != nil || matrixErr.Code == "" {
		return nil, fmt.Errorf("unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	matrixErr.StatusCode = response.StatusCode

	return responseBody, &matrixErr
}
