package matrix

// registerRequest is the body for POST /_matrix/client/v3/register.
type registerRequest struct {
	Username                 string `json:"username"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
	InhibitLogin             bool   `json:"inhibit_login,omitempty"`
	Auth                     *auth  `json:"auth,omitempty"`
}

// auth is the User-Interactive Authentication stage. Dummy auth completes
// registration on homeservers with no additional stages configured.
type auth struct {
	Type string `json:"type"`
}

// loginRequest is the body for POST /_matrix/client/v3/login.
type loginRequest struct {
	Type                     string          `json:"type"`
	Identifier               loginIdentifier `json:"identifier"`
	Password                 string          `json:"password"`
	InitialDeviceDisplayName string          `json:"initial_device_display_name,omitempty"`
}

type loginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// AuthResponse is returned by register and login calls.
type AuthResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id,omitempty"`
}

// adminUpsertRequest is the body for PUT /_synapse/admin/v2/users/{userID}.
// The endpoint is idempotent: it creates the account when absent and resets
// password and display name when present.
type adminUpsertRequest struct {
	Password      string `json:"password,omitempty"`
	DisplayName   string `json:"displayname,omitempty"`
	LogoutDevices bool   `json:"logout_devices,omitempty"`
}

// adminDeactivateRequest is the body for
// POST /_synapse/admin/v1/deactivate/{userID}.
type adminDeactivateRequest struct {
	Erase bool `json:"erase"`
}

// CreateRoomRequest holds parameters for POST /_matrix/client/v3/createRoom.
type CreateRoomRequest struct {
	Name       string `json:"name,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Alias      string `json:"room_alias_name,omitempty"` // local part, without # or :server
	Visibility string `json:"visibility,omitempty"`      // "public" or "private"
	Preset     string `json:"preset,omitempty"`          // "public_chat", "private_chat"
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID    string `json:"room_id"`
	RoomAlias string `json:"room_alias,omitempty"`
}

// inviteRequest is the body for POST /rooms/{roomID}/invite.
type inviteRequest struct {
	UserID string `json:"user_id"`
}

// kickRequest is the body for POST /rooms/{roomID}/kick.
type kickRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// MessageContent is the content body of an m.room.message event.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: "m.text", Body: body}
}

// sendEventResponse is returned by the send endpoint.
type sendEventResponse struct {
	EventID string `json:"event_id"`
}

// Event is a Matrix timeline event as returned by /messages.
type Event struct {
	EventID        string         `json:"event_id"`
	Type           string         `json:"type"`
	Sender         string         `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
}

// RoomMessagesOptions controls pagination for room message fetching.
type RoomMessagesOptions struct {
	From      string // pagination token; empty means "from now"
	Direction string // "b" (older) or "f" (newer); defaults to "b"
	Limit     int    // max events; 0 uses the server default
}

// RoomMessagesResponse is returned by RoomMessages.
type RoomMessagesResponse struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Chunk []Event `json:"chunk"`
}

// whoAmIResponse is returned by GET /_matrix/client/v3/account/whoami.
type whoAmIResponse struct {
	UserID string `json:"user_id"`
}
