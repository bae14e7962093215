// internal/app/system/realtime/frames.go
package realtime

import "encoding/json"

// Frame types on the /ws connection.
const (
	TypeAuth         = "auth"
	TypeAuthSuccess  = "auth_success"
	TypeAuthError    = "auth_error"
	TypeNotification = "notification"
	TypePing         = "ping"
	TypePong         = "pong"
)

// ClientFrame is what a client sends. Only the first frame carries
// credentials.
type ClientFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	Token  string `json:"token,omitempty"`
}

// ServerFrame is what the server sends.
type ServerFrame struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// inbound is ServerFrame as decoded by the Go client.
type inbound struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}
