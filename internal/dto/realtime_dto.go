package dto

import "encoding/json"

// Realtime event names pushed from the server. Clients subscribe by holding
// one websocket session; the session is implicitly a member of the room named
// after its own user id.
const (
	EventConnected     = "connected"
	EventMessage       = "message received"
	EventNewPost       = "new-post"
	EventPostDeleted   = "post-deleted"
	EventPostCompleted = "post-completed"
	EventKarmaUpdated  = "karma-updated"
	EventNotification  = "notification"
	EventTyping        = "typing"
	EventStopTyping    = "stop typing"
)

// Client frame actions accepted over the websocket.
const (
	ActionJoinChat   = "join chat"
	ActionLeaveChat  = "leave chat"
	ActionTyping     = "typing"
	ActionStopTyping = "stop typing"
)

// RealtimeFrame is a single event delivered to a websocket client.
type RealtimeFrame struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientFrame is a control frame sent by a connected client.
type ClientFrame struct {
	Event          string `json:"event"`
	ConversationID uint   `json:"conversation_id"`
}

// TypingPayload identifies who is typing in which conversation.
type TypingPayload struct {
	ConversationID uint `json:"conversation_id"`
	UserID         uint `json:"user_id"`
}

// PostEventPayload carries the post identifier for deletion and completion
// broadcasts. New posts broadcast the full PostResponse instead.
type PostEventPayload struct {
	PostID uint `json:"post_id"`
}

// KarmaUpdatePayload announces a user's new karma total to all clients.
type KarmaUpdatePayload struct {
	UserID uint `json:"user_id"`
	Karma  int  `json:"karma"`
}

// NotificationPayload is a personal toast-style alert.
type NotificationPayload struct {
	Message string `json:"message"`
	Karma   int    `json:"karma"`
}

// DecodePayload unmarshals a raw payload into the typed form. Used by tests
// and by nodes replaying replicated events.
func DecodePayload(raw json.RawMessage, out interface{}) error {
	return json.Unmarshal(raw, out)
}
