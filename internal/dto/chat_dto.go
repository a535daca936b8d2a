package dto

import (
	"time"

	"github.com/localaid/localaid-api/internal/models"
)

// ConversationOpenRequest names the other party of a two-user thread.
type ConversationOpenRequest struct {
	UserID uint `json:"userId" validate:"required"`
}

// MessageSendRequest appends a message to a conversation. Text and image are
// individually optional; the service rejects the payload when both are empty.
type MessageSendRequest struct {
	ConversationID uint   `json:"conversationId" validate:"required"`
	Text           string `json:"text" validate:"omitempty,max=4000"`
	Image          string `json:"image" validate:"omitempty,url,max=512"`
}

// MessageResponse is a message expanded with its sender's display fields.
// Members is populated on append so recipients can render the thread without
// a second lookup.
type MessageResponse struct {
	ID             uint          `json:"id"`
	ConversationID uint          `json:"conversation_id"`
	Sender         UserSummary   `json:"sender"`
	Text           string        `json:"text,omitempty"`
	ImageURL       string        `json:"image_url,omitempty"`
	Members        []UserSummary `json:"members,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ConversationResponse expands a conversation with both members and the
// latest message.
type ConversationResponse struct {
	ID            uint             `json:"id"`
	Members       []UserSummary    `json:"members"`
	LatestMessage *MessageResponse `json:"latest_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		Sender:         NewUserSummary(message.Sender),
		Text:           message.Text,
		ImageURL:       message.ImageURL,
		CreatedAt:      message.CreatedAt,
	}
}

// NewMessageResponseSlice converts messages into DTOs preserving order.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// NewConversationResponse converts a conversation model into a DTO.
func NewConversationResponse(conversation models.Conversation) ConversationResponse {
	response := ConversationResponse{
		ID: conversation.ID,
		Members: []UserSummary{
			NewUserSummary(conversation.MemberOne),
			NewUserSummary(conversation.MemberTwo),
		},
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
	}

	if conversation.LatestMessage != nil {
		latest := NewMessageResponse(*conversation.LatestMessage)
		response.LatestMessage = &latest
	}

	return response
}

// NewConversationResponseSlice converts conversations into DTOs.
func NewConversationResponseSlice(conversations []models.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		out = append(out, NewConversationResponse(conversation))
	}
	return out
}
