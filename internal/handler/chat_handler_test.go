package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/handler"
	"github.com/localaid/localaid-api/internal/service"
)

type chatServiceStub struct {
	conversation dto.ConversationResponse
	message      dto.MessageResponse
	err          error
	lastSender   uint
	lastOther    uint
}

func (s *chatServiceStub) OpenConversation(_ context.Context, userID, otherUserID uint) (dto.ConversationResponse, error) {
	s.lastSender = userID
	s.lastOther = otherUserID
	if s.err != nil {
		return dto.ConversationResponse{}, s.err
	}
	return s.conversation, nil
}

func (s *chatServiceStub) ListConversations(context.Context, uint) ([]dto.ConversationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []dto.ConversationResponse{s.conversation}, nil
}

func (s *chatServiceStub) SendMessage(_ context.Context, senderID uint, _ dto.MessageSendRequest) (dto.MessageResponse, error) {
	s.lastSender = senderID
	if s.err != nil {
		return dto.MessageResponse{}, s.err
	}
	return s.message, nil
}

func (s *chatServiceStub) ListMessages(context.Context, uint, uint) ([]dto.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []dto.MessageResponse{s.message}, nil
}

func newChatTestApp(svc service.ChatService, userID uint) *fiber.App {
	app := fiber.New()
	group := app.Group("/api", func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	handler.NewChatHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestChatHandlerOpenConversation(t *testing.T) {
	svc := &chatServiceStub{conversation: dto.ConversationResponse{ID: 7}}
	app := newChatTestApp(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/chats", bytes.NewBufferString(`{"userId":2}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(1), svc.lastSender)
	require.Equal(t, uint(2), svc.lastOther)

	var body struct {
		Success bool                     `json:"success"`
		Data    dto.ConversationResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, uint(7), body.Data.ID)
}

func TestChatHandlerMissingRecipientIsBadRequest(t *testing.T) {
	svc := &chatServiceStub{err: service.ErrRecipientRequired}
	app := newChatTestApp(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/chats", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatHandlerSelfConversationIsBadRequest(t *testing.T) {
	svc := &chatServiceStub{err: service.ErrSelfConversation}
	app := newChatTestApp(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/chats", bytes.NewBufferString(`{"userId":1}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChatHandlerNonMemberIsUnauthorized(t *testing.T) {
	svc := &chatServiceStub{err: service.ErrNotConversationMember}
	app := newChatTestApp(svc, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/messages/9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestChatHandlerMissingConversationIsNotFound(t *testing.T) {
	svc := &chatServiceStub{err: gorm.ErrRecordNotFound}
	app := newChatTestApp(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(`{"conversationId":99,"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChatHandlerSendMessageCreated(t *testing.T) {
	svc := &chatServiceStub{message: dto.MessageResponse{ID: 11, ConversationID: 7, Text: "hi"}}
	app := newChatTestApp(svc, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(`{"conversationId":7,"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
