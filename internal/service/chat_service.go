package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/internal/observability"
	"github.com/localaid/localaid-api/internal/repository"
)

// ChatService is the conversation directory and message ledger: it maps user
// pairs to their single thread and appends immutable messages to it.
type ChatService interface {
	OpenConversation(ctx context.Context, userID, otherUserID uint) (dto.ConversationResponse, error)
	ListConversations(ctx context.Context, userID uint) ([]dto.ConversationResponse, error)
	SendMessage(ctx context.Context, senderID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error)
	ListMessages(ctx context.Context, userID, conversationID uint) ([]dto.MessageResponse, error)
}

type chatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	realtime      RealtimePublisher
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewChatService constructs the chat service. The realtime publisher may be
// nil; message persistence then proceeds without pushes.
func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	realtime RealtimePublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) ChatService {
	return &chatService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		realtime:      realtime,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "chat_service").Logger(),
		tracer:        otel.Tracer("github.com/localaid/localaid-api/internal/service/chat"),
	}
}

func (s *chatService) OpenConversation(ctx context.Context, userID, otherUserID uint) (dto.ConversationResponse, error) {
	if otherUserID == 0 {
		return dto.ConversationResponse{}, ErrRecipientRequired
	}
	if userID == otherUserID {
		return dto.ConversationResponse{}, ErrSelfConversation
	}

	if _, err := s.users.FindByID(ctx, otherUserID); err != nil {
		return dto.ConversationResponse{}, err
	}

	conversation, err := s.conversations.GetOrCreate(ctx, userID, otherUserID)
	if err != nil {
		return dto.ConversationResponse{}, err
	}

	return dto.NewConversationResponse(conversation), nil
}

func (s *chatService) ListConversations(ctx context.Context, userID uint) ([]dto.ConversationResponse, error) {
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewConversationResponseSlice(conversations), nil
}

func (s *chatService) SendMessage(ctx context.Context, senderID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	image := strings.TrimSpace(payload.Image)
	if text == "" && image == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.Int("chat.conversation_id", int(payload.ConversationID)),
		attribute.Int("chat.sender_id", int(senderID)),
	))
	defer span.End()

	conversation, err := s.conversations.FindByID(spanCtx, payload.ConversationID)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}
	if !conversation.HasMember(senderID) {
		return dto.MessageResponse{}, ErrNotConversationMember
	}

	message := models.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Text:           text,
		ImageURL:       image,
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	if err := s.conversations.SetLatestMessage(spanCtx, conversation.ID, message.ID); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	stored, err := s.messages.FindByID(spanCtx, message.ID)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(stored)
	response.Members = []dto.UserSummary{
		dto.NewUserSummary(conversation.MemberOne),
		dto.NewUserSummary(conversation.MemberTwo),
	}

	s.notifyMembers(conversation, senderID, response)
	observability.MessagesSent().Inc()

	return response, nil
}

func (s *chatService) ListMessages(ctx context.Context, userID, conversationID uint) ([]dto.MessageResponse, error) {
	conversation, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasMember(userID) {
		return nil, ErrNotConversationMember
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return dto.NewMessageResponseSlice(messages), nil
}

// notifyMembers pushes the message to every member's identity room except
// the sender. A nil router skips delivery; the write has already succeeded.
func (s *chatService) notifyMembers(conversation models.Conversation, senderID uint, message dto.MessageResponse) {
	if s.realtime == nil {
		return
	}

	for _, memberID := range []uint{conversation.MemberOneID, conversation.MemberTwoID} {
		if memberID == senderID {
			continue
		}
		s.realtime.EmitToUser(memberID, dto.EventMessage, message)
	}
}

// IsRecordNotFound reports whether the error is the store's missing-row error.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
