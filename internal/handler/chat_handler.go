package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/service"
	"github.com/localaid/localaid-api/internal/utils"
)

// ChatHandler exposes the conversation and message endpoints.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the authenticated router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/chats", h.open)
	router.Get("/chats", h.list)
	router.Post("/messages", h.send)
	router.Get("/messages/:conversationId", h.history)
}

func (h *ChatHandler) open(c *fiber.Ctx) error {
	var payload dto.ConversationOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	conversation, err := h.service.OpenConversation(requestContext(c), userIDFromContext(c), payload.UserID)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "conversation", conversation)
}

func (h *ChatHandler) list(c *fiber.Ctx) error {
	conversations, err := h.service.ListConversations(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "conversations", conversations)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.SendMessage(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	conversationID, err := pathID(c, "conversationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	messages, err := h.service.ListMessages(requestContext(c), userIDFromContext(c), conversationID)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "messages", messages)
}
