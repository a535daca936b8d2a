package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/service"
	"github.com/localaid/localaid-api/internal/utils"
)

// PostHandler exposes the help-post lifecycle and discovery endpoints.
type PostHandler struct {
	posts  service.PostService
	trends service.TrendService
	logger zerolog.Logger
}

// NewPostHandler creates a post handler instance.
func NewPostHandler(posts service.PostService, trends service.TrendService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		trends: trends,
		logger: logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register binds post routes. Discovery and trends are public; mutations
// require an authenticated user. Static segments register before :id so
// /posts/mine never falls through to the lookup route.
func (h *PostHandler) Register(public fiber.Router, protected fiber.Router) {
	public.Get("/posts", h.query)
	public.Get("/posts/trends", h.trendSummary)
	protected.Post("/posts", h.create)
	protected.Get("/posts/mine", h.listMine)

	public.Get("/posts/:id", h.get)
	protected.Delete("/posts/:id", h.remove)
	protected.Put("/posts/:id/fulfill", h.fulfill)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	post, err := h.posts.Create(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) query(c *fiber.Ctx) error {
	query, err := parsePostQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	posts, err := h.posts.Query(requestContext(c), query)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "posts", posts)
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	post, err := h.posts.Get(requestContext(c), postID)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "post", post)
}

func (h *PostHandler) listMine(c *fiber.Ctx) error {
	posts, err := h.posts.ListMine(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "posts", posts)
}

func (h *PostHandler) remove(c *fiber.Ctx) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	if err := h.posts.Delete(requestContext(c), userIDFromContext(c), postID); err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "post deleted", nil)
}

func (h *PostHandler) fulfill(c *fiber.Ctx) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	var payload dto.FulfillRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	post, err := h.posts.Fulfill(requestContext(c), userIDFromContext(c), postID, payload)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "post fulfilled", post)
}

func (h *PostHandler) trendSummary(c *fiber.Ctx) error {
	var query dto.TrendQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	trends, err := h.trends.Summarize(requestContext(c), query)
	if err != nil {
		return respondServiceError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "trends", trends)
}

func parsePostQuery(c *fiber.Ctx) (dto.PostQuery, error) {
	var query dto.PostQuery
	if err := c.QueryParser(&query); err != nil {
		return dto.PostQuery{}, err
	}
	return query, nil
}

func pathID(c *fiber.Ctx, key string) (uint, error) {
	raw := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(parsed), nil
}
