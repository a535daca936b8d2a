package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/internal/observability"
	"github.com/localaid/localaid-api/internal/repository"
	"github.com/localaid/localaid-api/pkg/geo"
)

// KarmaReward is the fixed number of points credited to a helper when the
// post owner marks their request fulfilled.
const KarmaReward = 10

// DefaultRadiusKm bounds proximity queries that omit an explicit distance.
const DefaultRadiusKm = 10.0

// PostService owns the help-post lifecycle: publish, discover by proximity,
// and the single open -> fulfilled transition that credits karma.
type PostService interface {
	Create(ctx context.Context, userID uint, payload dto.PostCreateRequest) (dto.PostResponse, error)
	Get(ctx context.Context, id uint) (dto.PostResponse, error)
	Query(ctx context.Context, query dto.PostQuery) ([]dto.PostResponse, error)
	ListMine(ctx context.Context, userID uint) ([]dto.PostResponse, error)
	Delete(ctx context.Context, userID, postID uint) error
	Fulfill(ctx context.Context, userID, postID uint, payload dto.FulfillRequest) (dto.PostResponse, error)
}

type postService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	realtime  RealtimePublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewPostService constructs the post service. The realtime publisher may be
// nil; lifecycle events are then not pushed.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	realtime RealtimePublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) PostService {
	return &postService{
		posts:     posts,
		users:     users,
		realtime:  realtime,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "post_service").Logger(),
		tracer:    otel.Tracer("github.com/localaid/localaid-api/internal/service/post"),
	}
}

func (s *postService) Create(ctx context.Context, userID uint, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	post := models.Post{
		UserID:      userID,
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Type:        payload.Type,
		Category:    strings.TrimSpace(s.sanitizer.Sanitize(payload.Category)),
		Status:      models.PostStatusOpen,
		Latitude:    *payload.Latitude,
		Longitude:   *payload.Longitude,
		Address:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Address)),
	}

	if len(payload.Images) > 0 {
		raw, err := json.Marshal(payload.Images)
		if err != nil {
			return dto.PostResponse{}, fmt.Errorf("encode post images: %w", err)
		}
		post.Images = datatypes.JSON(raw)
	}

	if err := s.posts.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}

	stored, err := s.posts.FindByID(ctx, post.ID)
	if err != nil {
		return dto.PostResponse{}, err
	}

	observability.PostsCreated().WithLabelValues(post.Type).Inc()

	// the broadcast carries the full post so clients can render it without
	// a refetch; the owner is preloaded on the re-read above
	response := dto.NewPostResponse(stored)
	s.broadcast(dto.EventNewPost, response)

	return response, nil
}

func (s *postService) Get(ctx context.Context, id uint) (dto.PostResponse, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return dto.PostResponse{}, err
	}
	return dto.NewPostResponse(post), nil
}

// Query lists open posts newest first, optionally narrowed by type and text
// search. When both coordinates are present the store applies a bounding-box
// prefilter and the exact great-circle distance is computed here, annotated on
// each result, and used to drop anything beyond the radius. The newest-first
// ordering holds for proximity queries too.
func (s *postService) Query(ctx context.Context, query dto.PostQuery) ([]dto.PostResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	spanCtx, span := s.tracer.Start(ctx, "post.query")
	defer span.End()

	filter := repository.PostFilter{
		ExcludeOwner: query.ExcludeID,
		Type:         query.Type,
		Search:       query.Search,
		OnlyOpen:     true,
	}

	var origin *geo.Point
	radius := query.DistKm
	if query.Lat != nil && query.Lng != nil {
		if radius <= 0 {
			radius = DefaultRadiusKm
		}
		origin = &geo.Point{Lat: *query.Lat, Lng: *query.Lng}
		bounds := geo.BoundingBox(*origin, radius)
		filter.Bounds = &bounds
		span.SetAttributes(attribute.Float64("post.radius_km", radius))
	}

	posts, err := s.posts.List(spanCtx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	responses := make([]dto.PostResponse, 0, len(posts))
	for _, post := range posts {
		response := dto.NewPostResponse(post)
		if origin != nil {
			distance := geo.DistanceKm(*origin, geo.Point{Lat: post.Latitude, Lng: post.Longitude})
			if distance > radius {
				continue
			}
			response.DistanceKm = &distance
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *postService) ListMine(ctx context.Context, userID uint) ([]dto.PostResponse, error) {
	posts, err := s.posts.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewPostResponseSlice(posts), nil
}

func (s *postService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrNotPostOwner
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	s.broadcast(dto.EventPostDeleted, dto.PostEventPayload{PostID: postID})
	return nil
}

// Fulfill closes a post exactly once. The owner triggers the transition and
// may name the helper who gets the karma credit. A post already fulfilled
// keeps its first helper; the second caller gets a conflict.
func (s *postService) Fulfill(ctx context.Context, userID, postID uint, payload dto.FulfillRequest) (dto.PostResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "post.fulfill", trace.WithAttributes(
		attribute.Int("post.id", int(postID)),
	))
	defer span.End()

	post, err := s.posts.FindByID(spanCtx, postID)
	if err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, err
	}
	if post.UserID != userID {
		return dto.PostResponse{}, ErrNotPostOwner
	}

	if payload.HelperID != nil {
		if *payload.HelperID == userID {
			return dto.PostResponse{}, ErrNotPostOwner
		}
		if _, err := s.users.FindByID(spanCtx, *payload.HelperID); err != nil {
			span.RecordError(err)
			return dto.PostResponse{}, err
		}
	}

	transitioned, err := s.posts.MarkFulfilled(spanCtx, postID, payload.HelperID)
	if err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, err
	}
	if !transitioned {
		return dto.PostResponse{}, ErrPostAlreadyFulfilled
	}

	if payload.HelperID != nil {
		s.creditHelper(spanCtx, *payload.HelperID, post.Title)
	}

	s.broadcast(dto.EventPostCompleted, dto.PostEventPayload{PostID: postID})

	updated, err := s.posts.FindByID(spanCtx, postID)
	if err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, err
	}
	return dto.NewPostResponse(updated), nil
}

// creditHelper awards the fixed karma reward and pushes both the personal
// notification and the public karma update. Failures here do not unwind the
// fulfillment; they are logged and the transition stands.
func (s *postService) creditHelper(ctx context.Context, helperID uint, postTitle string) {
	karma, err := s.users.IncrementKarma(ctx, helperID, KarmaReward)
	if err != nil {
		s.logger.Error().Err(err).Uint("helper_id", helperID).Msg("failed to credit karma")
		return
	}

	observability.KarmaAwarded().Add(float64(KarmaReward))

	if s.realtime == nil {
		return
	}

	s.realtime.EmitToUser(helperID, dto.EventNotification, dto.NotificationPayload{
		Message: fmt.Sprintf("You earned %d karma for helping with %q", KarmaReward, postTitle),
		Karma:   karma,
	})
	s.realtime.Broadcast(dto.EventKarmaUpdated, dto.KarmaUpdatePayload{UserID: helperID, Karma: karma})
}

func (s *postService) broadcast(event string, payload interface{}) {
	if s.realtime == nil {
		return
	}
	s.realtime.Broadcast(event, payload)
}
