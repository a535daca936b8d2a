package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/internal/observability"
	"github.com/localaid/localaid-api/internal/repository"
	"github.com/localaid/localaid-api/pkg/ai"
	"github.com/localaid/localaid-api/pkg/geo"
)

const emptyTrendSummary = "No recent activity in your area yet."

// TrendService produces a one-line summary of nearby open posts. The local
// frequency aggregation is the source of truth; an optional AI summarizer can
// reword it, and cached summaries short-circuit both.
type TrendService interface {
	Summarize(ctx context.Context, query dto.TrendQuery) (dto.TrendResponse, error)
}

type trendService struct {
	posts      repository.PostRepository
	redis      *redis.Client
	cacheTTL   time.Duration
	summarizer ai.Summarizer
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewTrendService constructs the trend service. Both the redis client and the
// summarizer may be nil; aggregation then runs locally on every call.
func NewTrendService(
	posts repository.PostRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	summarizer ai.Summarizer,
	validate *validator.Validate,
	logger zerolog.Logger,
) TrendService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &trendService{
		posts:      posts,
		redis:      redisClient,
		cacheTTL:   cacheTTL,
		summarizer: summarizer,
		validator:  validate,
		logger:     logger.With().Str("component", "trend_service").Logger(),
	}
}

func (s *trendService) Summarize(ctx context.Context, query dto.TrendQuery) (dto.TrendResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.TrendResponse{}, err
	}

	radius := query.DistKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}

	cacheKey := s.cacheKey(query, radius)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		observability.TrendLookups().WithLabelValues("cache").Inc()
		return cached, nil
	}

	origin := geo.Point{Lat: query.Lat, Lng: query.Lng}
	bounds := geo.BoundingBox(origin, radius)
	posts, err := s.posts.List(ctx, repository.PostFilter{
		Bounds:       &bounds,
		ExcludeOwner: query.ExcludeID,
		OnlyOpen:     true,
	})
	if err != nil {
		return dto.TrendResponse{}, err
	}

	requests, offers := aggregateByCategory(posts, origin, radius)
	response, source := s.compose(ctx, radius, requests, offers)
	observability.TrendLookups().WithLabelValues(source).Inc()

	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

// aggregateByCategory counts open posts per category, split by type, after
// the exact radius check. Both slices come back sorted by count descending.
func aggregateByCategory(posts []models.Post, origin geo.Point, radiusKm float64) ([]ai.CategoryCount, []ai.CategoryCount) {
	requestCounts := make(map[string]int)
	offerCounts := make(map[string]int)

	for _, post := range posts {
		if geo.DistanceKm(origin, geo.Point{Lat: post.Latitude, Lng: post.Longitude}) > radiusKm {
			continue
		}

		category := strings.TrimSpace(post.Category)
		if category == "" {
			category = "general"
		}

		switch post.Type {
		case models.PostTypeRequest:
			requestCounts[category]++
		case models.PostTypeOffer:
			offerCounts[category]++
		}
	}

	return sortCounts(requestCounts), sortCounts(offerCounts)
}

func sortCounts(counts map[string]int) []ai.CategoryCount {
	out := make([]ai.CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, ai.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func (s *trendService) compose(ctx context.Context, radiusKm float64, requests, offers []ai.CategoryCount) (dto.TrendResponse, string) {
	if len(requests) == 0 && len(offers) == 0 {
		return dto.TrendResponse{Summary: emptyTrendSummary}, "local"
	}

	response := dto.TrendResponse{}
	if len(requests) > 0 {
		response.MostNeeded = requests[0].Category
	}
	if len(offers) > 0 {
		response.MostOffered = offers[0].Category
	}

	if s.summarizer != nil {
		result, err := s.summarizer.Summarize(ctx, ai.TrendInput{
			RadiusKm: radiusKm,
			Requests: requests,
			Offers:   offers,
		})
		if err == nil {
			response.Summary = result.Summary
			return response, "ai"
		}
		s.logger.Warn().Err(err).Msg("trend summarizer failed, using local summary")
	}

	response.Summary = localSummary(requests, offers)
	return response, "local"
}

func localSummary(requests, offers []ai.CategoryCount) string {
	parts := make([]string, 0, 2)
	if len(requests) > 0 {
		parts = append(parts, fmt.Sprintf("Most needed nearby: %s (%d open requests)", requests[0].Category, totalCount(requests)))
	}
	if len(offers) > 0 {
		parts = append(parts, fmt.Sprintf("most offered: %s (%d open offers)", offers[0].Category, totalCount(offers)))
	}
	return strings.Join(parts, "; ") + "."
}

func totalCount(counts []ai.CategoryCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}

// cacheKey buckets coordinates to two decimal places (~1.1 km) so nearby
// callers share a cached summary.
func (s *trendService) cacheKey(query dto.TrendQuery, radiusKm float64) string {
	return fmt.Sprintf("localaid:trends:%.2f:%.2f:%.0f:%d", query.Lat, query.Lng, radiusKm, query.ExcludeID)
}

func (s *trendService) readCache(ctx context.Context, key string) (dto.TrendResponse, bool) {
	if s.redis == nil {
		return dto.TrendResponse{}, false
	}

	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("trend cache read failed")
		}
		return dto.TrendResponse{}, false
	}

	var response dto.TrendResponse
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed trend cache entry")
		return dto.TrendResponse{}, false
	}
	return response, true
}

func (s *trendService) writeCache(ctx context.Context, key string, response dto.TrendResponse) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("trend cache write failed")
	}
}
