package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/pkg/ai"
)

type summarizerStub struct {
	result ai.TrendResult
	err    error
	calls  int
	last   ai.TrendInput
}

func (s *summarizerStub) Summarize(_ context.Context, input ai.TrendInput) (ai.TrendResult, error) {
	s.calls++
	s.last = input
	if s.err != nil {
		return ai.TrendResult{}, s.err
	}
	return s.result, nil
}

func trendTestPosts() *postRepoStub {
	return newPostRepoStub(
		models.Post{ID: 1, UserID: 2, Type: models.PostTypeRequest, Category: "groceries", Status: models.PostStatusOpen, Latitude: 12.97, Longitude: 77.59},
		models.Post{ID: 2, UserID: 3, Type: models.PostTypeRequest, Category: "groceries", Status: models.PostStatusOpen, Latitude: 12.98, Longitude: 77.60},
		models.Post{ID: 3, UserID: 2, Type: models.PostTypeRequest, Category: "repairs", Status: models.PostStatusOpen, Latitude: 12.96, Longitude: 77.58},
		models.Post{ID: 4, UserID: 3, Type: models.PostTypeOffer, Category: "tutoring", Status: models.PostStatusOpen, Latitude: 12.97, Longitude: 77.60},
	)
}

func TestTrendServiceEmptyArea(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewTrendService(newPostRepoStub(), nil, time.Minute, nil, validate, testLogger())

	trends, err := svc.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	require.Equal(t, "No recent activity in your area yet.", trends.Summary)
	require.Empty(t, trends.MostNeeded)
	require.Empty(t, trends.MostOffered)
}

func TestTrendServiceLocalSummary(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewTrendService(trendTestPosts(), nil, time.Minute, nil, validate, testLogger())

	trends, err := svc.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	require.Equal(t, "groceries", trends.MostNeeded)
	require.Equal(t, "tutoring", trends.MostOffered)
	require.Contains(t, trends.Summary, "groceries")
	require.Contains(t, trends.Summary, "tutoring")
}

func TestTrendServiceUsesSummarizerWithLocalFallback(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	summarizer := &summarizerStub{result: ai.TrendResult{Summary: "Neighbors mostly need groceries this week."}}
	svc := NewTrendService(trendTestPosts(), nil, time.Minute, summarizer, validate, testLogger())

	trends, err := svc.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	require.Equal(t, "Neighbors mostly need groceries this week.", trends.Summary)
	require.Equal(t, 1, summarizer.calls)
	require.Equal(t, "groceries", summarizer.last.Requests[0].Category)
	require.Equal(t, 2, summarizer.last.Requests[0].Count)

	failing := &summarizerStub{err: errors.New("model unavailable")}
	fallback := NewTrendService(trendTestPosts(), nil, time.Minute, failing, validate, testLogger())

	trends, err = fallback.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	require.Contains(t, trends.Summary, "groceries")
	require.Equal(t, "groceries", trends.MostNeeded)
}

func TestTrendServiceCachesSummaries(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())
	posts := trendTestPosts()
	svc := NewTrendService(posts, redisClient, time.Minute, nil, validate, testLogger())

	first, err := svc.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	require.Equal(t, "groceries", first.MostNeeded)

	// drain the store; a cached summary must still come back
	posts.posts = map[uint]models.Post{}

	cached, err := svc.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59})
	require.NoError(t, err)
	require.Equal(t, first, cached)
}

func TestTrendServiceExcludesRequestingUser(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewTrendService(trendTestPosts(), nil, time.Minute, nil, validate, testLogger())

	trends, err := svc.Summarize(context.Background(), dto.TrendQuery{Lat: 12.97, Lng: 77.59, ExcludeID: 3})
	require.NoError(t, err)
	require.Equal(t, "groceries", trends.MostNeeded)
	require.Empty(t, trends.MostOffered)
}
