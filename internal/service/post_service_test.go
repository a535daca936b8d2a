package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/internal/repository"
	"github.com/localaid/localaid-api/pkg/geo"
)

type postRepoStub struct {
	posts  map[uint]models.Post
	nextID uint
}

func newPostRepoStub(posts ...models.Post) *postRepoStub {
	stub := &postRepoStub{posts: make(map[uint]models.Post), nextID: 1}
	for _, post := range posts {
		if post.ID >= stub.nextID {
			stub.nextID = post.ID + 1
		}
		stub.posts[post.ID] = post
	}
	return stub
}

func (r *postRepoStub) Create(_ context.Context, post *models.Post) error {
	post.ID = r.nextID
	post.CreatedAt = time.Now().Add(time.Duration(r.nextID) * time.Second)
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID] = *post
	r.nextID++
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func (r *postRepoStub) FindByID(_ context.Context, id uint) (models.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return models.Post{}, gorm.ErrRecordNotFound
	}
	post.User = models.User{ID: post.UserID, Name: "owner"}
	return post, nil
}

func (r *postRepoStub) List(_ context.Context, filter repository.PostFilter) ([]models.Post, error) {
	out := make([]models.Post, 0)
	for id := uint(1); id < r.nextID; id++ {
		post, ok := r.posts[id]
		if !ok {
			continue
		}
		if filter.OnlyOpen && post.Status != models.PostStatusOpen {
			continue
		}
		if filter.Type != "" && post.Type != filter.Type {
			continue
		}
		if filter.ExcludeOwner != 0 && post.UserID == filter.ExcludeOwner {
			continue
		}
		if filter.Bounds != nil {
			if post.Latitude < filter.Bounds.MinLat || post.Latitude > filter.Bounds.MaxLat ||
				post.Longitude < filter.Bounds.MinLng || post.Longitude > filter.Bounds.MaxLng {
				continue
			}
		}
		out = append(out, post)
	}
	// newest first, like the real store
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *postRepoStub) ListByOwner(_ context.Context, ownerID uint) ([]models.Post, error) {
	out := make([]models.Post, 0)
	for _, post := range r.posts {
		if post.UserID == ownerID {
			out = append(out, post)
		}
	}
	return out, nil
}

func (r *postRepoStub) Delete(_ context.Context, id uint) error {
	if _, ok := r.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *postRepoStub) MarkFulfilled(_ context.Context, id uint, helperID *uint) (bool, error) {
	post, ok := r.posts[id]
	if !ok {
		return false, nil
	}
	if post.Status != models.PostStatusOpen {
		return false, nil
	}
	post.Status = models.PostStatusFulfilled
	post.FulfilledBy = helperID
	r.posts[id] = post
	return true, nil
}

func newPostServiceForTest(publisher *publisherStub, posts *postRepoStub, users *userRepoStub) PostService {
	if posts == nil {
		posts = newPostRepoStub()
	}
	if users == nil {
		users = newUserRepoStub(
			models.User{ID: 1, Name: "Asha"},
			models.User{ID: 2, Name: "Ravi"},
		)
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	var realtime RealtimePublisher
	if publisher != nil {
		realtime = publisher
	}
	return NewPostService(posts, users, realtime, validate, testLogger())
}

func TestPostServiceCreateBroadcastsNewPost(t *testing.T) {
	publisher := &publisherStub{}
	svc := newPostServiceForTest(publisher, nil, nil)

	post, err := svc.Create(context.Background(), 1, dto.PostCreateRequest{
		Title:       "Need help moving a couch",
		Description: "Two flights of stairs, should take an hour.",
		Type:        models.PostTypeRequest,
		Category:    "moving",
		Latitude:    floatPtr(12.97),
		Longitude:   floatPtr(77.59),
	})
	require.NoError(t, err)
	require.Equal(t, models.PostStatusOpen, post.Status)

	// the full post travels with the event so clients render it without a
	// refetch
	broadcasts := publisher.eventsNamed(dto.EventNewPost)
	require.Len(t, broadcasts, 1)
	payload, ok := broadcasts[0].payload.(dto.PostResponse)
	require.True(t, ok)
	require.Equal(t, post.ID, payload.ID)
	require.Equal(t, "Need help moving a couch", payload.Title)
	require.Equal(t, "owner", payload.User.Name)
}

func TestPostServiceCreateRequiresCoordinates(t *testing.T) {
	svc := newPostServiceForTest(nil, nil, nil)

	_, err := svc.Create(context.Background(), 1, dto.PostCreateRequest{
		Title:       "Need help moving a couch",
		Description: "Two flights of stairs, should take an hour.",
		Type:        models.PostTypeRequest,
		Category:    "moving",
	})
	require.Error(t, err)
}

func TestPostServiceCreateRejectsBadType(t *testing.T) {
	svc := newPostServiceForTest(nil, nil, nil)

	_, err := svc.Create(context.Background(), 1, dto.PostCreateRequest{
		Title:       "Free compost",
		Description: "Pick up anytime.",
		Type:        "giveaway",
		Category:    "garden",
		Latitude:    floatPtr(12.97),
		Longitude:   floatPtr(77.59),
	})
	require.Error(t, err)
}

func TestPostServiceQueryFiltersByRadiusAndAnnotatesDistance(t *testing.T) {
	// Bangalore city center vs Whitefield (~16 km) vs Mysore (~140 km).
	posts := newPostRepoStub(
		models.Post{ID: 1, UserID: 2, Title: "Close by", Type: models.PostTypeRequest, Status: models.PostStatusOpen, Latitude: 12.9716, Longitude: 77.5946},
		models.Post{ID: 2, UserID: 2, Title: "Whitefield", Type: models.PostTypeRequest, Status: models.PostStatusOpen, Latitude: 12.9698, Longitude: 77.7500},
		models.Post{ID: 3, UserID: 2, Title: "Mysore", Type: models.PostTypeRequest, Status: models.PostStatusOpen, Latitude: 12.2958, Longitude: 76.6394},
	)
	svc := newPostServiceForTest(nil, posts, nil)

	lat, lng := 12.9716, 77.5946
	results, err := svc.Query(context.Background(), dto.PostQuery{Lat: &lat, Lng: &lng, DistKm: 20})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Close by", results[0].Title)
	require.NotNil(t, results[0].DistanceKm)
	require.InDelta(t, 0, *results[0].DistanceKm, 0.01)
	require.Equal(t, "Whitefield", results[1].Title)
	require.Greater(t, *results[1].DistanceKm, 10.0)
}

func TestPostServiceQueryDefaultRadius(t *testing.T) {
	posts := newPostRepoStub(
		models.Post{ID: 1, UserID: 2, Title: "Near", Type: models.PostTypeOffer, Status: models.PostStatusOpen, Latitude: 12.98, Longitude: 77.60},
		models.Post{ID: 2, UserID: 2, Title: "Far", Type: models.PostTypeOffer, Status: models.PostStatusOpen, Latitude: 13.20, Longitude: 77.60},
	)
	svc := newPostServiceForTest(nil, posts, nil)

	lat, lng := 12.9716, 77.5946
	results, err := svc.Query(context.Background(), dto.PostQuery{Lat: &lat, Lng: &lng})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Near", results[0].Title)
	require.LessOrEqual(t, *results[0].DistanceKm, DefaultRadiusKm)
}

func TestPostServiceQueryKeepsNewestFirstOnProximity(t *testing.T) {
	now := time.Now()
	// the closer post is older; recency must still win the ordering
	posts := newPostRepoStub(
		models.Post{ID: 1, UserID: 2, Title: "Older closer", Type: models.PostTypeRequest, Status: models.PostStatusOpen, Latitude: 12.9716, Longitude: 77.5946, CreatedAt: now.Add(-time.Hour)},
		models.Post{ID: 2, UserID: 2, Title: "Newer farther", Type: models.PostTypeRequest, Status: models.PostStatusOpen, Latitude: 12.9698, Longitude: 77.7500, CreatedAt: now},
	)
	svc := newPostServiceForTest(nil, posts, nil)

	lat, lng := 12.9716, 77.5946
	results, err := svc.Query(context.Background(), dto.PostQuery{Lat: &lat, Lng: &lng, DistKm: 20})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Newer farther", results[0].Title)
	require.Equal(t, "Older closer", results[1].Title)
	require.Less(t, *results[1].DistanceKm, *results[0].DistanceKm)
}

func TestPostServiceDeleteRequiresOwnership(t *testing.T) {
	posts := newPostRepoStub(models.Post{ID: 1, UserID: 1, Status: models.PostStatusOpen})
	publisher := &publisherStub{}
	svc := newPostServiceForTest(publisher, posts, nil)

	err := svc.Delete(context.Background(), 2, 1)
	require.ErrorIs(t, err, ErrNotPostOwner)

	require.NoError(t, svc.Delete(context.Background(), 1, 1))
	require.Len(t, publisher.eventsNamed(dto.EventPostDeleted), 1)

	err = svc.Delete(context.Background(), 1, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPostServiceFulfillCreditsHelperOnce(t *testing.T) {
	posts := newPostRepoStub(models.Post{ID: 1, UserID: 1, Title: "Fix bike", Status: models.PostStatusOpen})
	users := newUserRepoStub(
		models.User{ID: 1, Name: "Asha"},
		models.User{ID: 2, Name: "Ravi", Karma: 20},
	)
	publisher := &publisherStub{}
	svc := newPostServiceForTest(publisher, posts, users)

	helperID := uint(2)
	fulfilled, err := svc.Fulfill(context.Background(), 1, 1, dto.FulfillRequest{HelperID: &helperID})
	require.NoError(t, err)
	require.Equal(t, models.PostStatusFulfilled, fulfilled.Status)
	require.Equal(t, 30, users.karma[2])

	notifications := publisher.eventsNamed(dto.EventNotification)
	require.Len(t, notifications, 1)
	require.Equal(t, uint(2), notifications[0].target)
	toast, ok := notifications[0].payload.(dto.NotificationPayload)
	require.True(t, ok)
	require.Equal(t, 30, toast.Karma)

	karmaEvents := publisher.eventsNamed(dto.EventKarmaUpdated)
	require.Len(t, karmaEvents, 1)
	require.Equal(t, "broadcast", karmaEvents[0].scope)

	require.Len(t, publisher.eventsNamed(dto.EventPostCompleted), 1)

	// second fulfillment must not double-credit
	_, err = svc.Fulfill(context.Background(), 1, 1, dto.FulfillRequest{HelperID: &helperID})
	require.ErrorIs(t, err, ErrPostAlreadyFulfilled)
	require.Equal(t, 30, users.karma[2])
}

func TestPostServiceFulfillRejectsNonOwnerAndSelfHelper(t *testing.T) {
	posts := newPostRepoStub(models.Post{ID: 1, UserID: 1, Status: models.PostStatusOpen})
	svc := newPostServiceForTest(nil, posts, nil)

	_, err := svc.Fulfill(context.Background(), 2, 1, dto.FulfillRequest{})
	require.ErrorIs(t, err, ErrNotPostOwner)

	ownerID := uint(1)
	_, err = svc.Fulfill(context.Background(), 1, 1, dto.FulfillRequest{HelperID: &ownerID})
	require.ErrorIs(t, err, ErrNotPostOwner)
}

func TestPostServiceFulfillWithoutHelperAwardsNothing(t *testing.T) {
	posts := newPostRepoStub(models.Post{ID: 1, UserID: 1, Status: models.PostStatusOpen})
	users := newUserRepoStub(models.User{ID: 1, Name: "Asha"}, models.User{ID: 2, Name: "Ravi"})
	publisher := &publisherStub{}
	svc := newPostServiceForTest(publisher, posts, users)

	fulfilled, err := svc.Fulfill(context.Background(), 1, 1, dto.FulfillRequest{})
	require.NoError(t, err)
	require.Equal(t, models.PostStatusFulfilled, fulfilled.Status)
	require.Empty(t, publisher.eventsNamed(dto.EventNotification))
	require.Empty(t, publisher.eventsNamed(dto.EventKarmaUpdated))
	require.Equal(t, 0, users.karma[2])
}

func TestBoundingBoxCoversRadius(t *testing.T) {
	origin := geo.Point{Lat: 12.9716, Lng: 77.5946}
	bounds := geo.BoundingBox(origin, 10)
	require.Less(t, bounds.MinLat, origin.Lat)
	require.Greater(t, bounds.MaxLat, origin.Lat)
	require.Less(t, bounds.MinLng, origin.Lng)
	require.Greater(t, bounds.MaxLng, origin.Lng)
}
