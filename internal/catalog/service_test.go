package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aman7082/Virtual-Bookstore/internal/cache"
	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

// MockRemote implements RemoteCatalog for testing
type MockRemote struct {
	Books         map[int64]*domain.Book
	Reviews       []domain.Review
	Recommended   []domain.Book
	Err           error
	BookFetches   atomic.Int64
	RecoFetches   atomic.Int64
	CreatedReview *domain.Review
}

func (m *MockRemote) SearchBooks(_ context.Context, _ string) ([]domain.Book, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Book
	for _, b := range m.Books {
		out = append(out, *b)
	}
	return out, nil
}

func (m *MockRemote) GetBook(_ context.Context, id int64) (*domain.Book, error) {
	m.BookFetches.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Books[id], nil
}

func (m *MockRemote) GetReviews(_ context.Context, _ int64) ([]domain.Review, error) {
	return m.Reviews, m.Err
}

func (m *MockRemote) AddReview(_ context.Context, review domain.Review) (*domain.Review, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.CreatedReview = &review
	return &review, nil
}

func (m *MockRemote) GetRecommendations(_ context.Context, _ int64, limit int) ([]domain.Book, error) {
	m.RecoFetches.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > len(m.Recommended) {
		limit = len(m.Recommended)
	}
	return m.Recommended[:limit], nil
}

func setupService(t *testing.T, remote *MockRemote) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewService(remote, cache.NewRedisCache(client), zap.NewNop())
}

func TestGetBook_CachesAfterFirstFetch(t *testing.T) {
	remote := &MockRemote{Books: map[int64]*domain.Book{
		5: {ID: 5, Title: "Domain-Driven Design", Price: 54.99},
	}}
	svc := setupService(t, remote)
	ctx := context.Background()

	first, err := svc.GetBook(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Domain-Driven Design", first.Title)

	// the async cache fill needs a moment
	assert.Eventually(t, func() bool {
		_, errSecond := svc.GetBook(ctx, 5)
		return errSecond == nil && remote.BookFetches.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetBook_RemoteError(t *testing.T) {
	remote := &MockRemote{Err: assert.AnError}
	svc := setupService(t, remote)

	_, err := svc.GetBook(context.Background(), 1)
	assert.Error(t, err)
}

func TestRecommendations_ServedFromCacheWhenEnough(t *testing.T) {
	remote := &MockRemote{Recommended: []domain.Book{{ID: 1}, {ID: 2}, {ID: 3}}}
	svc := setupService(t, remote)
	ctx := context.Background()

	got, err := svc.Recommendations(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	assert.Eventually(t, func() bool {
		smaller, errSmaller := svc.Recommendations(ctx, 1, 2)
		return errSmaller == nil && len(smaller) == 2 && remote.RecoFetches.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecommendations_RefetchesWhenCacheTooSmall(t *testing.T) {
	remote := &MockRemote{Recommended: []domain.Book{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}}
	svc := setupService(t, remote)
	ctx := context.Background()

	_, err := svc.Recommendations(ctx, 1, 2)
	require.NoError(t, err)

	got, err := svc.Recommendations(ctx, 1, 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.GreaterOrEqual(t, remote.RecoFetches.Load(), int64(2))
}

func TestAddReview_Passthrough(t *testing.T) {
	remote := &MockRemote{}
	svc := setupService(t, remote)

	review := domain.Review{BookID: 1, UserID: 1, Rating: 5, Comment: "great read"}
	created, err := svc.AddReview(context.Background(), review)

	require.NoError(t, err)
	assert.Equal(t, review, *created)
	assert.Equal(t, review, *remote.CreatedReview)
}
