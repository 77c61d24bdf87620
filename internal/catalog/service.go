package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aman7082/Virtual-Bookstore/internal/cache"
	"github.com/aman7082/Virtual-Bookstore/internal/domain"
	"github.com/aman7082/Virtual-Bookstore/pkg/logger"
)

// RemoteCatalog is the remote bookstore surface the catalog reads from.
type RemoteCatalog interface {
	SearchBooks(ctx context.Context, query string) ([]domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	GetReviews(ctx context.Context, bookID int64) ([]domain.Review, error)
	AddReview(ctx context.Context, review domain.Review) (*domain.Review, error)
	GetRecommendations(ctx context.Context, userID int64, limit int) ([]domain.Book, error)
}

type Service struct {
	remote RemoteCatalog
	cache  cache.CatalogCache
	sfg    singleflight.Group // Prevents cache stampede
	log    *zap.Logger
}

func NewService(remote RemoteCatalog, catalogCache cache.CatalogCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		remote: remote,
		cache:  catalogCache,
		log:    log,
	}
}

// Search always goes to the remote service; result sets vary per query
// and are not worth caching for a demo-sized catalog.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Book, error) {
	return s.remote.SearchBooks(ctx, query)
}

func (s *Service) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	log := logger.FromContext(ctx, s.log)
	v, err, _ := s.sfg.Do(fmt.Sprintf("book:%d", id), func() (interface{}, error) {
		book, errCache := s.cache.GetBook(ctx, id)
		if errCache == nil {
			return book, nil
		}
		if !errors.Is(errCache, cache.ErrCacheMiss) {
			log.Warn("book cache get failed", zap.Error(errCache))
		}

		book, errGet := s.remote.GetBook(ctx, id)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.SetBook(context.Background(), book); errSet != nil {
				log.Warn("book cache set failed", zap.Error(errSet))
			}
		}()

		return book, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Book), nil
}

func (s *Service) GetReviews(ctx context.Context, bookID int64) ([]domain.Review, error) {
	return s.remote.GetReviews(ctx, bookID)
}

func (s *Service) AddReview(ctx context.Context, review domain.Review) (*domain.Review, error) {
	return s.remote.AddReview(ctx, review)
}

func (s *Service) Recommendations(ctx context.Context, userID int64, limit int) ([]domain.Book, error) {
	log := logger.FromContext(ctx, s.log)
	cached, errCache := s.cache.GetRecommendations(ctx, userID)
	if errCache == nil && len(cached) >= limit {
		return cached[:limit], nil
	}
	if errCache != nil && !errors.Is(errCache, cache.ErrCacheMiss) {
		log.Warn("recommendations cache get failed", zap.Error(errCache))
	}

	books, err := s.remote.GetRecommendations(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	go func() {
		if errSet := s.cache.SetRecommendations(context.Background(), userID, books); errSet != nil {
			log.Warn("recommendations cache set failed", zap.Error(errSet))
		}
	}()

	return books, nil
}
