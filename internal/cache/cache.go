package cache

import (
	"context"
	"errors"

	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

// CatalogCache holds remote catalog reads. Catalog data is owned by
// the remote service, so entries only ever age out via TTL.
type CatalogCache interface {
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	SetBook(ctx context.Context, book *domain.Book) error
	GetRecommendations(ctx context.Context, userID int64) ([]domain.Book, error)
	SetRecommendations(ctx context.Context, userID int64, books []domain.Book) error
}

var ErrCacheMiss = errors.New("cache miss")
