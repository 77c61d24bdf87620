package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	data, err := r.client.Get(ctx, bookKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var book domain.Book
	if err2 := json.Unmarshal(data, &book); err2 != nil {
		return nil, fmt.Errorf("unmarshal book failed: %w", err2)
	}
	return &book, nil
}

func (r *RedisCache) SetBook(ctx context.Context, book *domain.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book failed: %w", err)
	}

	if errSet := r.client.Set(ctx, bookKey(book.ID), data, r.ttl()).Err(); errSet != nil {
		return fmt.Errorf("redis set failed: %w", errSet)
	}
	return nil
}

func (r *RedisCache) GetRecommendations(ctx context.Context, userID int64) ([]domain.Book, error) {
	data, err := r.client.Get(ctx, recommendationsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var books []domain.Book
	if err2 := json.Unmarshal(data, &books); err2 != nil {
		return nil, fmt.Errorf("unmarshal recommendations failed: %w", err2)
	}
	return books, nil
}

func (r *RedisCache) SetRecommendations(ctx context.Context, userID int64, books []domain.Book) error {
	data, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("marshal recommendations failed: %w", err)
	}

	if errSet := r.client.Set(ctx, recommendationsKey(userID), data, r.ttl()).Err(); errSet != nil {
		return fmt.Errorf("redis set failed: %w", errSet)
	}
	return nil
}

// ttl adds jitter so a burst of fills does not expire at once.
func (r *RedisCache) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
}

func bookKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}

func recommendationsKey(userID int64) string {
	return fmt.Sprintf("recommendations:%d", userID)
}
