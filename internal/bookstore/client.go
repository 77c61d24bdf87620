package bookstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

// CheckoutRequest is the remote order service's checkout contract.
type CheckoutRequest struct {
	Currency        string         `json:"currency"`
	ShippingAddress string         `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	Metadata        map[string]any `json:"metadata"`
}

// Client calls the remote bookstore REST API. All storefront state
// lives on the remote side; this client never caches.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "bookstore-api",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// 4xx responses are caller mistakes, only transport
			// failures and 5xx count against the breaker
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var se *statusError
				return errors.As(err, &se) && !se.isServerSide()
			},
		}),
	}
}

func (c *Client) SearchBooks(ctx context.Context, query string) ([]domain.Book, error) {
	var books []domain.Book
	path := "/books"
	if query != "" {
		path = "/books?q=" + url.QueryEscape(query)
	}
	if err := c.do(ctx, "search books", http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	var book domain.Book
	if err := c.do(ctx, "get book", http.MethodGet, fmt.Sprintf("/books/%d", id), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) GetReviews(ctx context.Context, bookID int64) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := c.do(ctx, "get reviews", http.MethodGet, fmt.Sprintf("/reviews/book/%d", bookID), nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) AddReview(ctx context.Context, review domain.Review) (*domain.Review, error) {
	var created domain.Review
	if err := c.do(ctx, "add review", http.MethodPost, "/reviews", review, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetCart fetches the authoritative cart. Callers replace any cached
// copy wholesale with the result.
func (c *Client) GetCart(ctx context.Context, userID int64) (domain.Cart, error) {
	var items []domain.CartItem
	if err := c.do(ctx, "get cart", http.MethodGet, fmt.Sprintf("/cart/%d", userID), nil, &items); err != nil {
		return domain.Cart{}, err
	}
	return domain.Cart{Items: items}, nil
}

func (c *Client) AddToCart(ctx context.Context, userID, bookID int64, quantity int) error {
	body := map[string]any{"bookId": bookID, "quantity": quantity}
	return c.do(ctx, "add to cart", http.MethodPost, fmt.Sprintf("/cart/%d", userID), body, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	return c.do(ctx, "remove from cart", http.MethodDelete, fmt.Sprintf("/cart/%d/%d", userID, itemID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context, userID int64) error {
	return c.do(ctx, "clear cart", http.MethodDelete, fmt.Sprintf("/cart/%d", userID), nil, nil)
}

func (c *Client) Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*domain.CheckoutResult, error) {
	var result domain.CheckoutResult
	if err := c.do(ctx, "checkout", http.MethodPost, fmt.Sprintf("/orders/%d/checkout", userID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetRecommendations(ctx context.Context, userID int64, limit int) ([]domain.Book, error) {
	var books []domain.Book
	path := fmt.Sprintf("/recommendations/%d?limit=%d", userID, limit)
	if err := c.do(ctx, "get recommendations", http.MethodGet, path, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		resp, errDo := c.http.Do(req)
		if errDo != nil {
			return nil, errDo
		}
		defer resp.Body.Close()

		raw, errRead := io.ReadAll(resp.Body)
		if errRead != nil {
			return nil, errRead
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &statusError{code: resp.StatusCode}
		}
		return raw, nil
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			cause := error(errors.New(http.StatusText(se.code)))
			if se.code == http.StatusNotFound {
				cause = ErrNotFound
			}
			return &RemoteError{Op: op, StatusCode: se.code, Err: cause}
		}
		return &RemoteError{Op: op, Err: err}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (e *statusError) isServerSide() bool { return e.code >= http.StatusInternalServerError }
