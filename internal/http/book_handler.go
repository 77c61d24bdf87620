package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

// Catalog is the catalog surface the book handler serves from.
type Catalog interface {
	Search(ctx context.Context, query string) ([]domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	GetReviews(ctx context.Context, bookID int64) ([]domain.Review, error)
	AddReview(ctx context.Context, review domain.Review) (*domain.Review, error)
	Recommendations(ctx context.Context, userID int64, limit int) ([]domain.Book, error)
}

type BookHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewBookHandler(catalog Catalog, timeout time.Duration) *BookHandler {
	return &BookHandler{catalog: catalog, timeout: timeout}
}

func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	books, err := h.catalog.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, books)
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "book id must be a positive integer")
		return
	}

	book, err := h.catalog.GetBook(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, book)
}

func (h *BookHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	bookID, err := parseID(chi.URLParam(r, "bookId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "book id must be a positive integer")
		return
	}

	reviews, err := h.catalog.GetReviews(ctx, bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, reviews)
}

type AddReviewRequestDTO struct {
	BookID  int64  `json:"bookId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *BookHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddReviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.BookID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "bookId must be positive")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, http.StatusBadRequest, "invalid_rating", "rating must be between 1 and 5")
		return
	}

	created, err := h.catalog.AddReview(ctx, domain.Review{
		BookID:  req.BookID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (h *BookHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	limit := 8
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 50 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 50")
			return
		}
		limit = parsed
	}

	books, err := h.catalog.Recommendations(ctx, userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, books)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
