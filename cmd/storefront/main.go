package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/aman7082/Virtual-Bookstore/internal/bookstore"
	"github.com/aman7082/Virtual-Bookstore/internal/cache"
	"github.com/aman7082/Virtual-Bookstore/internal/catalog"
	"github.com/aman7082/Virtual-Bookstore/internal/checkout"
	"github.com/aman7082/Virtual-Bookstore/internal/events"
	h "github.com/aman7082/Virtual-Bookstore/internal/http"
	"github.com/aman7082/Virtual-Bookstore/internal/upi"
	"github.com/aman7082/Virtual-Bookstore/pkg/logger"
)

type Config struct {
	HTTPPort        string
	BookstoreAPIURL string
	RedisAddr       string
	KafkaBrokers    string
	DemoUserID      int64
	PayeeID         string
	PayeeName       string
	ExchangeRate    float64
	WindowSeconds   int
	VerifyDelay     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		BookstoreAPIURL: getEnv("BOOKSTORE_API_URL", "http://localhost:9090/api"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		DemoUserID:      1,
		PayeeID:         getEnv("UPI_PAYEE_ID", "amaubedwal@okaxis"),
		PayeeName:       getEnv("UPI_PAYEE_NAME", "Aman Verma"),
		ExchangeRate:    getEnvFloat("UPI_EXCHANGE_RATE", upi.DefaultExchangeRate),
		WindowSeconds:   getEnvInt("UPI_WINDOW_SECONDS", 300),
		VerifyDelay:     time.Duration(getEnvInt("UPI_VERIFY_SECONDS", 3)) * time.Second,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	zl, err := logger.New()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	store := bookstore.NewClient(cfg.BookstoreAPIURL)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	catalogCache := cache.NewRedisCache(redisClient)

	catalogService := catalog.NewService(store, catalogCache, zl)

	var publisher events.Publisher
	if cfg.KafkaBrokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(splitBrokers(cfg.KafkaBrokers)...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	coordinator := checkout.NewCoordinator(checkout.Config{
		UserID:        cfg.DemoUserID,
		PayeeID:       cfg.PayeeID,
		PayeeName:     cfg.PayeeName,
		WindowSeconds: cfg.WindowSeconds,
		VerifyDelay:   cfg.VerifyDelay,
	}, store, upi.NewBuilder(cfg.ExchangeRate), publisher, zl)

	bookHandler := h.NewBookHandler(catalogService, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(store, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(coordinator, cfg.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.DemoAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/books", bookHandler.Search)
		r.Get("/books/{id}", bookHandler.GetBook)
		r.Get("/reviews/book/{bookId}", bookHandler.GetReviews)
		r.Post("/reviews", bookHandler.AddReview)
		r.Get("/recommendations", bookHandler.Recommendations)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{itemId}", cartHandler.RemoveItem)
			r.Delete("/", cartHandler.ClearCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Checkout)
			r.Route("/upi", func(r chi.Router) {
				r.Post("/", checkoutHandler.StartUPIPayment)
				r.Get("/", checkoutHandler.UPIStatus)
				r.Post("/confirm", checkoutHandler.ConfirmUPIPayment)
				r.Post("/cancel", checkoutHandler.CancelUPIPayment)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server exited")
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
