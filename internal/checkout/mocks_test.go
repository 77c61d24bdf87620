package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aman7082/Virtual-Bookstore/internal/bookstore"
	"github.com/aman7082/Virtual-Bookstore/internal/domain"
	"github.com/aman7082/Virtual-Bookstore/internal/events"
)

// MockRemoteStore implements RemoteStore for testing. After a
// checkout it serves CartAfterCheckout, mimicking the server-side
// cart clearing.
type MockRemoteStore struct {
	mu sync.Mutex

	Cart              domain.Cart
	CartErr           error
	CartAfterCheckout domain.Cart
	RefreshErr        error // returned by GetCart after a checkout

	CheckoutResult   *domain.CheckoutResult
	CheckoutErr      error
	CheckoutRequests []bookstore.CheckoutRequest

	checkedOut bool
}

func (m *MockRemoteStore) GetCart(_ context.Context, _ int64) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkedOut {
		if m.RefreshErr != nil {
			return domain.Cart{}, m.RefreshErr
		}
		return m.CartAfterCheckout, nil
	}
	if m.CartErr != nil {
		return domain.Cart{}, m.CartErr
	}
	return m.Cart, nil
}

func (m *MockRemoteStore) Checkout(_ context.Context, _ int64, req bookstore.CheckoutRequest) (*domain.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutRequests = append(m.CheckoutRequests, req)
	if m.CheckoutErr != nil {
		return nil, m.CheckoutErr
	}
	m.checkedOut = true
	return m.CheckoutResult, nil
}

func (m *MockRemoteStore) CheckoutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CheckoutRequests)
}

func (m *MockRemoteStore) LastRequest() bookstore.CheckoutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CheckoutRequests[len(m.CheckoutRequests)-1]
}

// MockPublisher implements events.Publisher for testing
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.OrderConfirmed
	Err    error
}

func (m *MockPublisher) PublishOrderConfirmed(_ context.Context, event events.OrderConfirmed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Published() []events.OrderConfirmed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.OrderConfirmed(nil), m.Events...)
}

// fakeClock hands out one buffered channel per After call and lets the
// test fire them in registration order.
type fakeClock struct {
	mu      sync.Mutex
	waiters []chan time.Time
	next    int
}

func (f *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	f.waiters = append(f.waiters, ch)
	f.mu.Unlock()
	return ch
}

func (f *fakeClock) fireNext(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.mu.Lock()
		if f.next < len(f.waiters) {
			ch := f.waiters[f.next]
			f.next++
			f.mu.Unlock()
			ch <- time.Time{}
			return
		}
		f.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("no pending clock waiter")
		}
		time.Sleep(time.Millisecond)
	}
}
