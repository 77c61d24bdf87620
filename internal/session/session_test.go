package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aman7082/Virtual-Bookstore/internal/domain"
	"github.com/aman7082/Virtual-Bookstore/internal/upi"
)

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

// fireNext releases the oldest unfired waiter, waiting for one to be
// registered if necessary.
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

func testIntent() domain.PaymentIntent {
	return domain.PaymentIntent{
		PayeeID:   "amaubedwal@okaxis",
		PayeeName: "Aman Verma",
		Amount:    2116.50,
		Currency:  "INR",
		Memo:      "Bookstore Payment",
	}
}

func newTestSession(t *testing.T, window int) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	cfg := Config{
		WindowSeconds: window,
		VerifyDelay:   3 * time.Second,
		Clock:         clock,
	}
	s := New(cfg, upi.NewBuilder(upi.DefaultExchangeRate), testIntent(), zap.NewNop())
	return s, clock
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not reach a terminal state")
	}
}

func TestNew_StartsPendingWithPayload(t *testing.T) {
	s, _ := newTestSession(t, 300)
	defer s.Cancel()

	assert.Equal(t, domain.SessionPending, s.State())
	assert.Equal(t, 300, s.Remaining())
	assert.Contains(t, s.Payload(), "upi://pay?payee=amaubedwal%40okaxis")
	assert.Contains(t, s.Payload(), "amount=2116.50")
}

func TestTicksUpdateRemaining(t *testing.T) {
	s, clock := newTestSession(t, 300)
	defer s.Cancel()

	for i := 0; i < 10; i++ {
		clock.fireNext(t)
	}

	assert.Eventually(t, func() bool { return s.Remaining() == 290 },
		2*time.Second, time.Millisecond)
	assert.Equal(t, domain.SessionPending, s.State())
}

func TestExpiryFailsWithTimeout(t *testing.T) {
	s, clock := newTestSession(t, 2)

	clock.fireNext(t)
	clock.fireNext(t)

	waitDone(t, s)
	assert.Equal(t, domain.SessionFailed, s.State())
	assert.Equal(t, domain.FailTimeout, s.FailReason())
	assert.Equal(t, 0, s.Remaining())

	_, err := s.Result()
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestConfirmAfterExpiryIsNoOp(t *testing.T) {
	s, clock := newTestSession(t, 1)

	clock.fireNext(t)
	waitDone(t, s)

	s.Confirm()
	s.Confirm()

	assert.Equal(t, domain.SessionFailed, s.State())
	assert.Equal(t, domain.FailTimeout, s.FailReason())
}

func TestConfirmThenVerifySucceeds(t *testing.T) {
	s, clock := newTestSession(t, 300)

	// ten seconds elapse, then the user confirms
	for i := 0; i < 10; i++ {
		clock.fireNext(t)
	}
	assert.Eventually(t, func() bool { return s.Remaining() == 290 },
		2*time.Second, time.Millisecond)

	s.Confirm()
	assert.Eventually(t, func() bool { return s.State() == domain.SessionVerifying },
		2*time.Second, time.Millisecond)

	// the countdown no longer ticks while verification runs
	assert.Equal(t, 290, s.Remaining())

	// one fire for the abandoned countdown waiter, one for the
	// simulated verification delay
	clock.fireNext(t)
	clock.fireNext(t)
	waitDone(t, s)

	assert.Equal(t, domain.SessionSucceeded, s.State())
	assert.Equal(t, 290, s.Remaining())

	result, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "UPI", result.Method)
	assert.NotEmpty(t, result.Reference)
	assert.Contains(t, result.Reference, "UPI-")
	assert.Equal(t, "2116.50", result.Amount)
	assert.Equal(t, "amaubedwal@okaxis", result.PayeeID)
}

func TestConfirmIsIdempotentWhileVerifying(t *testing.T) {
	s, clock := newTestSession(t, 300)

	s.Confirm()
	assert.Eventually(t, func() bool { return s.State() == domain.SessionVerifying },
		2*time.Second, time.Millisecond)

	s.Confirm() // second confirmation changes nothing
	assert.Equal(t, domain.SessionVerifying, s.State())

	clock.fireNext(t) // countdown waiter registered before the confirm
	clock.fireNext(t) // verification delay
	waitDone(t, s)
	assert.Equal(t, domain.SessionSucceeded, s.State())
}

func TestCancelWhilePending(t *testing.T) {
	s, _ := newTestSession(t, 300)

	s.Cancel()
	waitDone(t, s)

	assert.Equal(t, domain.SessionFailed, s.State())
	assert.Equal(t, domain.FailCancelled, s.FailReason())

	_, err := s.Result()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCancelWhileVerifying(t *testing.T) {
	s, _ := newTestSession(t, 300)

	s.Confirm()
	assert.Eventually(t, func() bool { return s.State() == domain.SessionVerifying },
		2*time.Second, time.Millisecond)

	s.Cancel()
	waitDone(t, s)

	assert.Equal(t, domain.SessionFailed, s.State())
	assert.Equal(t, domain.FailCancelled, s.FailReason())
}

func TestSupersede(t *testing.T) {
	s, _ := newTestSession(t, 300)

	s.Supersede()
	waitDone(t, s)

	assert.Equal(t, domain.SessionFailed, s.State())
	assert.Equal(t, domain.FailSuperseded, s.FailReason())

	_, err := s.Result()
	assert.ErrorIs(t, err, ErrSuperseded)
}

func TestTerminalStateAbsorbsAllEvents(t *testing.T) {
	s, _ := newTestSession(t, 300)

	s.Cancel()
	waitDone(t, s)

	// none of these may move the session or panic
	s.Confirm()
	s.Cancel()
	s.Supersede()

	assert.Equal(t, domain.SessionFailed, s.State())
	assert.Equal(t, domain.FailCancelled, s.FailReason())
}

func TestResultBeforeTerminal(t *testing.T) {
	s, _ := newTestSession(t, 300)
	defer s.Cancel()

	_, err := s.Result()
	assert.ErrorIs(t, err, ErrInProgress)
}
