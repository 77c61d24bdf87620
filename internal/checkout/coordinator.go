package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aman7082/Virtual-Bookstore/internal/bookstore"
	"github.com/aman7082/Virtual-Bookstore/internal/countdown"
	"github.com/aman7082/Virtual-Bookstore/internal/domain"
	"github.com/aman7082/Virtual-Bookstore/internal/events"
	"github.com/aman7082/Virtual-Bookstore/internal/session"
	"github.com/aman7082/Virtual-Bookstore/internal/upi"
	"github.com/aman7082/Virtual-Bookstore/pkg/logger"
)

// RemoteStore is the slice of the bookstore API the coordinator needs.
// The remote side owns cart and order state; the coordinator only ever
// overwrites its cached cart with what the server returns.
type RemoteStore interface {
	GetCart(ctx context.Context, userID int64) (domain.Cart, error)
	Checkout(ctx context.Context, userID int64, req bookstore.CheckoutRequest) (*domain.CheckoutResult, error)
}

type Config struct {
	UserID        int64
	PayeeID       string
	PayeeName     string
	WindowSeconds int
	VerifyDelay   time.Duration
	Clock         countdown.Clock
}

// Coordinator turns a cart total into a payment attempt. Card and COD
// go straight to the remote checkout endpoint; UPI runs a payment
// session first and only touches the remote endpoint once the session
// has succeeded. One UPI attempt is live at a time; starting another
// supersedes it.
type Coordinator struct {
	cfg       Config
	remote    RemoteStore
	builder   *upi.Builder
	publisher events.Publisher // optional
	log       *zap.Logger

	mu      sync.Mutex
	cart    domain.Cart
	current *UPIAttempt
}

func NewCoordinator(cfg Config, remote RemoteStore, builder *upi.Builder, publisher events.Publisher, log *zap.Logger) *Coordinator {
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 300
	}
	if cfg.VerifyDelay <= 0 {
		cfg.VerifyDelay = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		cfg:       cfg,
		remote:    remote,
		builder:   builder,
		publisher: publisher,
		log:       log,
	}
}

// Cart returns the cached read-only copy of the remote cart.
func (c *Coordinator) Cart() domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart
}

// RefreshCart re-fetches the authoritative cart and replaces the
// cached copy wholesale.
func (c *Coordinator) RefreshCart(ctx context.Context) (domain.Cart, error) {
	cart, err := c.remote.GetCart(ctx, c.cfg.UserID)
	if err != nil {
		return domain.Cart{}, err
	}

	c.mu.Lock()
	c.cart = cart
	c.mu.Unlock()
	return cart, nil
}

// Checkout runs a full checkout attempt and blocks until it resolves.
// For UPI that means waiting for the payment session to reach a
// terminal state; confirmation and cancellation arrive through
// ConfirmPayment and CancelPayment.
func (c *Coordinator) Checkout(ctx context.Context, method domain.PaymentMethod, shippingAddress string) (*domain.CheckoutResult, error) {
	switch method {
	case domain.MethodCard, domain.MethodCOD:
		return c.checkoutDirect(ctx, method, shippingAddress)
	case domain.MethodUPI:
		attempt, err := c.StartUPI(ctx, shippingAddress)
		if err != nil {
			return nil, err
		}
		<-attempt.Done()
		return attempt.Result()
	default:
		return nil, ErrUnsupportedMethod
	}
}

func (c *Coordinator) checkoutDirect(ctx context.Context, method domain.PaymentMethod, shippingAddress string) (*domain.CheckoutResult, error) {
	cart, err := c.RefreshCart(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	result, err := c.remote.Checkout(ctx, c.cfg.UserID, bookstore.CheckoutRequest{
		Currency:        "usd",
		ShippingAddress: shippingAddress,
		PaymentMethod:   string(method),
		Metadata: map[string]any{
			"orderNote":     "Bookstore purchase",
			"paymentMethod": string(method),
		},
	})
	if err != nil {
		return nil, err
	}

	c.finishSuccessfulCheckout(ctx, method, "usd", cart.Total(), result)
	return result, nil
}

// StartUPI creates the UPI payment attempt for the current cart total
// and returns immediately. A prior live attempt is forced into
// FAILED(superseded) and fully drained before the new session starts.
func (c *Coordinator) StartUPI(ctx context.Context, shippingAddress string) (*UPIAttempt, error) {
	cart, err := c.RefreshCart(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	intent := c.builder.Intent(c.cfg.PayeeID, c.cfg.PayeeName, cart.Total(), "Bookstore Payment")

	c.mu.Lock()
	// the prior session must be terminal before a replacement exists,
	// so its countdown can never race the new one
	if prev := c.current; prev != nil && !prev.Session.State().IsTerminal() {
		prev.Session.Supersede()
		<-prev.Session.Done()
	}

	sess := session.New(session.Config{
		WindowSeconds: c.cfg.WindowSeconds,
		VerifyDelay:   c.cfg.VerifyDelay,
		Clock:         c.cfg.Clock,
	}, c.builder, intent, c.log)

	attempt := &UPIAttempt{
		Session: sess,
		done:    make(chan struct{}),
	}
	c.current = attempt
	c.mu.Unlock()

	go c.settleUPI(attempt, shippingAddress, cart.Total())
	return attempt, nil
}

// settleUPI waits out the session and performs the remote checkout
// only after a confirmed success. A failed, timed-out, cancelled or
// superseded session never causes a charge attempt.
func (c *Coordinator) settleUPI(attempt *UPIAttempt, shippingAddress string, totalUSD float64) {
	defer close(attempt.done)

	<-attempt.Session.Done()

	completion, err := attempt.Session.Result()
	if err != nil {
		attempt.err = err
		return
	}

	// detached from the initiating request: the confirmation may land
	// minutes after StartUPI returned
	ctx := context.Background()

	result, err := c.remote.Checkout(ctx, c.cfg.UserID, bookstore.CheckoutRequest{
		Currency:        "inr",
		ShippingAddress: shippingAddress,
		PaymentMethod:   string(domain.MethodUPI),
		Metadata: map[string]any{
			"orderNote":     "Bookstore purchase",
			"paymentMethod": string(domain.MethodUPI),
			"upiId":         completion.PayeeID,
			"method":        completion.Method,
			"reference":     completion.Reference,
			"amount":        completion.Amount,
		},
	})
	if err != nil {
		attempt.err = err
		return
	}

	c.finishSuccessfulCheckout(ctx, domain.MethodUPI, "inr", totalUSD, result)
	attempt.result = result
}

// finishSuccessfulCheckout reconciles the cart and publishes the order
// event. The remote side has already accepted the order, so failures
// here are logged and swallowed rather than rolled back.
func (c *Coordinator) finishSuccessfulCheckout(ctx context.Context, method domain.PaymentMethod, currency string, total float64, result *domain.CheckoutResult) {
	log := logger.FromContext(ctx, c.log)
	if _, err := c.RefreshCart(ctx); err != nil {
		log.Warn("cart refresh after checkout failed", zap.Error(err))
	}

	if c.publisher == nil {
		return
	}
	event := events.OrderConfirmed{
		UserID:           c.cfg.UserID,
		PaymentMethod:    string(method),
		PaymentProvider:  result.PaymentProvider,
		PaymentReference: result.PaymentReference,
		TotalAmount:      total,
		Currency:         currency,
		ConfirmedAt:      time.Now(),
	}
	if err := c.publisher.PublishOrderConfirmed(ctx, event); err != nil {
		log.Warn("order event publish failed", zap.Error(err))
	}
}

// CurrentUPI returns the live (or most recent) UPI attempt.
func (c *Coordinator) CurrentUPI() *UPIAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ConfirmPayment relays the user's payment confirmation to the live
// session.
func (c *Coordinator) ConfirmPayment() error {
	attempt := c.CurrentUPI()
	if attempt == nil {
		return ErrNoLiveSession
	}
	attempt.Session.Confirm()
	return nil
}

// CancelPayment cancels the live session.
func (c *Coordinator) CancelPayment() error {
	attempt := c.CurrentUPI()
	if attempt == nil {
		return ErrNoLiveSession
	}
	attempt.Session.Cancel()
	return nil
}

// UPIAttempt is one UPI checkout in flight: the payment session plus
// the remote settlement that follows a successful session.
type UPIAttempt struct {
	Session *session.Session

	done   chan struct{}
	result *domain.CheckoutResult
	err    error
}

// Done is closed once the attempt has fully settled (session terminal
// and, on success, the remote checkout call finished).
func (a *UPIAttempt) Done() <-chan struct{} { return a.done }

// Result is valid once Done is closed.
func (a *UPIAttempt) Result() (*domain.CheckoutResult, error) {
	select {
	case <-a.done:
		return a.result, a.err
	default:
		return nil, session.ErrInProgress
	}
}
