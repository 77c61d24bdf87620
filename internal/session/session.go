package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aman7082/Virtual-Bookstore/internal/countdown"
	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

var (
	ErrTimeout    = errors.New("payment window expired before confirmation")
	ErrCancelled  = errors.New("payment session cancelled")
	ErrSuperseded = errors.New("payment session superseded by a newer attempt")
	ErrInProgress = errors.New("payment session has not reached a terminal state")
)

// PayloadBuilder renders a payment intent as its deep-link string.
type PayloadBuilder interface {
	Build(intent domain.PaymentIntent) string
}

type Config struct {
	WindowSeconds int           // payment window, 300s in production
	VerifyDelay   time.Duration // simulated verification delay
	Clock         countdown.Clock
}

type command int

const (
	cmdConfirm command = iota
	cmdCancel
	cmdSupersede
)

// Session drives one UPI payment attempt: payload generation, the
// countdown window, user confirmation and simulated verification.
// All events funnel through a single run loop, so exactly one terminal
// transition ever happens; events arriving after that are no-ops.
type Session struct {
	cfg     Config
	intent  domain.PaymentIntent
	payload string
	log     *zap.Logger

	cmds      chan command
	done      chan struct{}
	remaining atomic.Int64

	mu     sync.Mutex
	state  domain.SessionState
	reason domain.FailReason
	result *domain.CompletionPayload
}

// New builds the payment payload, starts the countdown and returns the
// live session in the Pending state.
func New(cfg Config, builder PayloadBuilder, intent domain.PaymentIntent, log *zap.Logger) *Session {
	if cfg.Clock == nil {
		cfg.Clock = countdown.SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		cfg:     cfg,
		intent:  intent,
		payload: builder.Build(intent),
		log:     log,
		cmds:    make(chan command),
		done:    make(chan struct{}),
		state:   domain.SessionPending,
	}
	s.remaining.Store(int64(cfg.WindowSeconds))

	go s.run()
	return s
}

func (s *Session) run() {
	cd := countdown.Start(s.cfg.Clock, s.cfg.WindowSeconds)
	defer cd.Stop()

	// nilled out once the countdown is stopped so late emissions are
	// never observed
	tickC := cd.Ticks()
	expiredC := cd.Expired()
	var verifyC <-chan time.Time

	for {
		select {
		case remaining := <-tickC:
			s.remaining.Store(int64(remaining))

		case <-expiredC:
			s.remaining.Store(0)
			s.fail(domain.FailTimeout)
			return

		case cmd := <-s.cmds:
			switch cmd {
			case cmdConfirm:
				// The window winning a race against a confirmation
				// always resolves in the window's favor.
				select {
				case <-cd.Expired():
					s.remaining.Store(0)
					s.fail(domain.FailTimeout)
					return
				default:
				}
				if s.State() != domain.SessionPending {
					continue
				}
				s.setState(domain.SessionAwaitingConfirmation)
				cd.Stop()
				tickC, expiredC = nil, nil
				s.setState(domain.SessionVerifying)
				verifyC = s.cfg.Clock.After(s.cfg.VerifyDelay)
				s.log.Info("payment confirmed, verifying",
					zap.String("payee", s.intent.PayeeID))

			case cmdCancel:
				s.fail(domain.FailCancelled)
				return

			case cmdSupersede:
				s.fail(domain.FailSuperseded)
				return
			}

		case <-verifyC:
			s.succeed()
			return
		}
	}
}

// Payload is the deep-link string rendered at creation.
func (s *Session) Payload() string { return s.payload }

// Remaining reports the seconds left in the payment window, for
// display.
func (s *Session) Remaining() int { return int(s.remaining.Load()) }

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailReason is meaningful only when State is FAILED.
func (s *Session) FailReason() domain.FailReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Confirm reports that the user claims to have paid. A no-op once the
// session is terminal.
func (s *Session) Confirm() { s.send(cmdConfirm) }

// Cancel fails the session on behalf of the user or caller. A no-op
// once the session is terminal.
func (s *Session) Cancel() { s.send(cmdCancel) }

// Supersede fails the session because a newer attempt replaces it.
func (s *Session) Supersede() { s.send(cmdSupersede) }

func (s *Session) send(cmd command) {
	select {
	case s.cmds <- cmd:
	case <-s.done:
	}
}

// Result returns the completion payload after SUCCEEDED, or the error
// matching the failure reason. ErrInProgress before a terminal state.
func (s *Session) Result() (*domain.CompletionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.SessionSucceeded:
		return s.result, nil
	case domain.SessionFailed:
		return nil, reasonError(s.reason)
	default:
		return nil, ErrInProgress
	}
}

func reasonError(reason domain.FailReason) error {
	switch reason {
	case domain.FailCancelled:
		return ErrCancelled
	case domain.FailSuperseded:
		return ErrSuperseded
	default:
		return ErrTimeout
	}
}

func (s *Session) setState(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) fail(reason domain.FailReason) {
	s.mu.Lock()
	s.state = domain.SessionFailed
	s.reason = reason
	s.mu.Unlock()

	s.log.Info("payment session failed", zap.String("reason", string(reason)))
	close(s.done)
}

func (s *Session) succeed() {
	payload := &domain.CompletionPayload{
		Method:    "UPI",
		Reference: newReference(),
		Amount:    fmt.Sprintf("%.2f", s.intent.Amount),
		PayeeID:   s.intent.PayeeID,
	}

	s.mu.Lock()
	s.state = domain.SessionSucceeded
	s.result = payload
	s.mu.Unlock()

	s.log.Info("payment session succeeded", zap.String("reference", payload.Reference))
	close(s.done)
}

// newReference generates a display/audit token: time-based with a
// random component, not a security credential.
func newReference() string {
	return fmt.Sprintf("UPI-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
