package domain

// PaymentIntent describes what is being charged, to whom, before any
// attempt is made. Immutable once constructed.
type PaymentIntent struct {
	PayeeID   string
	PayeeName string
	Amount    float64
	Currency  string
	Memo      string
}

type SessionState string

const (
	SessionPending              SessionState = "PENDING"
	SessionAwaitingConfirmation SessionState = "AWAITING_CONFIRMATION"
	SessionVerifying            SessionState = "VERIFYING"
	SessionSucceeded            SessionState = "SUCCEEDED"
	SessionFailed               SessionState = "FAILED"
)

func (s SessionState) IsTerminal() bool {
	return s == SessionSucceeded || s == SessionFailed
}

func (s SessionState) String() string {
	return string(s)
}

// FailReason qualifies a FAILED session.
type FailReason string

const (
	FailTimeout    FailReason = "TIMEOUT"
	FailCancelled  FailReason = "CANCELLED"
	FailSuperseded FailReason = "SUPERSEDED"
)

// CompletionPayload is emitted by a session that reached SUCCEEDED and
// is forwarded as checkout metadata.
type CompletionPayload struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	PayeeID   string `json:"upiId"`
}

type PaymentMethod string

const (
	MethodCard PaymentMethod = "card"
	MethodUPI  PaymentMethod = "upi"
	MethodCOD  PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCard || m == MethodUPI || m == MethodCOD
}

// CheckoutResult is the remote order service's acknowledgment. Opaque
// to the storefront beyond display.
type CheckoutResult struct {
	Status           string  `json:"status"`
	PaymentProvider  string  `json:"paymentProvider"`
	PaymentReference string  `json:"paymentReference"`
	OrderID          int64   `json:"orderId,omitempty"`
	TotalAmount      float64 `json:"totalAmount,omitempty"`
}
