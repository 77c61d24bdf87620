package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrNoLiveSession     = errors.New("no UPI payment session in flight")
)
