package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineAmount(t *testing.T) {
	item := CartItem{Book: &Book{Price: 10.00}, Quantity: 2}
	assert.Equal(t, 20.00, item.LineAmount())
}

func TestLineAmount_MissingBook(t *testing.T) {
	item := CartItem{Quantity: 3}
	assert.Equal(t, 0.0, item.LineAmount())
}

func TestLineAmount_ZeroQuantity(t *testing.T) {
	item := CartItem{Book: &Book{Price: 10.00}, Quantity: 0}
	assert.Equal(t, 0.0, item.LineAmount())
}

func TestTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{Book: &Book{Price: 10.00}, Quantity: 2},
		{Book: &Book{Price: 5.50}, Quantity: 1},
	}}
	assert.Equal(t, 25.50, cart.Total())
}

func TestTotal_EmptyCart(t *testing.T) {
	assert.Equal(t, 0.0, Cart{}.Total())
	assert.True(t, Cart{}.IsEmpty())
}

func TestTotal_IsSumOfLineAmounts(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{Book: &Book{Price: 12.99}, Quantity: 1},
		{Book: &Book{Price: 7.25}, Quantity: 4},
		{Quantity: 2}, // book not loaded yet
	}}

	var sum float64
	for _, item := range cart.Items {
		sum += item.LineAmount()
	}
	assert.Equal(t, sum, cart.Total())
}

func TestSessionState_IsTerminal(t *testing.T) {
	assert.False(t, SessionPending.IsTerminal())
	assert.False(t, SessionVerifying.IsTerminal())
	assert.True(t, SessionSucceeded.IsTerminal())
	assert.True(t, SessionFailed.IsTerminal())
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, MethodCard.Valid())
	assert.True(t, MethodUPI.Valid())
	assert.True(t, MethodCOD.Valid())
	assert.False(t, PaymentMethod("paypal").Valid())
}
