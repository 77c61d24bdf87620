package upi

import (
	"fmt"
	"net/url"

	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

// DefaultExchangeRate is the fixed USD to INR display rate. It is a
// named configuration value so callers and tests can override it.
const DefaultExchangeRate = 83.0

// Builder renders payment intents as upi://pay deep links. The payload
// is also displayed as a scannable code, so identical intents must
// produce byte-identical strings.
type Builder struct {
	rate float64
}

func NewBuilder(exchangeRate float64) *Builder {
	if exchangeRate <= 0 {
		exchangeRate = DefaultExchangeRate
	}
	return &Builder{rate: exchangeRate}
}

// ConvertAmount applies the fixed rate for intents priced in a
// currency other than INR.
func (b *Builder) ConvertAmount(amount float64, fromCurrency string) float64 {
	if fromCurrency == "INR" {
		return amount
	}
	return amount * b.rate
}

// Build produces the payment-request string. Parameter order is fixed
// by the scheme: payee, name, amount, currency, memo. Free-text fields
// are percent-encoded and the amount carries exactly two decimals.
func (b *Builder) Build(intent domain.PaymentIntent) string {
	return fmt.Sprintf("upi://pay?payee=%s&name=%s&amount=%.2f&currency=%s&memo=%s",
		url.QueryEscape(intent.PayeeID),
		url.QueryEscape(intent.PayeeName),
		intent.Amount,
		url.QueryEscape(intent.Currency),
		url.QueryEscape(intent.Memo),
	)
}

// Intent constructs the INR payment intent for a cart total priced in
// USD.
func (b *Builder) Intent(payeeID, payeeName string, totalUSD float64, memo string) domain.PaymentIntent {
	return domain.PaymentIntent{
		PayeeID:   payeeID,
		PayeeName: payeeName,
		Amount:    b.ConvertAmount(totalUSD, "USD"),
		Currency:  "INR",
		Memo:      memo,
	}
}
