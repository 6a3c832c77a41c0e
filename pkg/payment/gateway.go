package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shrutiigupta24/institute-api/pkg/config"
)

// Order is the gateway-side reference for a payment attempt.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	KeyID    string
}

// Gateway abstracts the external payment provider. The services only depend
// on order creation and signature verification; settlement happens outside.
type Gateway interface {
	CreateOrder(amount int64, currency string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// HMACGateway signs and verifies callbacks with a shared key secret, the
// scheme used by Razorpay-style providers: HMAC-SHA256 over "orderID|paymentID".
type HMACGateway struct {
	keyID     string
	keySecret string
	currency  string
}

// NewGateway selects the HMAC implementation when credentials are configured
// and falls back to the development stub otherwise.
func NewGateway(cfg config.PaymentConfig) Gateway {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return &StubGateway{currency: cfg.Currency}
	}
	return &HMACGateway{keyID: cfg.KeyID, keySecret: cfg.KeySecret, currency: cfg.Currency}
}

// CreateOrder issues a new order reference.
func (g *HMACGateway) CreateOrder(amount int64, currency string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}
	if currency == "" {
		currency = g.currency
	}
	return &Order{
		ID:       "order_" + uuid.NewString(),
		Amount:   amount,
		Currency: currency,
		KeyID:    g.keyID,
	}, nil
}

// VerifySignature checks the callback signature in constant time.
func (g *HMACGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// StubGateway approves everything; used when no gateway keys are configured.
type StubGateway struct {
	currency string
}

// CreateOrder returns a mock order reference.
func (g *StubGateway) CreateOrder(amount int64, currency string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}
	if currency == "" {
		currency = g.currency
	}
	return &Order{
		ID:       fmt.Sprintf("order_mock_%d", time.Now().UnixNano()),
		Amount:   amount,
		Currency: currency,
		KeyID:    "mock_key",
	}, nil
}

// VerifySignature always succeeds for the stub.
func (g *StubGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return orderID != "" && paymentID != ""
}
