package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/pkg/config"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestNewGatewaySelection(t *testing.T) {
	gw := NewGateway(config.PaymentConfig{Currency: "INR"})
	assert.IsType(t, &StubGateway{}, gw)

	gw = NewGateway(config.PaymentConfig{KeyID: "key_id", KeySecret: "key_secret", Currency: "INR"})
	assert.IsType(t, &HMACGateway{}, gw)
}

func TestHMACGatewayCreateOrder(t *testing.T) {
	gw := &HMACGateway{keyID: "key_id", keySecret: "key_secret", currency: "INR"}

	order, err := gw.CreateOrder(2500, "")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, int64(2500), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "key_id", order.KeyID)

	_, err = gw.CreateOrder(0, "INR")
	assert.Error(t, err)
}

func TestHMACGatewayVerifySignature(t *testing.T) {
	gw := &HMACGateway{keySecret: "key_secret"}

	sig := sign("key_secret", "order_1", "pay_1")
	assert.True(t, gw.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, gw.VerifySignature("order_1", "pay_1", "forged"))
	assert.False(t, gw.VerifySignature("order_1", "pay_2", sig))
	assert.False(t, gw.VerifySignature("", "pay_1", sig))
}

func TestStubGatewayApprovesAnySignature(t *testing.T) {
	gw := &StubGateway{currency: "INR"}

	order, err := gw.CreateOrder(100, "")
	require.NoError(t, err)
	assert.Equal(t, "INR", order.Currency)

	assert.True(t, gw.VerifySignature("order_1", "pay_1", "anything"))
	assert.False(t, gw.VerifySignature("", "pay_1", "anything"))
}
