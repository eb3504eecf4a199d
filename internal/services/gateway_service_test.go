package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyreserve/flight-booking-backend/internal/config"
)

func newTestGateway(webhookSecret string) *GatewayService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return NewGatewayService(&config.PaymentConfig{
		Environment:   "sandbox",
		MerchantKey:   "mk_test_key",
		MerchantToken: "mt_test_token",
		WebhookSecret: webhookSecret,
	}, logger)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGenerateCheckValue(t *testing.T) {
	svc := newTestGateway("")

	first := svc.GenerateCheckValue("SR-ABC12345", "45000.00", "LKR")
	second := svc.GenerateCheckValue("SR-ABC12345", "45000.00", "LKR")

	// SHA-512 hex is 128 chars, uppercase
	assert.Len(t, first, 128)
	assert.Equal(t, first, second)
	assert.Regexp(t, `^[0-9A-F]+$`, first)

	// Any input change must change the check value
	differentInvoice := svc.GenerateCheckValue("SR-XYZ99999", "45000.00", "LKR")
	differentAmount := svc.GenerateCheckValue("SR-ABC12345", "45000.01", "LKR")
	assert.NotEqual(t, first, differentInvoice)
	assert.NotEqual(t, first, differentAmount)
}

func TestVerifyWebhook(t *testing.T) {
	const secret = "whsec_test_secret"

	body := []byte(`{
		"eventId": "evt_123",
		"eventType": "payment.succeeded",
		"intentId": "pi_456",
		"invoiceId": "SR-ABC12345",
		"amount": 45000.00,
		"currencyCode": "LKR"
	}`)

	t.Run("Valid Signature", func(t *testing.T) {
		svc := newTestGateway(secret)

		event, err := svc.VerifyWebhook(body, signBody(secret, body))
		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.EventID)
		assert.Equal(t, "payment.succeeded", event.EventType)
		assert.Equal(t, "pi_456", event.IntentID)
		assert.Equal(t, 45000.00, event.Amount)
	})

	t.Run("Uppercase Signature Accepted", func(t *testing.T) {
		svc := newTestGateway(secret)

		event, err := svc.VerifyWebhook(body, strings.ToUpper(signBody(secret, body)))
		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.EventID)
	})

	t.Run("Tampered Body Rejected", func(t *testing.T) {
		svc := newTestGateway(secret)

		signature := signBody(secret, body)
		tampered := []byte(`{"eventId":"evt_123","eventType":"payment.succeeded","intentId":"pi_456","amount":1.00}`)

		_, err := svc.VerifyWebhook(tampered, signature)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signature mismatch")
	})

	t.Run("Missing Signature Rejected", func(t *testing.T) {
		svc := newTestGateway(secret)

		_, err := svc.VerifyWebhook(body, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing signature")
	})

	t.Run("Missing Required Fields Rejected", func(t *testing.T) {
		svc := newTestGateway(secret)

		partial := []byte(`{"eventId":"evt_123"}`)
		_, err := svc.VerifyWebhook(partial, signBody(secret, partial))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required fields")
	})

	t.Run("Unsigned Mode Parses Body", func(t *testing.T) {
		svc := newTestGateway("")

		event, err := svc.VerifyWebhook(body, "")
		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.EventID)
	})
}

func TestCreateIntent_PlaceholderMode(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	svc := NewGatewayService(&config.PaymentConfig{Environment: "sandbox"}, logger)
	require.False(t, svc.IsConfigured())

	resp, err := svc.CreateIntent("SR-ABC12345", 45000, "Flight UL504")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Contains(t, resp.IntentID, "pi_sandbox_")
	assert.Contains(t, resp.ClientToken, "tok_sandbox_")
}

func TestCreateIntent_ProductionUnconfigured(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	svc := NewGatewayService(&config.PaymentConfig{Environment: "production"}, logger)

	_, err := svc.CreateIntent("SR-ABC12345", 45000, "Flight UL504")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
