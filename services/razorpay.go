package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// PaymentOrder is the gateway-side intent to pay, keyed to a booking's total.
type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor currency units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	IsMock   bool   `json:"isMock,omitempty"`
}

// PaymentMockMode reports whether gateway credentials are absent or still the
// placeholder, in which case the bridge simulates the gateway without any
// external call. This is documented operational behavior, not an error path.
func PaymentMockMode() bool {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	return keyID == "" || strings.HasPrefix(keyID, "your_")
}

// PaymentKeyID is the publishable key handed to the checkout client.
func PaymentKeyID() string {
	if PaymentMockMode() {
		return "mock_key"
	}
	return os.Getenv("RAZORPAY_KEY_ID")
}

// PaymentGateway creates orders against Razorpay, or synthesizes them in
// mock mode.
type PaymentGateway struct {
	client *razorpay.Client
}

func NewPaymentGateway() *PaymentGateway {
	if PaymentMockMode() {
		return &PaymentGateway{}
	}
	return &PaymentGateway{
		client: razorpay.NewClient(os.Getenv("RAZORPAY_KEY_ID"), os.Getenv("RAZORPAY_KEY_SECRET")),
	}
}

// CreateOrder registers an order for amountPaise with the gateway. The
// receipt is the booking's invoice number.
func (g *PaymentGateway) CreateOrder(amountPaise int64, receipt string, notes map[string]interface{}) (*PaymentOrder, error) {
	if g.client == nil {
		return &PaymentOrder{
			ID:       fmt.Sprintf("order_mock_%d", time.Now().UnixMilli()),
			Amount:   amountPaise,
			Currency: "INR",
			Receipt:  receipt,
			IsMock:   true,
		}, nil
	}

	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
		"notes":    notes,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order create: missing order id in response")
	}
	return &PaymentOrder{
		ID:       id,
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  receipt,
	}, nil
}

// VerifyPaymentSignature checks the client-redirect confirmation signature:
// HMAC-SHA256(secret, orderID + "|" + paymentID) hex-encoded.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the gateway-initiated webhook signature over
// the raw, unparsed request body.
func VerifyWebhookSignature(rawBody []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
