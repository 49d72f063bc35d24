package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// minorUnits converts a major-unit amount to the gateway's integer minor
// units (paise for INR).
var minorUnits = decimal.NewFromInt(100)

// RazorpayGateway talks to a Razorpay-compatible orders API over HTTP with
// basic auth.
type RazorpayGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
	logger    *zap.Logger
}

// NewRazorpayGateway creates a gateway adapter from API credentials.
func NewRazorpayGateway(baseURL, keyID, keySecret string, logger *zap.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder registers a payment intent with the gateway.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	payload := createOrderRequest{
		Amount:   amount.Mul(minorUnits).IntPart(),
		Currency: currency,
		Receipt:  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("gateway order creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		g.logger.Error("gateway returned server error", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway rejected order: status %d", resp.StatusCode)
	}

	var created createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	g.logger.Info("gateway order created",
		zap.String("gateway_order_id", created.ID),
		zap.String("currency", created.Currency),
	)

	return &GatewayOrder{
		ID:       created.ID,
		Amount:   decimal.NewFromInt(created.Amount).Div(minorUnits),
		Currency: created.Currency,
		Receipt:  created.Receipt,
		Status:   created.Status,
	}, nil
}

// VerifySignature checks the checkout confirmation signature.
func (g *RazorpayGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	return VerifyConfirmation(g.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}
