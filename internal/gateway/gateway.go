// Package gateway adapts the external payment processor. The platform never
// moves money itself; it creates payment intents with the gateway and later
// verifies the signed confirmation the gateway hands back to the payer.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidSignature means the confirmation signature does not match
	// the HMAC over the gateway order and payment ids. Treated as a
	// security event, never retried.
	ErrInvalidSignature = errors.New("invalid gateway signature")

	// ErrGatewayUnavailable means the gateway could not be reached or
	// answered with a server error. Safe to retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// GatewayOrder is the gateway's created payment intent.
type GatewayOrder struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
}

// Gateway is the payment processor the settlement flow depends on.
type Gateway interface {
	// CreateOrder registers a payment intent with the gateway and
	// returns its id for the checkout flow.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error)

	// VerifySignature checks the confirmation signature delivered after
	// the payer completes checkout. Returns ErrInvalidSignature on
	// mismatch.
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error
}

// SignConfirmation computes the hex HMAC-SHA256 the gateway uses to sign a
// confirmation: HMAC(secret, "{orderID}|{paymentID}").
func SignConfirmation(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyConfirmation compares a supplied signature against the expected HMAC
// in constant time.
func VerifyConfirmation(secret, gatewayOrderID, gatewayPaymentID, signature string) error {
	expected := SignConfirmation(secret, gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
