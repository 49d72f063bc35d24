package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSignConfirmation(t *testing.T) {
	// Known vector: HMAC-SHA256("test_secret", "order_rcp123|pay_456")
	got := SignConfirmation("test_secret", "order_rcp123", "pay_456")
	assert.Equal(t, "8acee70585685950a1d5377b114a87b019af9522133fa3265026321a43a8d728", got)
}

func TestVerifyConfirmation(t *testing.T) {
	sig := SignConfirmation("secret", "order_1", "pay_1")

	assert.NoError(t, VerifyConfirmation("secret", "order_1", "pay_1", sig))
	assert.ErrorIs(t, VerifyConfirmation("secret", "order_1", "pay_2", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyConfirmation("other", "order_1", "pay_1", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyConfirmation("secret", "order_1", "pay_1", ""), ErrInvalidSignature)
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key_id", user)
		require.Equal(t, "key_secret", pass)

		var req createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(150000), req.Amount) // 1500.00 in minor units
		require.Equal(t, "INR", req.Currency)

		json.NewEncoder(w).Encode(createOrderResponse{
			ID:       "order_test123",
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	g := NewRazorpayGateway(srv.URL, "key_id", "key_secret", zap.NewNop())
	order, err := g.CreateOrder(context.Background(), decimal.NewFromInt(1500), "INR", "rcpt-1")
	require.NoError(t, err)
	assert.Equal(t, "order_test123", order.ID)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestRazorpayCreateOrderGatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewRazorpayGateway(srv.URL, "key_id", "key_secret", zap.NewNop())
	_, err := g.CreateOrder(context.Background(), decimal.NewFromInt(10), "INR", "rcpt-2")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
