package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/auth"
	"github.com/gigbridge/gigbridge/internal/gateway"
	"github.com/gigbridge/gigbridge/internal/settlement"
	"github.com/gigbridge/gigbridge/pkg/models"
	"github.com/gigbridge/gigbridge/pkg/validation"
)

type signingGateway struct {
	secret string
}

func (g *signingGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*gateway.GatewayOrder, error) {
	return &gateway.GatewayOrder{ID: "order_gw_http", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *signingGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	return gateway.VerifyConfirmation(g.secret, gatewayOrderID, gatewayPaymentID, signature)
}

type staticAdmins struct{}

func (staticAdmins) AdminIDs(ctx context.Context) ([]uuid.UUID, error) { return nil, nil }

// paymentRouter mounts the payment routes behind a fixed test session.
func paymentRouter(t *testing.T, sess *auth.Session) (*gin.Engine, *ordersFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Register()

	f := setupOrders(t)
	gw := &signingGateway{secret: "http_test_secret"}
	engine := settlement.NewEngine(f.db, gw, noopNotifier{}, staticAdmins{},
		decimal.NewFromInt(10000), zap.NewNop())
	h := NewHandler(f.svc, engine, gw, zap.NewNop())

	router := gin.New()
	group := router.Group("", func(c *gin.Context) {
		c.Set("session", sess)
		c.Next()
	})
	Routes(group, h)
	return router, f
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	clientID := uuid.New()
	router, f := paymentRouter(t, &auth.Session{UserID: clientID, Role: models.RoleClient})

	freelancer := models.User{
		ID:       uuid.New(),
		Email:    "f@example.com",
		Username: "freelancer1",
		Role:     models.RoleFreelancer,
	}
	require.NoError(t, f.db.Create(&freelancer).Error)
	order := models.Order{
		ID:                uuid.New(),
		SourceType:        models.SourceService,
		SourceID:          uuid.New(),
		ClientID:          clientID,
		FreelancerID:      freelancer.ID,
		Title:             "Landing page",
		Price:             decimal.NewFromInt(1000),
		Commission:        decimal.NewFromInt(100),
		FreelancerEarning: decimal.NewFromInt(900),
		Status:            models.OrderPendingPayment,
		GatewayOrderID:    "order_gw_http",
	}
	require.NoError(t, f.db.Create(&order).Error)

	sig := gateway.SignConfirmation("http_test_secret", "order_gw_http", "pay_http_1")
	body := gin.H{
		"razorpay_order_id":   "order_gw_http",
		"razorpay_payment_id": "pay_http_1",
		"razorpay_signature":  sig,
		"orderId":             order.ID.String(),
	}

	rec := postJSON(router, "/payments/verify", body)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.Order
	require.NoError(t, f.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderActive, stored.Status)

	// Replay is rejected as a server-side failure, not re-applied.
	rec = postJSON(router, "/payments/verify", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// A forged signature is a client error.
	body["razorpay_signature"] = gateway.SignConfirmation("wrong", "order_gw_http", "pay_http_1")
	rec = postJSON(router, "/payments/verify", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing fields never reach the engine.
	rec = postJSON(router, "/payments/verify", gin.H{"orderId": order.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentOrderEndpointValidatesAmount(t *testing.T) {
	router, _ := paymentRouter(t, &auth.Session{UserID: uuid.New(), Role: models.RoleClient})

	rec := postJSON(router, "/payments/order", gin.H{"amount": "250.00"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(router, "/payments/order", gin.H{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(router, "/payments/order", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
