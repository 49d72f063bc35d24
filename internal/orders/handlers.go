package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/auth"
	"github.com/gigbridge/gigbridge/internal/gateway"
	"github.com/gigbridge/gigbridge/internal/settlement"
	"github.com/gigbridge/gigbridge/pkg/models"
)

// Handler provides HTTP handlers for orders and the payment flow.
type Handler struct {
	service *Service
	engine  *settlement.Engine
	gateway gateway.Gateway
	logger  *zap.Logger
}

// NewHandler creates an order handler.
func NewHandler(service *Service, engine *settlement.Engine, gw gateway.Gateway, logger *zap.Logger) *Handler {
	return &Handler{service: service, engine: engine, gateway: gw, logger: logger}
}

type createOrderRequest struct {
	SourceType string `json:"source_type" binding:"required,oneof=service job"`
	SourceID   string `json:"source_id" binding:"required,uuid"`
}

// CreateOrder establishes a pending order plus a gateway payment intent.
func (h *Handler) CreateOrder(c *gin.Context) {
	sess := auth.SessionFrom(c)

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}
	sourceID := uuid.MustParse(req.SourceID)

	var order *models.Order
	var err error
	if req.SourceType == models.SourceService {
		order, err = h.service.CreateFromListing(c.Request.Context(), sess.UserID, sourceID)
	} else {
		order, err = h.service.CreateFromJob(c.Request.Context(), sess.UserID, sourceID)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

type createPaymentOrderRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Currency string          `json:"currency"`
}

// CreatePaymentOrder asks the gateway for a standalone payment intent.
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	var req createPaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "amount must be a positive number"})
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	gwOrder, err := h.gateway.CreateOrder(c.Request.Context(), req.Amount, req.Currency, uuid.New().String())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": gwOrder})
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	OrderID           string `json:"orderId" binding:"required,uuid"`
}

// VerifyPayment runs the settlement engine on a checkout confirmation.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	order, err := h.engine.VerifyAndSettle(c.Request.Context(), settlement.Confirmation{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
		OrderID:          uuid.MustParse(req.OrderID),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "payment verified and order activated",
		"order":   order,
	})
}

type paymentFailureRequest struct {
	OrderID string `json:"orderId" binding:"required,uuid"`
}

// PaymentFailure records a failed checkout: order → payment_failed.
func (h *Handler) PaymentFailure(c *gin.Context) {
	sess := auth.SessionFrom(c)

	var req paymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	order, err := h.service.MarkPaymentFailed(c.Request.Context(), sess.UserID, uuid.MustParse(req.OrderID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// RetryPayment reopens a payment_failed order with a fresh gateway intent.
func (h *Handler) RetryPayment(c *gin.Context) {
	sess := auth.SessionFrom(c)
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid order id"})
		return
	}

	order, err := h.service.RetryPayment(c.Request.Context(), sess.UserID, orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// Get returns one order to a participant or admin.
func (h *Handler) Get(c *gin.Context) {
	sess := auth.SessionFrom(c)
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid order id"})
		return
	}

	order, err := h.service.Get(c.Request.Context(), sess.UserID, sess.Role == models.RoleAdmin, orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// List returns the caller's orders.
func (h *Handler) List(c *gin.Context) {
	sess := auth.SessionFrom(c)
	orders, err := h.service.List(c.Request.Context(), sess.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

// lifecycle wraps the four participant-driven transitions.
func (h *Handler) lifecycle(fn func(*gin.Context, uuid.UUID, uuid.UUID) (*models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := auth.SessionFrom(c)
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid order id"})
			return
		}
		order, err := fn(c, sess.UserID, orderID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

// Deliver handles the freelancer marking work as delivered.
func (h *Handler) Deliver(c *gin.Context) {
	h.lifecycle(func(c *gin.Context, caller, orderID uuid.UUID) (*models.Order, error) {
		return h.service.MarkDelivered(c.Request.Context(), caller, orderID)
	})(c)
}

// Approve handles the client approving delivered work.
func (h *Handler) Approve(c *gin.Context) {
	h.lifecycle(func(c *gin.Context, caller, orderID uuid.UUID) (*models.Order, error) {
		return h.service.Approve(c.Request.Context(), caller, orderID)
	})(c)
}

// Dispute handles either participant raising a dispute.
func (h *Handler) Dispute(c *gin.Context) {
	h.lifecycle(func(c *gin.Context, caller, orderID uuid.UUID) (*models.Order, error) {
		return h.service.RaiseDispute(c.Request.Context(), caller, orderID)
	})(c)
}

// Cancel handles order cancellation.
func (h *Handler) Cancel(c *gin.Context) {
	sess := auth.SessionFrom(c)
	h.lifecycle(func(c *gin.Context, caller, orderID uuid.UUID) (*models.Order, error) {
		return h.service.Cancel(c.Request.Context(), caller, sess.Role == models.RoleAdmin, orderID)
	})(c)
}

// writeError maps service errors onto the HTTP statuses of the API
// contract: 400 for bad input or signature, 403 for authorization, 500 for
// referential or infrastructure failures (retryable by the caller).
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gateway.ErrInvalidSignature):
		status = http.StatusBadRequest
	case errors.Is(err, settlement.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrSelfPurchase), errors.Is(err, ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrForbiddenTransition):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrListingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, settlement.ErrOrderAlreadyProcessed),
		errors.Is(err, settlement.ErrOrderNotFound),
		errors.Is(err, settlement.ErrFreelancerNotFound),
		errors.Is(err, gateway.ErrGatewayUnavailable):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
