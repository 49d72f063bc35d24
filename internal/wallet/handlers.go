package wallet

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/auth"
)

// Handler provides HTTP handlers for wallet operations.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a wallet handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Balance returns the caller's wallet balance.
func (h *Handler) Balance(c *gin.Context) {
	sess := auth.SessionFrom(c)
	balance, err := h.service.Balance(c.Request.Context(), sess.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance})
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// RequestWithdrawal debits the caller's wallet into a pending withdrawal.
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	sess := auth.SessionFrom(c)

	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	withdrawal, err := h.service.RequestWithdrawal(c.Request.Context(), sess.UserID, req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "withdrawal": withdrawal})
}

// ListWithdrawals returns the caller's withdrawal history.
func (h *Handler) ListWithdrawals(c *gin.Context) {
	sess := auth.SessionFrom(c)
	withdrawals, err := h.service.ListWithdrawals(c.Request.Context(), sess.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawals": withdrawals})
}

// Routes mounts wallet endpoints on the authenticated group.
func Routes(rg *gin.RouterGroup, h *Handler) {
	wallet := rg.Group("/wallet")
	{
		wallet.GET("", h.Balance)
		wallet.GET("/withdrawals", h.ListWithdrawals)
		wallet.POST("/withdrawals", h.RequestWithdrawal)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidAmount):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
