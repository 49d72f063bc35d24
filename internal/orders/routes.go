package orders

import (
	"github.com/gin-gonic/gin"
)

// Routes mounts order and payment endpoints on the authenticated group.
func Routes(rg *gin.RouterGroup, h *Handler) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("/:id/deliver", h.Deliver)
		orders.POST("/:id/approve", h.Approve)
		orders.POST("/:id/dispute", h.Dispute)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/retry-payment", h.RetryPayment)
	}

	payments := rg.Group("/payments")
	{
		payments.POST("/order", h.CreatePaymentOrder)
		payments.POST("/verify", h.VerifyPayment)
		payments.POST("/failure", h.PaymentFailure)
	}
}
