package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/auth"
	"github.com/gigbridge/gigbridge/pkg/models"
)

// Handler provides HTTP handlers for the admin read side.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Reconciliation returns the revenue summary.
func (h *Handler) Reconciliation(c *gin.Context) {
	summary, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

// RecentSettlements returns the most recently settled orders.
func (h *Handler) RecentSettlements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	orders, err := h.service.RecentSettlements(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

// Routes mounts admin endpoints; all require the admin role.
func Routes(rg *gin.RouterGroup, h *Handler) {
	group := rg.Group("/admin", auth.RequireRole(models.RoleAdmin))
	{
		group.GET("/reconciliation", h.Reconciliation)
		group.GET("/settlements", h.RecentSettlements)
	}
}
