package notification

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/auth"
)

// Handler serves the notification endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a notification handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// List returns the caller's notifications, newest first.
func (h *Handler) List(c *gin.Context) {
	sess := auth.SessionFrom(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, err := h.service.List(c.Request.Context(), sess.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": notifications})
}

// MarkRead marks one of the caller's notifications as read.
func (h *Handler) MarkRead(c *gin.Context) {
	sess := auth.SessionFrom(c)

	notifID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid notification id"})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), sess.UserID, notifID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stream pushes the caller's notifications as server-sent events until the
// client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	sess := auth.SessionFrom(c)

	ch, cancel := h.service.Subscribe(sess.UserID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Routes mounts the notification endpoints.
func Routes(rg *gin.RouterGroup, h *Handler) {
	group := rg.Group("/notifications")
	{
		group.GET("", h.List)
		group.GET("/stream", h.Stream)
		group.POST("/:id/read", h.MarkRead)
	}
}
