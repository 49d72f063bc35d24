package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotifyOrderPlaced         = "order_placed"
	NotifyPaymentReceived     = "payment_received"
	NotifyOrderDelivered      = "order_delivered"
	NotifyOrderCompleted      = "order_completed"
	NotifyOrderCancelled      = "order_cancelled"
	NotifyOrderDisputed       = "order_disputed"
	NotifyApplicationAccepted = "application_accepted"
	NotifyApplicationRejected = "application_rejected"
	NotifyHighValueOrder      = "high_value_order"
	NotifyPaymentError        = "payment_error"
)

// Notification is a fire-and-forget record consumed by the UI's listener.
// It is never required for settlement correctness.
type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}
