package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order sources
const (
	SourceService = "service"
	SourceJob     = "job"
)

// Order statuses
const (
	OrderPendingPayment = "pending_payment"
	OrderActive         = "active"
	OrderDelivered      = "delivered"
	OrderCompleted      = "completed"
	OrderCancelled      = "cancelled"
	OrderDisputed       = "disputed"
	OrderPaymentFailed  = "payment_failed"
)

// Order represents one purchase transaction between a client and a freelancer.
// Commission + FreelancerEarning == Price at all times; the split is fixed at
// creation. PaymentID is set only when the order settles. Orders are a
// financial record and are never deleted.
type Order struct {
	ID                uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	SourceType        string          `json:"source_type" validate:"oneof=service job"`
	SourceID          uuid.UUID       `json:"source_id" gorm:"type:uuid;index"`
	ClientID          uuid.UUID       `json:"client_id" gorm:"type:uuid;index"`
	FreelancerID      uuid.UUID       `json:"freelancer_id" gorm:"type:uuid;index"`
	Title             string          `json:"title"`
	Price             decimal.Decimal `json:"price" gorm:"type:numeric"`
	Commission        decimal.Decimal `json:"commission" gorm:"type:numeric"`
	FreelancerEarning decimal.Decimal `json:"freelancer_earning" gorm:"type:numeric"`
	Status            string          `json:"status" gorm:"default:pending_payment;index"`
	GatewayOrderID    string          `json:"gateway_order_id" gorm:"index"`
	PaymentID         *string         `json:"payment_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// IsParticipant reports whether the given user is the order's client or
// freelancer. Access checks on order reads go through this.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.ClientID == userID || o.FreelancerID == userID
}

// Withdrawal statuses
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
	WithdrawalRejected  = "rejected"
)

// Withdrawal represents a freelancer's request to move wallet funds out of
// the platform. The debit happens when the request is created.
type Withdrawal struct {
	ID          uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID       `json:"user_id" gorm:"type:uuid;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric"`
	Status      string          `json:"status" gorm:"default:pending"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}
