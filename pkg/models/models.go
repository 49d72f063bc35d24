package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User roles
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// User represents a platform user. WalletBalance is the freelancer's ledger
// balance; it is written only by the settlement engine (credit) and the
// withdrawal flow (debit).
type User struct {
	ID            uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Email         string          `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	Username      string          `json:"username" gorm:"uniqueIndex" validate:"required,min=3,max=30,alphanum"`
	PasswordHash  string          `json:"-" gorm:"column:password_hash"`
	Role          string          `json:"role" gorm:"default:client" validate:"required,oneof=client freelancer admin"`
	WalletBalance decimal.Decimal `json:"wallet_balance" gorm:"type:numeric"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Listing represents a service offered by a freelancer.
type Listing struct {
	ID           uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	FreelancerID uuid.UUID       `json:"freelancer_id" gorm:"type:uuid;index"`
	Title        string          `json:"title" validate:"required,max=120"`
	Description  string          `json:"description" validate:"max=5000"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric"`
	Active       bool            `json:"active" gorm:"default:true"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Job statuses
const (
	JobOpen     = "open"
	JobAssigned = "assigned"
	JobClosed   = "closed"
)

// Job represents work posted by a client.
type Job struct {
	ID                   uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	ClientID             uuid.UUID       `json:"client_id" gorm:"type:uuid;index"`
	Title                string          `json:"title" validate:"required,max=120"`
	Description          string          `json:"description" validate:"max=5000"`
	Budget               decimal.Decimal `json:"budget" gorm:"type:numeric"`
	Status               string          `json:"status" gorm:"default:open;index" validate:"oneof=open assigned closed"`
	AssignedFreelancerID *uuid.UUID      `json:"assigned_freelancer_id,omitempty" gorm:"type:uuid"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Application statuses
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// JobApplication represents a freelancer's application to a job.
type JobApplication struct {
	ID           uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	JobID        uuid.UUID       `json:"job_id" gorm:"type:uuid;index"`
	FreelancerID uuid.UUID       `json:"freelancer_id" gorm:"type:uuid;index"`
	CoverLetter  string          `json:"cover_letter" validate:"max=5000"`
	BidAmount    decimal.Decimal `json:"bid_amount" gorm:"type:numeric"`
	Status       string          `json:"status" gorm:"default:pending;index" validate:"oneof=pending accepted rejected"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
