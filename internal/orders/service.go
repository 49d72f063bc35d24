// Package orders owns order creation and the post-settlement lifecycle
// state machine. The commission split is computed once at creation and never
// revisited, so in-flight orders keep their original split even if the
// platform rate changes.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/internal/gateway"
	"github.com/gigbridge/gigbridge/pkg/metrics"
	"github.com/gigbridge/gigbridge/pkg/models"
)

var (
	// ErrNotFound means the order or its source listing does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrListingNotFound means the purchased listing does not exist or is
	// inactive.
	ErrListingNotFound = errors.New("listing not found")

	// ErrSelfPurchase means a user tried to buy their own listing.
	ErrSelfPurchase = errors.New("cannot purchase your own listing")

	// ErrNotParticipant means the caller is neither the order's client
	// nor its freelancer.
	ErrNotParticipant = errors.New("not a participant of this order")

	// ErrForbiddenTransition means the caller is a participant but not
	// the one allowed to make this transition.
	ErrForbiddenTransition = errors.New("caller may not perform this transition")

	// ErrInvalidTransition means the order is not in a state the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("invalid order state transition")
)

// Notifier delivers lifecycle notifications, best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, content, link string) error
}

// Service implements order creation and lifecycle transitions.
type Service struct {
	db            *gorm.DB
	gateway       gateway.Gateway
	notifier      Notifier
	commissionPct decimal.Decimal
	logger        *zap.Logger
}

// NewService wires the order service. commissionPct is the platform cut in
// percent (10 means 10%).
func NewService(db *gorm.DB, gw gateway.Gateway, notifier Notifier, commissionPct decimal.Decimal, logger *zap.Logger) *Service {
	return &Service{
		db:            db,
		gateway:       gw,
		notifier:      notifier,
		commissionPct: commissionPct,
		logger:        logger,
	}
}

var oneHundred = decimal.NewFromInt(100)

// split computes the commission and freelancer earning for a price. The two
// always sum back to the price exactly.
func (s *Service) split(price decimal.Decimal) (commission, earning decimal.Decimal) {
	commission = price.Mul(s.commissionPct).Div(oneHundred).Round(2)
	earning = price.Sub(commission)
	return commission, earning
}

// CreateFromListing creates a pending order for a service listing and
// registers a payment intent with the gateway.
func (s *Service) CreateFromListing(ctx context.Context, clientID, listingID uuid.UUID) (*models.Order, error) {
	var listing models.Listing
	if err := s.db.WithContext(ctx).First(&listing, "id = ? AND active = ?", listingID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if listing.FreelancerID == clientID {
		return nil, ErrSelfPurchase
	}

	return s.create(ctx, models.SourceService, listing.ID, clientID, listing.FreelancerID, listing.Title, listing.Price)
}

// CreateFromJob creates a pending order for an assigned job engagement,
// priced at the accepted application's bid.
func (s *Service) CreateFromJob(ctx context.Context, clientID, jobID uuid.UUID) (*models.Order, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job.ClientID != clientID {
		return nil, ErrNotParticipant
	}
	if job.Status != models.JobAssigned || job.AssignedFreelancerID == nil {
		return nil, ErrInvalidTransition
	}

	var accepted models.JobApplication
	err := s.db.WithContext(ctx).
		First(&accepted, "job_id = ? AND status = ?", job.ID, models.ApplicationAccepted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load accepted application: %w", err)
	}

	return s.create(ctx, models.SourceJob, job.ID, clientID, *job.AssignedFreelancerID, job.Title, accepted.BidAmount)
}

func (s *Service) create(ctx context.Context, sourceType string, sourceID, clientID, freelancerID uuid.UUID, title string, price decimal.Decimal) (*models.Order, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive")
	}

	commission, earning := s.split(price)
	order := &models.Order{
		ID:                uuid.New(),
		SourceType:        sourceType,
		SourceID:          sourceID,
		ClientID:          clientID,
		FreelancerID:      freelancerID,
		Title:             title,
		Price:             price,
		Commission:        commission,
		FreelancerEarning: earning,
		Status:            models.OrderPendingPayment,
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, price, "INR", order.ID.String())
	if err != nil {
		return nil, err
	}
	order.GatewayOrderID = gwOrder.ID

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	metrics.OrdersCreated.WithLabelValues(sourceType).Inc()

	s.logger.Info("pending order created",
		zap.String("order_id", order.ID.String()),
		zap.String("source", sourceType),
		zap.String("price", price.String()),
		zap.String("commission", commission.String()),
	)
	return order, nil
}

// Get loads an order for a participant (or an admin).
func (s *Service) Get(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !isAdmin && !order.IsParticipant(callerID) {
		return nil, ErrNotParticipant
	}
	return &order, nil
}

// List returns all orders the caller participates in, newest first.
func (s *Service) List(ctx context.Context, callerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("client_id = ? OR freelancer_id = ?", callerID, callerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// MarkDelivered transitions active → delivered. Freelancer only.
func (s *Service) MarkDelivered(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error) {
	now := time.Now()
	order, err := s.transition(ctx, orderID, []string{models.OrderActive}, models.OrderDelivered,
		func(o *models.Order) error {
			if !o.IsParticipant(callerID) {
				return ErrNotParticipant
			}
			if o.FreelancerID != callerID {
				return ErrForbiddenTransition
			}
			return nil
		},
		map[string]interface{}{"delivered_at": &now})
	if err != nil {
		return nil, err
	}
	order.DeliveredAt = &now

	s.notify(ctx, order.ClientID, models.NotifyOrderDelivered,
		fmt.Sprintf("Order %q was delivered, review and approve it", order.Title), order)
	return order, nil
}

// Approve transitions delivered → completed. Client only. Terminal.
func (s *Service) Approve(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error) {
	now := time.Now()
	order, err := s.transition(ctx, orderID, []string{models.OrderDelivered}, models.OrderCompleted,
		func(o *models.Order) error {
			if !o.IsParticipant(callerID) {
				return ErrNotParticipant
			}
			if o.ClientID != callerID {
				return ErrForbiddenTransition
			}
			return nil
		},
		map[string]interface{}{"completed_at": &now})
	if err != nil {
		return nil, err
	}
	order.CompletedAt = &now

	s.notify(ctx, order.FreelancerID, models.NotifyOrderCompleted,
		fmt.Sprintf("Order %q was approved and completed", order.Title), order)
	return order, nil
}

// RaiseDispute transitions active|delivered → disputed. Either participant.
// Terminal for the automated flow; resolution is manual.
func (s *Service) RaiseDispute(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.transition(ctx, orderID, []string{models.OrderActive, models.OrderDelivered}, models.OrderDisputed,
		func(o *models.Order) error {
			if !o.IsParticipant(callerID) {
				return ErrNotParticipant
			}
			return nil
		}, nil)
	if err != nil {
		return nil, err
	}

	counterparty := order.FreelancerID
	if callerID == order.FreelancerID {
		counterparty = order.ClientID
	}
	s.notify(ctx, counterparty, models.NotifyOrderDisputed,
		fmt.Sprintf("A dispute was raised on order %q", order.Title), order)
	return order, nil
}

// Cancel transitions pending_payment|active → cancelled. Client or admin.
// Terminal.
func (s *Service) Cancel(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.transition(ctx, orderID, []string{models.OrderPendingPayment, models.OrderActive}, models.OrderCancelled,
		func(o *models.Order) error {
			if isAdmin {
				return nil
			}
			if !o.IsParticipant(callerID) {
				return ErrNotParticipant
			}
			if o.ClientID != callerID {
				return ErrForbiddenTransition
			}
			return nil
		}, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, order.FreelancerID, models.NotifyOrderCancelled,
		fmt.Sprintf("Order %q was cancelled", order.Title), order)
	return order, nil
}

// MarkPaymentFailed transitions pending_payment → payment_failed after a
// failed checkout. Client only.
func (s *Service) MarkPaymentFailed(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, orderID, []string{models.OrderPendingPayment}, models.OrderPaymentFailed,
		func(o *models.Order) error {
			if !o.IsParticipant(callerID) {
				return ErrNotParticipant
			}
			if o.ClientID != callerID {
				return ErrForbiddenTransition
			}
			return nil
		}, nil)
}

// RetryPayment reopens a payment_failed order: back to pending_payment with
// a fresh gateway intent. This is the only reopen path in the state machine.
func (s *Service) RetryPayment(ctx context.Context, callerID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.ClientID != callerID {
		if !order.IsParticipant(callerID) {
			return nil, ErrNotParticipant
		}
		return nil, ErrForbiddenTransition
	}
	if order.Status != models.OrderPaymentFailed {
		return nil, ErrInvalidTransition
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, order.Price, "INR", order.ID.String())
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderPaymentFailed).
		Updates(map[string]interface{}{
			"status":           models.OrderPendingPayment,
			"gateway_order_id": gwOrder.ID,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to reopen order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidTransition
	}

	order.Status = models.OrderPendingPayment
	order.GatewayOrderID = gwOrder.ID
	return &order, nil
}

// transition runs one guarded state change: load, authorize, then a
// conditional update keyed on the allowed source states so concurrent
// transitions cannot double-apply.
func (s *Service) transition(ctx context.Context, orderID uuid.UUID, from []string, to string,
	authorize func(*models.Order) error, extra map[string]interface{}) (*models.Order, error) {

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load order: %w", err)
		}
		if err := authorize(&order); err != nil {
			return err
		}

		allowed := false
		for _, f := range from {
			if order.Status == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrInvalidTransition
		}

		updates := map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		}
		for k, v := range extra {
			updates[k] = v
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID, from).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("status", to),
	)
	return &order, nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, notifType, content string, order *models.Order) {
	if err := s.notifier.Notify(ctx, userID, notifType, content, "/orders/"+order.ID.String()); err != nil {
		s.logger.Warn("lifecycle notification failed",
			zap.String("order_id", order.ID.String()),
			zap.String("type", notifType),
			zap.Error(err),
		)
	}
}
