// Package settlement converts verified gateway payment confirmations into
// exactly-once ledger state changes: the order becomes active and the
// freelancer's wallet is credited with their earning, both in one database
// transaction. Replayed or duplicated confirmations are rejected by the
// status guard, never re-applied.
package settlement

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
	// ErrInvalidInput means the confirmation payload is missing fields.
	ErrInvalidInput = errors.New("invalid confirmation payload")

	// ErrOrderNotFound means the confirmation references no known order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrFreelancerNotFound means the order's freelancer record is gone.
	ErrFreelancerNotFound = errors.New("freelancer not found")

	// ErrOrderAlreadyProcessed is the idempotency rejection: the order is
	// not awaiting payment, so this confirmation is a replay or a
	// duplicate. The first settlement stands.
	ErrOrderAlreadyProcessed = errors.New("order already processed")
)

// Confirmation is the untrusted payment confirmation forwarded after
// checkout. Only the payment id survives verification; the signature is
// never persisted or logged.
type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	OrderID          uuid.UUID
}

// Notifier delivers best-effort notifications after settlement commits.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, content, link string) error
}

// AdminDirectory lists administrator user ids for alerting.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Engine is the order settlement engine.
type Engine struct {
	db        *gorm.DB
	gateway   gateway.Gateway
	notifier  Notifier
	admins    AdminDirectory
	highValue decimal.Decimal
	logger    *zap.Logger
}

// NewEngine wires the settlement engine. highValue is the order price at or
// above which administrators are alerted on settlement.
func NewEngine(db *gorm.DB, gw gateway.Gateway, notifier Notifier, admins AdminDirectory, highValue decimal.Decimal, logger *zap.Logger) *Engine {
	return &Engine{
		db:        db,
		gateway:   gw,
		notifier:  notifier,
		admins:    admins,
		highValue: highValue,
		logger:    logger,
	}
}

// VerifyAndSettle validates the confirmation signature, then atomically
// transitions the order from pending_payment to active while crediting the
// freelancer's wallet. Exactly one of two concurrent calls for the same
// order succeeds; the other gets ErrOrderAlreadyProcessed.
func (e *Engine) VerifyAndSettle(ctx context.Context, conf Confirmation) (*models.Order, error) {
	start := time.Now()

	if conf.GatewayOrderID == "" || conf.GatewayPaymentID == "" || conf.Signature == "" || conf.OrderID == uuid.Nil {
		metrics.SettlementsTotal.WithLabelValues("invalid_input").Inc()
		return nil, ErrInvalidInput
	}

	if err := e.gateway.VerifySignature(conf.GatewayOrderID, conf.GatewayPaymentID, conf.Signature); err != nil {
		metrics.SettlementsTotal.WithLabelValues("invalid_signature").Inc()
		e.reportFailure(ctx, conf, err)
		return nil, err
	}

	var order models.Order
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", conf.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order.Status != models.OrderPendingPayment {
			return ErrOrderAlreadyProcessed
		}

		var freelancer models.User
		if err := tx.First(&freelancer, "id = ?", order.FreelancerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFreelancerNotFound
			}
			return fmt.Errorf("failed to load freelancer: %w", err)
		}

		// The status predicate on the update is the idempotency guard:
		// a concurrent settlement that committed first leaves zero rows
		// for this one to transition.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderPendingPayment).
			Updates(map[string]interface{}{
				"status":     models.OrderActive,
				"payment_id": conf.GatewayPaymentID,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to activate order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrOrderAlreadyProcessed
		}

		// The credit is relative so concurrent settlements of different
		// orders for one freelancer accumulate instead of overwriting
		// each other under read committed.
		if err := tx.Model(&models.User{}).
			Where("id = ?", freelancer.ID).
			Update("wallet_balance", gorm.Expr("wallet_balance + ?", order.FreelancerEarning)).Error; err != nil {
			return fmt.Errorf("failed to credit wallet: %w", err)
		}

		order.Status = models.OrderActive
		order.PaymentID = &conf.GatewayPaymentID
		return nil
	})
	metrics.SettlementLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, ErrOrderAlreadyProcessed):
			metrics.SettlementsTotal.WithLabelValues("already_processed").Inc()
			e.logger.Info("duplicate settlement rejected",
				zap.String("order_id", conf.OrderID.String()),
				zap.String("gateway_order_id", conf.GatewayOrderID),
			)
		case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrFreelancerNotFound):
			metrics.SettlementsTotal.WithLabelValues("not_found").Inc()
			e.reportFailure(ctx, conf, err)
		default:
			metrics.SettlementsTotal.WithLabelValues("error").Inc()
			e.reportFailure(ctx, conf, err)
		}
		return nil, err
	}

	metrics.SettlementsTotal.WithLabelValues("settled").Inc()
	e.logger.Info("order settled",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", conf.GatewayPaymentID),
		zap.String("freelancer_id", order.FreelancerID.String()),
		zap.String("earning", order.FreelancerEarning.String()),
	)

	e.fanOut(ctx, &order)
	return &order, nil
}

// fanOut delivers post-commit notifications. Failures are logged and
// swallowed; the settlement already committed.
func (e *Engine) fanOut(ctx context.Context, order *models.Order) {
	link := "/orders/" + order.ID.String()

	if err := e.notifier.Notify(ctx, order.FreelancerID, models.NotifyPaymentReceived,
		fmt.Sprintf("New order %q: %s credited to your wallet", order.Title, order.FreelancerEarning.String()),
		link); err != nil {
		e.logger.Warn("freelancer notification failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	if err := e.notifier.Notify(ctx, order.ClientID, models.NotifyOrderPlaced,
		fmt.Sprintf("Payment successful, order %q is now active", order.Title),
		link); err != nil {
		e.logger.Warn("client notification failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	if order.Price.GreaterThanOrEqual(e.highValue) {
		e.notifyAdmins(ctx, models.NotifyHighValueOrder,
			fmt.Sprintf("High-value purchase: order %q for %s", order.Title, order.Price.String()),
			link)
	}
}

// reportFailure logs a redacted record of the failed settlement and alerts
// administrators. The signature is stripped before anything is logged.
func (e *Engine) reportFailure(ctx context.Context, conf Confirmation, cause error) {
	e.logger.Error("settlement failed",
		zap.String("source", "settlement_engine"),
		zap.String("order_id", conf.OrderID.String()),
		zap.String("gateway_order_id", conf.GatewayOrderID),
		zap.String("gateway_payment_id", conf.GatewayPaymentID),
		zap.Error(cause),
	)
	e.notifyAdmins(ctx, models.NotifyPaymentError,
		fmt.Sprintf("Critical payment error on order %s: %v", conf.OrderID, cause),
		"/admin/reconciliation")
}

func (e *Engine) notifyAdmins(ctx context.Context, notifType, content, link string) {
	ids, err := e.admins.AdminIDs(ctx)
	if err != nil {
		e.logger.Warn("admin lookup failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := e.notifier.Notify(ctx, id, notifType, content, link); err != nil {
			e.logger.Warn("admin notification failed", zap.String("admin_id", id.String()), zap.Error(err))
		}
	}
}
