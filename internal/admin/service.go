// Package admin provides the operational read side: administrator lookup for
// alert fan-out and revenue reconciliation views over the order ledger.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/models"
)

const adminIDsCacheKey = "gigbridge:admin_ids"

// Service serves admin lookups and reconciliation reads.
type Service struct {
	db       *gorm.DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService creates the admin service. cache may be nil; lookups then always
// hit the database.
func NewService(db *gorm.DB, cache *redis.Client, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		cacheTTL: 5 * time.Minute,
		logger:   logger,
	}
}

// AdminIDs returns the ids of all administrator users. The result is cached
// in Redis; cache failures fall through to the database and never fail the
// lookup.
func (s *Service) AdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, adminIDsCacheKey).Result(); err == nil {
			var ids []uuid.UUID
			if err := json.Unmarshal([]byte(raw), &ids); err == nil {
				return ids, nil
			}
		}
	}

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin ids: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(ids); err == nil {
			if err := s.cache.Set(ctx, adminIDsCacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("admin id cache write failed", zap.Error(err))
			}
		}
	}
	return ids, nil
}

// RevenueSummary aggregates commission and volume over settled orders.
type RevenueSummary struct {
	TotalVolume     decimal.Decimal  `json:"total_volume"`
	TotalCommission decimal.Decimal  `json:"total_commission"`
	TotalEarnings   decimal.Decimal  `json:"total_earnings"`
	SettledOrders   int64            `json:"settled_orders"`
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`
}

// Reconcile computes the revenue summary. Settled means the order carries a
// payment id, i.e. the settlement transaction committed at some point.
func (s *Service) Reconcile(ctx context.Context) (*RevenueSummary, error) {
	summary := &RevenueSummary{
		TotalVolume:     decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalEarnings:   decimal.Zero,
		OrdersByStatus:  make(map[string]int64),
	}

	var settled []models.Order
	if err := s.db.WithContext(ctx).Where("payment_id IS NOT NULL").Find(&settled).Error; err != nil {
		return nil, fmt.Errorf("failed to load settled orders: %w", err)
	}
	for _, o := range settled {
		summary.TotalVolume = summary.TotalVolume.Add(o.Price)
		summary.TotalCommission = summary.TotalCommission.Add(o.Commission)
		summary.TotalEarnings = summary.TotalEarnings.Add(o.FreelancerEarning)
	}
	summary.SettledOrders = int64(len(settled))

	rows, err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		summary.OrdersByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return summary, nil
}

// RecentSettlements returns the most recently settled orders.
func (s *Service) RecentSettlements(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("payment_id IS NOT NULL").
		Order("updated_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent settlements: %w", err)
	}
	return orders, nil
}
