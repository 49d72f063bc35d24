// Package wallet exposes the freelancer wallet: balance reads and the
// withdrawal debit. Credits happen only inside the settlement engine; this
// package and the engine are the wallet's only two writers.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/models"
)

var (
	// ErrUserNotFound means the wallet owner does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientFunds means the withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrInvalidAmount means the withdrawal amount is not positive.
	ErrInvalidAmount = errors.New("withdrawal amount must be positive")
)

// Service implements wallet reads and withdrawals.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService wires the wallet service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Balance returns the user's current wallet balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to load user: %w", err)
	}
	return user.WalletBalance, nil
}

// RequestWithdrawal debits the wallet and records a pending withdrawal, in
// one transaction. The balance predicate on the debit keeps concurrent
// withdrawals from overdrawing.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Withdrawal, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	withdrawal := &models.Withdrawal{
		ID:     uuid.New(),
		UserID: userID,
		Amount: amount,
		Status: models.WithdrawalPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		// Relative debit guarded by the balance itself: zero rows means
		// the funds are genuinely insufficient at execution time, even
		// when a concurrent credit or debit moved the balance since the
		// read above.
		res := tx.Model(&models.User{}).
			Where("id = ? AND wallet_balance >= ?", userID, amount).
			Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to debit wallet: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}

		if err := tx.Create(withdrawal).Error; err != nil {
			return fmt.Errorf("failed to record withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.String()),
	)
	return withdrawal, nil
}

// ListWithdrawals returns the user's withdrawals, newest first.
func (s *Service) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&withdrawals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}
