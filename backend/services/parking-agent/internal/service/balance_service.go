package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingagent/backend/services/parking-agent/internal/models"
)

// BalanceAPI is the subset of the parking API used for balance operations.
type BalanceAPI interface {
	GetBalance(ctx context.Context, subjectID int64) (models.Balance, error)
	Purchase(ctx context.Context, subjectID int64, amount decimal.Decimal) error
}

// BalanceOutcome reports what the balance stage saw and did.
type BalanceOutcome struct {
	Before   decimal.Decimal
	After    decimal.Decimal
	ToppedUp bool
}

// BalanceService keeps the prepaid balance above a threshold.
type BalanceService struct {
	api      BalanceAPI
	notifier Notifier
	logger   *zap.Logger
}

// NewBalanceService builds BalanceService.
func NewBalanceService(api BalanceAPI, notifier Notifier, logger *zap.Logger) *BalanceService {
	return &BalanceService{api: api, notifier: notifier, logger: logger.Named("balance")}
}

// Balance returns the current balance.
func (s *BalanceService) Balance(ctx context.Context, subjectID int64) (models.Balance, error) {
	balance, err := s.api.GetBalance(ctx, subjectID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("balance: read: %w", err)
	}
	return balance, nil
}

// CheckAndTopUp buys topUp worth of credit when the balance is below threshold.
// At most one purchase is made, whatever the balance afterwards.
func (s *BalanceService) CheckAndTopUp(ctx context.Context, subjectID int64, threshold, topUp decimal.Decimal) (BalanceOutcome, error) {
	current, err := s.Balance(ctx, subjectID)
	if err != nil {
		return BalanceOutcome{}, err
	}
	outcome := BalanceOutcome{Before: current.Amount, After: current.Amount}
	s.logger.Info("current balance", zap.Stringer("amount", current.Amount), zap.Stringer("threshold", threshold))

	if current.Amount.GreaterThanOrEqual(threshold) {
		return outcome, nil
	}

	s.notifier.Notify(ctx, msgLowBalance)
	s.notifier.Notify(ctx, msgOldBalance(current.Amount))

	result, err := s.TopUp(ctx, subjectID, topUp)
	outcome.ToppedUp = result.Purchased
	if err != nil {
		return outcome, err
	}
	outcome.After = result.Balance.Amount
	return outcome, nil
}

// TopUpResult reports a purchase and the balance read back after it.
type TopUpResult struct {
	Purchased bool
	Balance   models.Balance
}

// TopUp purchases amount (rounded to cents) and re-reads the balance.
func (s *BalanceService) TopUp(ctx context.Context, subjectID int64, amount decimal.Decimal) (TopUpResult, error) {
	amount = models.RoundCents(amount)
	if !amount.IsPositive() {
		return TopUpResult{}, fmt.Errorf("balance: invalid top-up amount %s", amount.StringFixed(2))
	}

	if err := s.api.Purchase(ctx, subjectID, amount); err != nil {
		return TopUpResult{}, fmt.Errorf("balance: purchase: %w", err)
	}
	s.logger.Info("credit purchased", zap.Stringer("amount", amount))

	balance, err := s.api.GetBalance(ctx, subjectID)
	if err != nil {
		return TopUpResult{Purchased: true}, fmt.Errorf("balance: re-read after purchase: %w", err)
	}
	s.notifier.Notify(ctx, msgNewBalance(balance.Amount))
	return TopUpResult{Purchased: true, Balance: balance}, nil
}
