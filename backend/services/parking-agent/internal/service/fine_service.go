package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingagent/backend/services/parking-agent/internal/models"
)

const fineListingLimit = 50

// FineAPI is the subset of the parking API used for fines.
type FineAPI interface {
	ListFines(ctx context.Context, plates []string, states []models.FineState, limit int) ([]models.Fine, error)
	PayFines(ctx context.Context, ids []int64) (models.FinePaymentResult, error)
}

// Settlement is the result of paying open fines.
type Settlement struct {
	PaidIDs    []int64
	NewBalance decimal.Decimal
}

// FineService settles open fines from the account balance.
type FineService struct {
	api      FineAPI
	notifier Notifier
	logger   *zap.Logger
}

// NewFineService builds FineService.
func NewFineService(api FineAPI, notifier Notifier, logger *zap.Logger) *FineService {
	return &FineService{api: api, notifier: notifier, logger: logger.Named("fines")}
}

// SettleOpenFines pays every open fine for plates in a single batch. The server
// filter is re-applied locally; nothing open means nothing is paid. The
// returned balance is the one reported by the payment response.
func (s *FineService) SettleOpenFines(ctx context.Context, plates []string) (Settlement, error) {
	if len(plates) == 0 {
		return Settlement{}, ErrNoPlates
	}

	fines, err := s.api.ListFines(ctx, plates, []models.FineState{models.FineOpen}, 0)
	if err != nil {
		return Settlement{}, fmt.Errorf("fines: list open: %w", err)
	}

	ids := models.OpenFineIDs(fines)
	if len(ids) == 0 {
		s.logger.Info("no open fines", zap.Strings("plates", plates))
		return Settlement{}, nil
	}
	s.logger.Info("paying open fines", zap.Int64s("ids", ids))

	result, err := s.api.PayFines(ctx, ids)
	if err != nil {
		return Settlement{}, fmt.Errorf("fines: pay %v: %w", ids, err)
	}

	settlement := Settlement{PaidIDs: ids, NewBalance: result.Metadata.Balance}
	s.notifier.Notify(ctx, msgFinesPaid(settlement.NewBalance))
	return settlement, nil
}

// ListFines returns fines in every state for plates.
func (s *FineService) ListFines(ctx context.Context, plates []string) ([]models.Fine, error) {
	if len(plates) == 0 {
		return nil, ErrNoPlates
	}
	fines, err := s.api.ListFines(ctx, plates, models.AllFineStates, fineListingLimit)
	if err != nil {
		return nil, fmt.Errorf("fines: list: %w", err)
	}
	return fines, nil
}
