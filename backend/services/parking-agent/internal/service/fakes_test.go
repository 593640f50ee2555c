package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"parkingagent/backend/services/parking-agent/internal/models"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// fakeAPI implements every API surface the services consume and records the calls.
type fakeAPI struct {
	vehicles    []models.Vehicle
	vehiclesErr error

	balances    []string
	balanceErr  error
	purchases   []string
	purchaseErr error

	fines       []models.Fine
	finesErr    error
	fineQueries [][]models.FineState
	fineLimits  []int
	payments    [][]int64
	payBalance  string
	payErr      error

	warnings    []models.Warning
	warningsErr error

	activations   []models.ActivationRequest
	activateErrBy map[string]error

	calls []string
}

func (f *fakeAPI) ListVehicles(context.Context) ([]models.Vehicle, error) {
	f.calls = append(f.calls, "vehicles")
	return f.vehicles, f.vehiclesErr
}

func (f *fakeAPI) GetBalance(context.Context, int64) (models.Balance, error) {
	f.calls = append(f.calls, "balance")
	if f.balanceErr != nil {
		return models.Balance{}, f.balanceErr
	}
	if len(f.balances) == 0 {
		return models.Balance{}, errors.New("no balance queued")
	}
	amount := f.balances[0]
	if len(f.balances) > 1 {
		f.balances = f.balances[1:]
	}
	return models.Balance{Amount: money(amount)}, nil
}

func (f *fakeAPI) Purchase(_ context.Context, _ int64, amount decimal.Decimal) error {
	f.calls = append(f.calls, "purchase")
	if f.purchaseErr != nil {
		return f.purchaseErr
	}
	f.purchases = append(f.purchases, amount.StringFixed(2))
	return nil
}

func (f *fakeAPI) ListFines(_ context.Context, _ []string, states []models.FineState, limit int) ([]models.Fine, error) {
	f.calls = append(f.calls, "fines")
	f.fineQueries = append(f.fineQueries, states)
	f.fineLimits = append(f.fineLimits, limit)
	return f.fines, f.finesErr
}

func (f *fakeAPI) PayFines(_ context.Context, ids []int64) (models.FinePaymentResult, error) {
	f.calls = append(f.calls, "pay")
	var result models.FinePaymentResult
	if f.payErr != nil {
		return result, f.payErr
	}
	f.payments = append(f.payments, ids)
	if f.payBalance != "" {
		result.Metadata.Balance = money(f.payBalance)
	}
	return result, nil
}

func (f *fakeAPI) ListWarnings(context.Context) ([]models.Warning, error) {
	f.calls = append(f.calls, "warnings")
	return f.warnings, f.warningsErr
}

func (f *fakeAPI) Activate(_ context.Context, req models.ActivationRequest) error {
	f.calls = append(f.calls, "activate")
	if err := f.activateErrBy[req.Plate]; err != nil {
		return err
	}
	f.activations = append(f.activations, req)
	return nil
}

func (f *fakeAPI) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fixedSubject struct {
	id  int64
	err error
}

func (s fixedSubject) SubjectID(context.Context) (int64, error) { return s.id, s.err }

type memoryRecorder struct {
	reports []*models.RunReport
	err     error
}

func (r *memoryRecorder) Record(_ context.Context, report *models.RunReport) error {
	r.reports = append(r.reports, report)
	return r.err
}

func vehicle(plate string, typeID int) models.Vehicle {
	return models.Vehicle{Plate: plate, VehicleType: models.VehicleType{ID: typeID}}
}

func intPtr(v int) *int { return &v }

func money(v string) decimal.Decimal { return decimal.RequireFromString(v) }
