package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"parkingagent/backend/services/parking-agent/internal/models"
)

// ParkingAPI is the subset of the parking API used for activations.
type ParkingAPI interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	Activate(ctx context.Context, req models.ActivationRequest) error
}

// Location is a coordinate pair.
type Location struct {
	Latitude  float64
	Longitude float64
}

// ActivationFailure is an activation the API refused.
type ActivationFailure struct {
	Plate string
	Err   error
}

// ActivationResult summarizes one pass over the warnings.
type ActivationResult struct {
	Activated []string
	Skipped   int
	Failures  []ActivationFailure
}

// ManualActivation is an operator-requested activation. A nil Location uses
// the configured one.
type ManualActivation struct {
	Plate                string
	Location             *Location
	RuleID               *int
	Extend               bool
	PreviousActivationID int64
	Address              *models.Address
}

// ParkingService turns arrival warnings into parking activations.
type ParkingService struct {
	api      ParkingAPI
	rules    models.RuleTable
	location Location
	notifier Notifier
	logger   *zap.Logger
}

// NewParkingService builds ParkingService. location is used for warning-driven activations.
func NewParkingService(api ParkingAPI, rules models.RuleTable, location Location, notifier Notifier, logger *zap.Logger) *ParkingService {
	return &ParkingService{
		api:      api,
		rules:    rules,
		location: location,
		notifier: notifier,
		logger:   logger.Named("parking"),
	}
}

// ActivateForWarnings starts a fresh activation for every warning that maps to
// one of vehicles and resolves a pricing rule. Unmapped warnings are skipped.
// A refused activation does not stop the loop; a fatal error does.
func (s *ParkingService) ActivateForWarnings(ctx context.Context, warnings []models.Warning, vehicles []models.Vehicle) (ActivationResult, error) {
	var result ActivationResult

	typeByPlate := make(map[string]int, len(vehicles))
	for _, v := range vehicles {
		typeByPlate[v.Plate] = v.TypeID()
	}

	for _, w := range warnings {
		plate := w.ResolvedPlate()
		if plate == "" {
			s.logger.Debug("warning without plate, skipping")
			result.Skipped++
			continue
		}

		typeID, ok := typeByPlate[plate]
		if !ok || typeID == 0 {
			s.logger.Debug("warning for unknown vehicle, skipping", zap.String("plate", plate))
			result.Skipped++
			continue
		}

		ruleID, ok := s.rules.Resolve(w.RuleID, typeID)
		if !ok {
			s.logger.Debug("no pricing rule, skipping", zap.String("plate", plate), zap.Int("vehicle_type", typeID))
			result.Skipped++
			continue
		}

		req := models.ActivationRequest{
			Plate:         plate,
			Latitude:      s.location.Latitude,
			Longitude:     s.location.Longitude,
			RuleID:        ruleID,
			VehicleTypeID: typeID,
		}
		if err := s.api.Activate(ctx, req); err != nil {
			if IsFatal(err) {
				return result, err
			}
			s.logger.Warn("activation failed", zap.String("plate", plate), zap.Error(err))
			result.Failures = append(result.Failures, ActivationFailure{Plate: plate, Err: err})
			continue
		}

		s.logger.Info("parking activated", zap.String("plate", plate), zap.Int("rule_id", ruleID))
		result.Activated = append(result.Activated, plate)
		s.notifier.Notify(ctx, msgParkingStarted(plate))
	}

	return result, nil
}

// StartManual activates (or extends) parking for a plate on the account.
func (s *ParkingService) StartManual(ctx context.Context, in ManualActivation) error {
	vehicles, err := s.api.ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("parking: list vehicles: %w", err)
	}

	typeID := 0
	for _, v := range vehicles {
		if v.Plate == in.Plate {
			typeID = v.TypeID()
			break
		}
	}
	if typeID == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownVehicle, in.Plate)
	}

	ruleID, ok := s.rules.Resolve(in.RuleID, typeID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoRule, typeID)
	}

	location := s.location
	if in.Location != nil {
		location = *in.Location
	}

	req := models.ActivationRequest{
		Plate:                in.Plate,
		Latitude:             location.Latitude,
		Longitude:            location.Longitude,
		RuleID:               ruleID,
		VehicleTypeID:        typeID,
		Extend:               in.Extend,
		PreviousActivationID: in.PreviousActivationID,
		Address:              in.Address,
	}
	if err := s.api.Activate(ctx, req); err != nil {
		return fmt.Errorf("parking: activate %s: %w", in.Plate, err)
	}

	s.logger.Info("manual parking activated", zap.String("plate", in.Plate), zap.Bool("extend", in.Extend))
	s.notifier.Notify(ctx, msgParkingStarted(in.Plate))
	return nil
}
