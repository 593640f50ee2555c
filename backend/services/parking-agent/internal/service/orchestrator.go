package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingagent/backend/services/parking-agent/internal/clients"
	"parkingagent/backend/services/parking-agent/internal/models"
	"parkingagent/backend/services/parking-agent/internal/session"
)

// Stage names used in reports.
const (
	StageBalance = "saldo"
	StageFines   = "multas"
	StageParking = "estacionamento"
)

// AccountAPI lists account data the orchestrator needs before the stages run.
type AccountAPI interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListWarnings(ctx context.Context) ([]models.Warning, error)
}

// SubjectResolver yields the account id of the live session.
type SubjectResolver interface {
	SubjectID(ctx context.Context) (int64, error)
}

// RunRecorder persists finished run reports.
type RunRecorder interface {
	Record(ctx context.Context, report *models.RunReport) error
}

// BalancePolicy configures the top-up decision.
type BalancePolicy struct {
	Threshold decimal.Decimal
	TopUp     decimal.Decimal
}

// OrchestratorDeps groups the collaborators of one run.
type OrchestratorDeps struct {
	Account  AccountAPI
	Subject  SubjectResolver
	Balance  *BalanceService
	Fines    *FineService
	Parking  *ParkingService
	Notifier Notifier
	Recorder RunRecorder
	Policy   BalancePolicy
	Now      func() time.Time
}

// Orchestrator runs balance, fines and parking in that order against one
// vehicle snapshot. A failing stage is reported and the next one still runs;
// transport, authentication and token errors end the run.
type Orchestrator struct {
	deps   OrchestratorDeps
	logger *zap.Logger
}

// NewOrchestrator builds Orchestrator.
func NewOrchestrator(deps OrchestratorDeps, logger *zap.Logger) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps, logger: logger.Named("orchestrator")}
}

// RunOnce executes one pass. The report is always returned; the error is
// non-nil only for a fatal condition, which has already been notified.
func (o *Orchestrator) RunOnce(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{StartedAt: o.deps.Now()}
	o.logger.Info("run started")

	err := o.run(ctx, report)
	report.FinishedAt = o.deps.Now()

	if err != nil {
		report.Fatal = err.Error()
		o.logger.Error("run aborted", zap.Error(err))
		o.deps.Notifier.Notify(ctx, describeFatal(err))
	} else {
		o.logger.Info("run finished",
			zap.Bool("topped_up", report.ToppedUp),
			zap.Int("fines_paid", len(report.PaidFineIDs)),
			zap.Strings("activated", report.Activated),
			zap.Int("stage_errors", len(report.StageErrors)),
		)
	}

	if o.deps.Recorder != nil {
		if recErr := o.deps.Recorder.Record(ctx, report); recErr != nil {
			o.logger.Warn("failed to record run", zap.Error(recErr))
		}
	}
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, report *models.RunReport) error {
	vehicles, err := o.deps.Account.ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("list vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		report.NoVehicles = true
		o.logger.Info("no vehicles on account")
		o.deps.Notifier.Notify(ctx, msgNoVehicles)
		return nil
	}

	plates := models.Plates(vehicles)
	report.Plates = plates
	o.logger.Info("vehicles found", zap.Strings("plates", plates))

	subjectID, err := o.deps.Subject.SubjectID(ctx)
	if err != nil {
		return err
	}

	err = o.stage(ctx, report, StageBalance, func() error {
		outcome, err := o.deps.Balance.CheckAndTopUp(ctx, subjectID, o.deps.Policy.Threshold, o.deps.Policy.TopUp)
		if outcome.ToppedUp || err == nil {
			before, after := outcome.Before, outcome.After
			report.BalanceBefore = &before
			report.ToppedUp = outcome.ToppedUp
			if err == nil {
				report.BalanceAfter = &after
			}
		}
		return err
	})
	if err != nil {
		return err
	}

	err = o.stage(ctx, report, StageFines, func() error {
		settlement, err := o.deps.Fines.SettleOpenFines(ctx, plates)
		if err != nil {
			return err
		}
		report.PaidFineIDs = settlement.PaidIDs
		if len(settlement.PaidIDs) > 0 {
			balance := settlement.NewBalance
			report.BalanceAfterPay = &balance
		}
		return nil
	})
	if err != nil {
		return err
	}

	return o.stage(ctx, report, StageParking, func() error {
		warnings, err := o.deps.Account.ListWarnings(ctx)
		if err != nil {
			return fmt.Errorf("parking: list warnings: %w", err)
		}
		if len(warnings) == 0 {
			o.logger.Info("no arrival warnings")
			return nil
		}

		result, err := o.deps.Parking.ActivateForWarnings(ctx, warnings, vehicles)
		report.Activated = result.Activated
		report.Skipped = result.Skipped
		for _, failure := range result.Failures {
			o.fail(ctx, report, StageParking+":"+failure.Plate,
				fmt.Errorf("erro ao iniciar estacionamento para %s: %w", failure.Plate, failure.Err))
		}
		return err
	})
}

// stage runs fn and isolates a non-fatal failure to this stage.
func (o *Orchestrator) stage(ctx context.Context, report *models.RunReport, name string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if IsFatal(err) {
		return err
	}
	o.fail(ctx, report, name, err)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, report *models.RunReport, name string, err error) {
	o.logger.Warn("stage failed", zap.String("stage", name), zap.Error(err))
	report.StageErrors = append(report.StageErrors, models.StageError{Stage: name, Message: err.Error()})
	o.deps.Notifier.Notify(ctx, msgFailure(fmt.Errorf("etapa %s: %w", name, err)))
}

func describeFatal(err error) string {
	var transportErr *clients.TransportError
	var authErr *session.AuthenticationError
	switch {
	case errors.As(err, &transportErr):
		return "💥 Erro de rede: " + err.Error()
	case errors.As(err, &authErr):
		return "💥 Falha na autenticação: " + err.Error()
	default:
		return "💥 Erro inesperado: " + err.Error()
	}
}
