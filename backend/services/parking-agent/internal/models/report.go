package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StageError records a failure isolated to one stage.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// RunReport summarizes one orchestrator pass.
type RunReport struct {
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	Plates          []string         `json:"plates"`
	NoVehicles      bool             `json:"no_vehicles"`
	BalanceBefore   *decimal.Decimal `json:"balance_before,omitempty"`
	BalanceAfter    *decimal.Decimal `json:"balance_after,omitempty"`
	ToppedUp        bool             `json:"topped_up"`
	PaidFineIDs     []int64          `json:"paid_fine_ids"`
	BalanceAfterPay *decimal.Decimal `json:"balance_after_fines,omitempty"`
	Activated       []string         `json:"activated"`
	Skipped         int              `json:"skipped_warnings"`
	StageErrors     []StageError     `json:"stage_errors"`
	Fatal           string           `json:"fatal,omitempty"`
}

// Succeeded reports whether the pass finished without any failure.
func (r *RunReport) Succeeded() bool {
	return r.Fatal == "" && len(r.StageErrors) == 0
}
