package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FineState is the lifecycle state of a notification.
type FineState string

const (
	FineTolerance FineState = "TOLERANCIA"
	FineOpen      FineState = "ABERTA"
	FinePaid      FineState = "PAGA"
	FineCancelled FineState = "CANCELADA"
	FineOverdue   FineState = "VENCIDA"
)

// AllFineStates lists every state the notifications endpoint accepts.
var AllFineStates = []FineState{FineTolerance, FineOpen, FinePaid, FineCancelled, FineOverdue}

// Fine is a payable notification tied to a plate.
type Fine struct {
	ID    int64     `json:"id"`
	State FineState `json:"estado"`
	Plate string    `json:"placa,omitempty"`
}

// FineList is the notifications listing envelope.
type FineList struct {
	Results []Fine `json:"resultado"`
}

// FinePayment is the batched payment request body.
type FinePayment struct {
	PaymentMethod string  `json:"forma_pagamento"`
	FineIDs       []int64 `json:"notificacoes"`
}

// FinePaymentResult carries the balance reported after a payment.
type FinePaymentResult struct {
	Metadata PaymentMetadata `json:"metadados"`
}

// PaymentMetadata is the metadados block of a payment response.
type PaymentMetadata struct {
	Balance decimal.Decimal `json:"saldo"`
}

// UnmarshalJSON rejects bodies where metadados.saldo is absent or null.
func (r *FinePaymentResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Metadata *struct {
			Balance *decimal.Decimal `json:"saldo"`
		} `json:"metadados"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Metadata == nil || raw.Metadata.Balance == nil {
		return fmt.Errorf("%w: metadados.saldo", ErrMissingField)
	}
	r.Metadata.Balance = *raw.Metadata.Balance
	return nil
}

// OpenFineIDs keeps only ids whose state is ABERTA, in input order.
func OpenFineIDs(fines []Fine) []int64 {
	ids := make([]int64, 0, len(fines))
	for _, f := range fines {
		if f.State == FineOpen {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
