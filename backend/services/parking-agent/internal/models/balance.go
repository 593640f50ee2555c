package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMissingField is returned when a money response lacks a required field.
var ErrMissingField = errors.New("response field missing")

// Balance is the prepaid credit available to the account.
type Balance struct {
	Amount decimal.Decimal `json:"saldo"`
}

// UnmarshalJSON rejects bodies where saldo is absent or null.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount *decimal.Decimal `json:"saldo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Amount == nil {
		return fmt.Errorf("%w: saldo", ErrMissingField)
	}
	b.Amount = *raw.Amount
	return nil
}

// RoundCents rounds a monetary value to two decimal places.
func RoundCents(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
