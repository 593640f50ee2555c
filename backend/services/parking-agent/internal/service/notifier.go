package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Notifier delivers human-readable status messages. Implementations swallow
// their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

const (
	msgLowBalance = "💳 Saldo baixo, comprando crédito automaticamente"
	msgNoVehicles = "❗ Nenhum veículo encontrado"
)

func msgOldBalance(amount decimal.Decimal) string {
	return "✅ Saldo Antigo: R$ " + amount.StringFixed(2)
}

func msgNewBalance(amount decimal.Decimal) string {
	return "✅ Novo saldo: R$ " + amount.StringFixed(2)
}

func msgFinesPaid(amount decimal.Decimal) string {
	return "✅ Multas pagas. Novo saldo: R$ " + amount.StringFixed(2)
}

func msgParkingStarted(plate string) string {
	return fmt.Sprintf("🅿️ Estacionamento iniciado para %s", plate)
}

func msgFailure(err error) string {
	return "💥 " + err.Error()
}
