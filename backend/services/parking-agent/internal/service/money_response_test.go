package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkingagent/backend/services/parking-agent/internal/clients"
	"parkingagent/backend/services/parking-agent/internal/models"
)

type passthroughCaller struct{}

func (passthroughCaller) Call(ctx context.Context, req clients.Request) (int, []byte, error) {
	return req(ctx, map[string]string{"X-Access-Token": "tok"})
}

// newBalanceServer serves balanceBody for saldo reads and counts purchases.
func newBalanceServer(t *testing.T, balanceBody, paymentBody string, purchases *int32) *clients.ParkingClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch {
		case strings.HasSuffix(r.URL.Path, "/saldo"):
			_, _ = io.WriteString(w, balanceBody)
		case strings.HasSuffix(r.URL.Path, "/compras"):
			atomic.AddInt32(purchases, 1)
			w.WriteHeader(http.StatusCreated)
		case strings.HasSuffix(r.URL.Path, "/notificacoes"):
			_, _ = io.WriteString(w, `{"resultado":[{"id":10,"estado":"ABERTA"}]}`)
		case strings.HasSuffix(r.URL.Path, "/pagamentos"):
			_, _ = io.WriteString(w, paymentBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return clients.NewParkingClient(srv.URL, clients.NewDefaultHTTPClient(5*time.Second), passthroughCaller{}, 7,
		clients.Device{}, clients.Card{})
}

func TestCheckAndTopUpWithoutReadableBalanceBuysNothing(t *testing.T) {
	bodies := map[string]string{
		"empty object":  `{}`,
		"empty body":    ``,
		"null saldo":    `{"saldo":null}`,
		"renamed field": `{"balance":25.0}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			var purchases int32
			api := newBalanceServer(t, body, "", &purchases)
			notifier := &recordingNotifier{}
			svc := NewBalanceService(api, notifier, zap.NewNop())

			outcome, err := svc.CheckAndTopUp(context.Background(), 1, money("6.00"), money("5.75"))
			require.Error(t, err)

			var decodeErr *clients.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
			assert.False(t, outcome.ToppedUp)
			assert.Zero(t, atomic.LoadInt32(&purchases))
			assert.Empty(t, notifier.all())
			assert.False(t, IsFatal(err))
		})
	}
}

func TestSettleOpenFinesRejectsPaymentWithoutBalance(t *testing.T) {
	var purchases int32
	api := newBalanceServer(t, `{"saldo":20}`, `{"metadados":{}}`, &purchases)
	notifier := &recordingNotifier{}
	svc := NewFineService(api, notifier, zap.NewNop())

	_, err := svc.SettleOpenFines(context.Background(), []string{"ABC1234"})
	require.Error(t, err)

	assert.ErrorIs(t, err, models.ErrMissingField)
	assert.False(t, IsFatal(err))
	assert.Empty(t, notifier.all())
}

func TestRunOnceMissingBalanceFailsOnlyBalanceStage(t *testing.T) {
	var purchases int32
	client := newBalanceServer(t, `{}`, `{"metadados":{"saldo":14.5}}`, &purchases)
	notifier := &recordingNotifier{}
	logger := zap.NewNop()
	account := &fakeAPI{vehicles: []models.Vehicle{vehicle("ABC1234", 1)}}

	report, err := NewOrchestrator(OrchestratorDeps{
		Account:  account,
		Subject:  fixedSubject{id: 42},
		Balance:  NewBalanceService(client, notifier, logger),
		Fines:    NewFineService(client, notifier, logger),
		Parking:  NewParkingService(account, testRules, testLocation, notifier, logger),
		Notifier: notifier,
		Policy:   BalancePolicy{Threshold: money("6.00"), TopUp: money("5.75")},
	}, logger).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Zero(t, atomic.LoadInt32(&purchases))
	assert.False(t, report.ToppedUp)
	assert.Nil(t, report.BalanceBefore)
	require.Len(t, report.StageErrors, 1)
	assert.Equal(t, StageBalance, report.StageErrors[0].Stage)
	assert.Equal(t, []int64{10}, report.PaidFineIDs)
	require.NotNil(t, report.BalanceAfterPay)
	assert.Equal(t, "14.50", report.BalanceAfterPay.StringFixed(2))
}
