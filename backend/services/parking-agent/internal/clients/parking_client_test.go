package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingagent/backend/services/parking-agent/internal/models"
)

// staticCaller adds a fixed token header and never retries.
type staticCaller struct{ calls int }

func (c *staticCaller) Call(ctx context.Context, req Request) (int, []byte, error) {
	c.calls++
	return req(ctx, map[string]string{"X-Access-Token": "tok", "Prefeitura-Sigla": "CPM"})
}

type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   []byte
}

func newTestServer(t *testing.T, status int, response string, seen *[]capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*seen = append(*seen, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   body,
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestParkingClient(srv *httptest.Server) *ParkingClient {
	c := NewParkingClient(srv.URL, NewDefaultHTTPClient(5*time.Second), &staticCaller{}, 7,
		Device{IMEI: "356000000000000", UUID: "device-uuid"},
		Card{CVV: "123", Number: "4111111111111111", Expiration: "12/30", Brand: "VISA", Holder: "JOAO"})
	c.newID = func() string { return "fixed-uuid" }
	return c
}

func TestListVehicles(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `[{"placa":"ABC1234","tipo_veiculo":{"id":1}}]`, &seen)

	vehicles, err := newTestParkingClient(srv).ListVehicles(context.Background())
	require.NoError(t, err)

	require.Len(t, vehicles, 1)
	assert.Equal(t, "ABC1234", vehicles[0].Plate)
	assert.Equal(t, 1, vehicles[0].TypeID())
	assert.Equal(t, "/v3/usuarios/veiculos", seen[0].path)
	assert.Equal(t, []string{"true"}, seen[0].query["dados_completos"])
	assert.Equal(t, "tok", seen[0].header.Get("X-Access-Token"))
	assert.Equal(t, "CPM", seen[0].header.Get("Prefeitura-Sigla"))
}

func TestGetBalance(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"saldo":5.0}`, &seen)

	balance, err := newTestParkingClient(srv).GetBalance(context.Background(), 42)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(5).Equal(balance.Amount), balance.Amount.String())
	assert.Equal(t, "/v4/usuarios/42/saldo", seen[0].path)
	assert.Equal(t, []string{"7"}, seen[0].query["prefeitura_id"])
}

func TestPurchasePayload(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusCreated, ``, &seen)

	require.NoError(t, newTestParkingClient(srv).Purchase(context.Background(), 42, decimal.RequireFromString("5.749")))

	req := seen[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/v4/usuarios/42/compras", req.path)
	assert.Contains(t, req.header.Get("Content-Type"), "application/json")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, "fixed-uuid", body["uuid_transacao"])
	assert.Equal(t, float64(7), body["prefeitura_id"])

	charge := body["cobranca"].(map[string]interface{})
	assert.Equal(t, "CARTAO_CREDITO", charge["forma_pagamento"])
	assert.Equal(t, 5.75, charge["valor"])
	assert.Equal(t, true, charge["capturar"])
	card := charge["cartao"].(map[string]interface{})
	assert.Equal(t, "4111111111111111", card["numero"])
	assert.Equal(t, true, card["salvar_cartao"])

	device := body["dispositivo"].(map[string]interface{})
	assert.Equal(t, "356000000000000", device["imei"])
}

func TestListFinesQuery(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"resultado":[{"id":10,"estado":"ABERTA"}]}`, &seen)

	fines, err := newTestParkingClient(srv).ListFines(context.Background(),
		[]string{"ABC1234", "DEF5678"}, []models.FineState{models.FineOpen, models.FinePaid}, 0)
	require.NoError(t, err)

	assert.Equal(t, []models.Fine{{ID: 10, State: models.FineOpen}}, fines)
	assert.Equal(t, "/v4/prefeituras/7/notificacoes", seen[0].path)
	assert.Equal(t, []string{"ABC1234|DEF5678"}, seen[0].query["placas"])
	assert.Equal(t, []string{"ABERTA|PAGA"}, seen[0].query["estados"])
	assert.NotContains(t, seen[0].query, "limite")
}

func TestPayFinesPayload(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"metadados":{"saldo":3.21}}`, &seen)

	result, err := newTestParkingClient(srv).PayFines(context.Background(), []int64{10})
	require.NoError(t, err)

	assert.Equal(t, "3.21", result.Metadata.Balance.String())
	assert.Equal(t, "/v4/prefeituras/7/notificacoes/pagamentos", seen[0].path)
	assert.JSONEq(t, `{"forma_pagamento":"DINHEIRO","notificacoes":[10]}`, string(seen[0].body))
}

func TestListWarnings(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK,
		`{"avisos":[{"veiculo_placa":"ABC1234","regra_valor_tempo_id":99},{"placa":"DEF5678"}]}`, &seen)

	warnings, err := newTestParkingClient(srv).ListWarnings(context.Background())
	require.NoError(t, err)

	require.Len(t, warnings, 2)
	assert.Equal(t, "ABC1234", warnings[0].ResolvedPlate())
	require.NotNil(t, warnings[0].RuleID)
	assert.Equal(t, 99, *warnings[0].RuleID)
	assert.Equal(t, "DEF5678", warnings[1].ResolvedPlate())
	assert.Nil(t, warnings[1].RuleID)
	assert.Equal(t, "/v4/prefeituras/7/avisos", seen[0].path)
}

func TestActivatePayload(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `{}`, &seen)

	err := newTestParkingClient(srv).Activate(context.Background(), models.ActivationRequest{
		Plate:         "ABC1234",
		Latitude:      -24.04206,
		Longitude:     -52.37622,
		RuleID:        85,
		VehicleTypeID: 1,
	})
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(seen[0].body, &body))
	assert.Equal(t, "/v4/prefeituras/7/ativar", seen[0].path)
	assert.Equal(t, "ABC1234", body["veiculo_usuario_placa"])
	assert.Equal(t, float64(85), body["regra_valor_tempo_id"])
	assert.Equal(t, float64(1), body["tipo_veiculo_id"])
	assert.Equal(t, "fixed-uuid", body["uuid_ativacao"])
	assert.Equal(t, false, body["estender"])
	assert.Equal(t, false, body["cancelar"])
	assert.Equal(t, float64(0), body["ativacao_anterior_id"])
	assert.Equal(t, "device-uuid", body["uuid_dispositivo"])
	assert.NotContains(t, body, "endereco_logradouro")
}

func TestActivateWithAddress(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, ``, &seen)

	err := newTestParkingClient(srv).Activate(context.Background(), models.ActivationRequest{
		Plate:   "ABC1234",
		RuleID:  85,
		Extend:  true,
		Address: &models.Address{Street: "Av. Brasil", Number: "100", District: "Centro"},
	})
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(seen[0].body, &body))
	assert.Equal(t, true, body["estender"])
	assert.Equal(t, "Av. Brasil", body["endereco_logradouro"])
	assert.Equal(t, "100", body["endereco_numero"])
	assert.Equal(t, "Centro", body["endereco_bairro"])
}

func TestNonSuccessBecomesAPIError(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusUnprocessableEntity, `{"mensagem":"regra invalida"}`, &seen)

	err := newTestParkingClient(srv).Activate(context.Background(), models.ActivationRequest{Plate: "ABC1234"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "regra invalida")
	assert.False(t, apiErr.Unauthorized())
}

func TestMalformedBodyIsNotTransportError(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `not json`, &seen)

	_, err := newTestParkingClient(srv).GetBalance(context.Background(), 1)
	require.Error(t, err)

	var transportErr *TransportError
	assert.False(t, errors.As(err, &transportErr))
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestGetBalanceRejectsMissingAmount(t *testing.T) {
	cases := map[string]string{
		"empty object":  `{}`,
		"empty body":    ``,
		"null saldo":    `{"saldo":null}`,
		"renamed field": `{"balance":25.0}`,
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			var seen []capturedRequest
			srv := newTestServer(t, http.StatusOK, response, &seen)

			_, err := newTestParkingClient(srv).GetBalance(context.Background(), 1)
			require.Error(t, err)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, "/v4/usuarios/1/saldo", decodeErr.Path)
		})
	}
}

func TestGetBalanceKeepsExactCents(t *testing.T) {
	var seen []capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"saldo":0.1}`, &seen)

	balance, err := newTestParkingClient(srv).GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "0.3", balance.Amount.Add(decimal.RequireFromString("0.2")).String())
}

func TestPayFinesRejectsMissingBalance(t *testing.T) {
	cases := map[string]string{
		"empty body":    ``,
		"no metadata":   `{}`,
		"no saldo":      `{"metadados":{}}`,
		"null saldo":    `{"metadados":{"saldo":null}}`,
		"null metadata": `{"metadados":null}`,
	}
	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			var seen []capturedRequest
			srv := newTestServer(t, http.StatusOK, response, &seen)

			_, err := newTestParkingClient(srv).PayFines(context.Background(), []int64{10})
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}
